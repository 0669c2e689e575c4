package trading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
)

// 브로커가 실현손익이 없을 때 보내는 값 (double 최대값) 필터 기준
const realizedPnLSentinel = 1e100

// orderTrack은 제출한 주문 하나의 체결/수수료 상관관계입니다
type orderTrack struct {
	id         int64
	leg        int
	side       domain.OrderSide
	qty        int
	opening    bool
	quotePrice float64
	submitted  time.Time

	filled    bool
	filledQty int
	avgPrice  float64
	filledAt  time.Time
	cancelled bool

	execs      map[string]bool // 체결 ID -> 수수료 수신 여부
	execQty    int
	commission decimal.Decimal
	realized   decimal.Decimal
	emitted    bool

	event *pairEvent
}

// settled는 체결 확정과 모든 수수료 보고가 도착했는지 확인합니다
func (t *orderTrack) settled() bool {
	if !t.filled || t.filledQty == 0 || len(t.execs) == 0 || t.execQty < t.filledQty {
		return false
	}
	for _, done := range t.execs {
		if !done {
			return false
		}
	}
	return true
}

// pairEvent는 두 레그가 함께 만드는 진입/청산 이벤트입니다
type pairEvent struct {
	action    domain.HistoryAction
	position  domain.PositionSide
	zscore    float64
	reason    string
	costBasis float64
	tx        [2]*domain.Transaction
	emitted   bool
}

// legOrder는 제출할 레그 주문입니다
type legOrder struct {
	leg        int
	side       domain.OrderSide
	qty        int
	opening    bool
	quotePrice float64
}

// openPosition은 슬롯을 예약하고 두 레그 진입 주문을 제출합니다
func (e *Engine) openPosition(ctx context.Context, sig domain.SignalType, qty1, qty2 int, q strategy.Quotes, reason string) error {
	cfg := e.pair.Config()
	if !e.pf.AcquirePositionLock(e.pairID, cfg.SlotOccupation) {
		e.setStatus(domain.StatusEntrySlot)
		return fmt.Errorf("슬롯을 예약할 수 없습니다")
	}

	pos := sig.Position()
	side1, side2 := pos.LegSides()
	p1, p2 := strategy.EntryPrices(q, sig)
	ev := &pairEvent{
		action:   domain.ActionOpened,
		position: pos,
		zscore:   e.model.ZScore(q, zModeFor(sig)),
		reason:   reason,
	}

	orders := []legOrder{
		{leg: 0, side: side1, qty: qty1, opening: true, quotePrice: p1},
		{leg: 1, side: side2, qty: qty2, opening: true, quotePrice: p2},
	}
	if err := e.submitOrders(ctx, orders, ev); err != nil {
		e.pf.ReleasePositionLock(e.pairID)
		e.logf("진입 주문 실패: %v", err)
		return err
	}

	e.logf("%s 진입 주문: %s %d / %s %d (z=%.3f, %s)",
		pos, e.legs[0].symbol, qty1, e.legs[1].symbol, qty2, ev.zscore, reason)
	e.setStatus(domain.StatusTransient)
	return nil
}

// closePosition은 보유 중인 두 레그의 청산 주문을 제출합니다
func (e *Engine) closePosition(ctx context.Context, reason string) error {
	pos, _ := domain.DerivePosition(e.legs[0].qty, e.legs[1].qty)
	q := e.quotes()
	ev := &pairEvent{
		action:    domain.ActionClosed,
		position:  pos,
		reason:    reason,
		costBasis: e.costBasis(),
	}
	if e.model != nil {
		ev.zscore = e.model.ZScore(q, zModeFor(strategy.ExitSignal(pos)))
	}

	var orders []legOrder
	for i, leg := range e.legs {
		if leg.qty == 0 || leg.order != nil {
			continue
		}
		orders = append(orders, e.closeOrder(i, q))
	}
	if len(orders) == 0 {
		return nil
	}
	if err := e.submitOrders(ctx, orders, ev); err != nil {
		e.logf("청산 주문 실패: %v", err)
		return err
	}
	e.logf("%s 청산 주문 (%s)", pos, reason)
	e.setStatus(domain.StatusTransient)
	return nil
}

// closeLeg는 한 레그만 청산합니다. 페어 이력은 남기지 않습니다
func (e *Engine) closeLeg(ctx context.Context, idx int, reason string) {
	leg := e.legs[idx]
	if leg.qty == 0 || leg.order != nil {
		return
	}
	if err := e.submitOrders(ctx, []legOrder{e.closeOrder(idx, e.quotes())}, nil); err != nil {
		e.logf("%s 단독 청산 실패: %v", leg.symbol, err)
		return
	}
	e.logf("%s 단독 청산 주문 %d (%s)", leg.symbol, leg.qty, reason)
}

func (e *Engine) closeOrder(idx int, q strategy.Quotes) legOrder {
	leg := e.legs[idx]
	rates := q.Leg1
	if idx == 1 {
		rates = q.Leg2
	}
	if leg.qty > 0 {
		return legOrder{leg: idx, side: domain.Sell, qty: leg.qty, quotePrice: rates.Bid}
	}
	return legOrder{leg: idx, side: domain.Buy, qty: -leg.qty, quotePrice: rates.Ask}
}

// submitOrders는 주문을 순서대로 제출합니다. 중간에 실패하면 이미 제출한 주문을 취소합니다
func (e *Engine) submitOrders(ctx context.Context, orders []legOrder, ev *pairEvent) error {
	conn, ok := e.connection()
	if !ok {
		return &ExecutionError{Phase: "connection", Err: broker.ErrNotConnected}
	}

	var placed []*orderTrack
	for _, o := range orders {
		track, err := e.submitLeg(ctx, conn, o, ev)
		if err != nil {
			for _, t := range placed {
				e.cancelTrack(ctx, t)
			}
			e.syncRuntime()
			return err
		}
		placed = append(placed, track)
	}
	e.syncRuntime()
	return nil
}

func (e *Engine) submitLeg(ctx context.Context, conn *broker.Connection, o legOrder, ev *pairEvent) (*orderTrack, error) {
	leg := e.legs[o.leg]
	id, err := conn.AllocateOrderID(ctx)
	if err != nil {
		return nil, &ExecutionError{Phase: "order-id", Err: err}
	}
	e.tracker.TrackOrder(id)

	now := e.now()
	track := &orderTrack{
		id:         id,
		leg:        o.leg,
		side:       o.side,
		qty:        o.qty,
		opening:    o.opening,
		quotePrice: o.quotePrice,
		submitted:  now,
		execs:      make(map[string]bool),
		event:      ev,
	}
	e.orders[id] = track
	leg.order = track
	if o.opening {
		leg.opening = o.qty * o.side.Sign()
	} else {
		leg.closing = o.qty * o.side.Sign()
	}

	req := domain.OrderRequest{
		OrderID:  id,
		Symbol:   leg.symbol,
		Side:     o.side,
		Type:     domain.Market,
		Quantity: o.qty,
	}
	if err := conn.PlaceOrder(ctx, req); err != nil {
		e.dropOrder(track)
		e.forgetOrder(track)
		return nil, &ExecutionError{Phase: "place", Err: err}
	}
	e.lastActivity = now
	return track, nil
}

// cancelTrack은 브로커에 취소를 요청하고 레그를 비웁니다.
// 늦게 도착하는 부분 체결을 반영하기 위해 추적 정보는 남겨둡니다.
func (e *Engine) cancelTrack(ctx context.Context, track *orderTrack) {
	if conn, ok := e.connection(); ok {
		if err := conn.CancelOrder(ctx, track.id); err != nil {
			e.logf("주문 %d 취소 실패: %v", track.id, err)
		}
	}
	e.dropOrder(track)
}

func (e *Engine) dropOrder(track *orderTrack) {
	track.cancelled = true
	leg := e.legs[track.leg]
	if leg.order == track {
		leg.order = nil
		leg.opening = 0
		leg.closing = 0
		leg.errorAt = time.Time{}
	}
}

// forgetOrder는 끝난 주문을 추적 목록과 디스패치 필터에서 지웁니다
func (e *Engine) forgetOrder(track *orderTrack) {
	execIDs := make([]string, 0, len(track.execs))
	for execID := range track.execs {
		delete(e.execs, execID)
		execIDs = append(execIDs, execID)
	}
	delete(e.orders, track.id)
	e.tracker.ForgetOrder(track.id, execIDs)
}

func (e *Engine) onOrderStatus(ctx context.Context, m OrderStatusMsg) {
	st := m.Status
	track, ok := e.orders[st.OrderID]
	if !ok || track.filled {
		return
	}

	switch st.State {
	case domain.OrderFilled:
		if st.Remaining > 0 {
			return
		}
		e.applyFill(track, st.Filled, st.AvgFillPrice)
	case domain.OrderCancelled, domain.OrderInactive:
		e.logf("주문 %d %s (체결 %d)", st.OrderID, st.State, st.Filled)
		if st.Filled > 0 {
			e.applyFill(track, st.Filled, st.AvgFillPrice)
		} else {
			e.dropOrder(track)
			e.forgetOrder(track)
		}
	default:
		return
	}

	e.syncRuntime()
	if !e.hasOrders() {
		e.settle(ctx)
	}
}

// applyFill은 체결 수량을 레그 확정 수량에 반영합니다
func (e *Engine) applyFill(track *orderTrack, filled int, avgPrice float64) {
	now := e.now()
	track.filled = true
	track.filledQty = filled
	track.avgPrice = avgPrice
	track.filledAt = now

	leg := e.legs[track.leg]
	prev := leg.qty
	leg.qty += filled * track.side.Sign()
	switch {
	case leg.qty == 0:
		leg.avgCost = 0
	case track.opening && prev == 0:
		leg.avgCost = avgPrice
	case track.opening:
		total := math.Abs(float64(prev))*leg.avgCost + float64(filled)*avgPrice
		leg.avgCost = total / math.Abs(float64(leg.qty))
	}
	if leg.order == track {
		leg.order = nil
		leg.opening = 0
		leg.closing = 0
		leg.errorAt = time.Time{}
	}
	e.lastActivity = now
	e.maybeEmitTransaction(track)
}

func (e *Engine) onExecution(m ExecutionMsg) {
	ex := m.Execution
	track, ok := e.orders[ex.OrderID]
	if !ok {
		e.tracker.ForgetOrder(ex.OrderID, []string{ex.ExecID})
		return
	}
	if _, dup := track.execs[ex.ExecID]; dup {
		return
	}
	track.execs[ex.ExecID] = false
	track.execQty += ex.Quantity
	e.execs[ex.ExecID] = ex.OrderID
	e.lastActivity = e.now()
}

func (e *Engine) onCommission(m CommissionMsg) {
	r := m.Report
	orderID, ok := e.execs[r.ExecID]
	if !ok {
		return
	}
	track, ok := e.orders[orderID]
	if !ok || track.execs[r.ExecID] {
		return
	}
	track.execs[r.ExecID] = true
	track.commission = track.commission.Add(decimal.NewFromFloat(r.Commission))
	if math.Abs(r.RealizedPnL) < realizedPnLSentinel {
		track.realized = track.realized.Add(decimal.NewFromFloat(r.RealizedPnL))
	}
	e.maybeEmitTransaction(track)
}

// maybeEmitTransaction은 체결과 수수료가 모두 확정된 주문의 거래 기록을 한 번만 발행합니다
func (e *Engine) maybeEmitTransaction(track *orderTrack) {
	if track.emitted || !track.settled() {
		return
	}
	track.emitted = true

	leg := e.legs[track.leg]
	tx := domain.Transaction{
		PairID:      e.pairID,
		Account:     e.account,
		Symbol:      leg.symbol,
		Side:        track.side,
		Quantity:    track.filledQty,
		Price:       track.avgPrice,
		QuotePrice:  track.quotePrice,
		Commission:  track.commission,
		RealizedPnL: track.realized,
		FillLatency: track.filledAt.Sub(track.submitted),
		OrderID:     track.id,
		Opening:     track.opening,
		Time:        e.now(),
	}
	e.notifier.Transaction(tx)

	e.forgetOrder(track)

	if ev := track.event; ev != nil {
		ev.tx[track.leg] = &tx
		e.maybeEmitHistory(ev)
	}
}

// maybeEmitHistory는 두 레그 거래 기록이 모두 준비되면 페어 이력을 발행합니다
func (e *Engine) maybeEmitHistory(ev *pairEvent) {
	if ev.emitted || ev.tx[0] == nil || ev.tx[1] == nil {
		return
	}
	ev.emitted = true

	rec := domain.HistoryRecord{
		ID:         uuid.NewString(),
		PairID:     e.pairID,
		Account:    e.account,
		Symbol1:    e.legs[0].symbol,
		Symbol2:    e.legs[1].symbol,
		Action:     ev.action,
		Position:   ev.position,
		ZScore:     ev.zscore,
		Commission: ev.tx[0].Commission.Add(ev.tx[1].Commission),
		Reason:     ev.reason,
		Time:       e.now(),
	}
	if ev.action == domain.ActionClosed {
		rec.PnL = ev.tx[0].RealizedPnL.Add(ev.tx[1].RealizedPnL)
		if ev.costBasis > 0 {
			rec.PnLPct = rec.PnL.InexactFloat64() / ev.costBasis * 100
		}
	}
	e.notifier.History(rec)
}

// settle은 미체결 주문이 모두 끝난 뒤 페어 포지션 전환을 확정합니다
func (e *Engine) settle(ctx context.Context) {
	pos, oneLeg := domain.DerivePosition(e.legs[0].qty, e.legs[1].qty)
	prev := e.pair.Runtime().Position

	switch {
	case oneLeg:
		// 한쪽 레그만 남은 경우 evaluate에서 정리합니다.
		// 수동 개입 중에는 evaluate가 멈추므로 여기서 정리합니다
		if e.pair.Runtime().Blocked {
			e.flattenLoneLeg(ctx)
		}
	case pos != domain.FlatPosition && prev != pos:
		e.confirmOpen(pos)
	case pos == domain.FlatPosition && prev != domain.FlatPosition:
		e.confirmClose(prev)
	case pos == domain.FlatPosition:
		e.pf.ReleasePositionLock(e.pairID)
	}
	e.evaluate(ctx)
}

// confirmOpen은 두 레그 진입이 확정되었을 때 포지션을 기록하고 모델 상태를 고정합니다.
// 실행 상태에 포지션을 먼저 기록한 뒤 슬롯 예약을 풀어 점유율이 비는 순간이 없게 합니다.
func (e *Engine) confirmOpen(pos domain.PositionSide) {
	token := ""
	if lockable, ok := e.model.(strategy.Lockable); ok {
		token = lockable.LockState()
	}
	now := e.now()
	q1, q2 := e.legs[0].qty, e.legs[1].qty
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Position = pos
		rt.Qty1 = q1
		rt.Qty2 = q2
		rt.LastOpened = now
		rt.ModelState = token
		rt.DaysInPosition = 0
	})
	e.notifier.PairStateUpdated(e.stateUpdate())
	e.pf.ReleasePositionLock(e.pairID)
	e.logf("%s 포지션 진입 확정 (%d / %d)", pos, q1, q2)
}

// confirmClose는 두 레그 청산이 확정되었을 때 모델 고정을 풀고 쿨다운을 시작합니다
func (e *Engine) confirmClose(prev domain.PositionSide) {
	if lockable, ok := e.model.(strategy.Lockable); ok {
		lockable.UnlockState()
	}
	e.lastExit = prev
	now := e.now()
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Position = domain.FlatPosition
		rt.Qty1 = 0
		rt.Qty2 = 0
		rt.LastClosed = now
		rt.ModelState = ""
		rt.PnL = 0
		rt.PnLPct = 0
		rt.DaysInPosition = 0
		rt.DaysRemaining = 0
	})
	e.notifier.PairStateUpdated(e.stateUpdate())
	e.pf.ReleasePositionLock(e.pairID)
	e.logf("%s 포지션 청산 확정", prev)
}

func (e *Engine) stateUpdate() domain.PairStateUpdate {
	rt := e.pair.Runtime()
	return domain.PairStateUpdate{
		PairID:     e.pairID,
		Account:    e.account,
		Position:   rt.Position,
		Qty1:       rt.Qty1,
		Qty2:       rt.Qty2,
		LastOpened: rt.LastOpened,
		LastClosed: rt.LastClosed,
		ModelState: rt.ModelState,
		Time:       e.now(),
	}
}

func (e *Engine) onError(ctx context.Context, m ErrorMsg) {
	track, ok := e.orders[m.OrderID]
	if !ok {
		return
	}
	berr := &broker.Error{OrderID: m.OrderID, Code: m.Code, Message: m.Text}

	switch berr.Class() {
	case broker.Informational:
		e.logf("%v", berr)
	case broker.Recoverable:
		leg := e.legs[track.leg]
		if leg.order == track && leg.errorAt.IsZero() {
			leg.errorAt = e.now()
		}
		e.logf("%v (최대 %s 대기)", berr, e.cfg.RecoverableWait)
	default:
		e.failLeg(ctx, track, berr)
	}
}

// failLeg는 복구할 수 없는 주문 에러를 처리합니다.
// 레그를 실패 처리하고 슬롯 예약을 풀고 다른 레그를 정리한 뒤 수동 개입을 요청합니다.
func (e *Engine) failLeg(ctx context.Context, track *orderTrack, cause error) {
	idx := track.leg
	e.cancelTrack(ctx, track)
	e.pf.ReleasePositionLock(e.pairID)

	e.legs[idx].failed = true

	// 다른 레그의 청산 주문은 그대로 두고 최종 상태를 기다립니다
	other := e.legs[1-idx]
	if other.order != nil && other.order.opening {
		e.cancelTrack(ctx, other.order)
	}
	e.closeLeg(ctx, 1-idx, "다른 레그 주문 실패")
	e.syncRuntime()

	e.raiseIntervention(fmt.Sprintf("%s 주문 실패: %v", e.legs[idx].symbol, cause), domain.StatusBlocked)
}

// flattenLoneLeg는 수동 개입 중 남은 단독 레그를 청산합니다.
// 주문이 실패한 레그는 다시 주문하지 않고 재개 명령을 기다립니다.
func (e *Engine) flattenLoneLeg(ctx context.Context) {
	for i, leg := range e.legs {
		if leg.failed {
			continue
		}
		e.closeLeg(ctx, i, "수동 개입 중 단독 레그")
	}
	e.syncRuntime()
}

// checkRecoverableErrors는 대기 시간이 지난 복구 가능 에러 주문을 취소하고 노출된 레그를 정리합니다
func (e *Engine) checkRecoverableErrors(ctx context.Context) {
	now := e.now()
	expired := false
	for i, leg := range e.legs {
		if leg.order == nil || leg.errorAt.IsZero() || now.Sub(leg.errorAt) < e.cfg.RecoverableWait {
			continue
		}
		expired = true
		e.logf("주문 %d 에러가 %s 동안 해소되지 않아 취소합니다", leg.order.id, e.cfg.RecoverableWait)
		e.cancelTrack(ctx, leg.order)

		other := e.legs[1-i]
		if other.order != nil && other.order.opening {
			e.cancelTrack(ctx, other.order)
		}
		e.closeLeg(ctx, 1-i, "다른 레그 주문 시간 초과")
	}
	if !expired {
		return
	}
	e.syncRuntime()
	if !e.hasOrders() {
		e.settle(ctx)
	}
}

// raiseIntervention은 페어를 막고 수동 개입을 요청합니다
func (e *Engine) raiseIntervention(reason string, status domain.CoreStatus) {
	already := e.pair.Runtime().Blocked
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Blocked = true
		rt.BlockReason = reason
		rt.Status = status
	})
	e.logf("수동 개입 필요: %s", reason)
	if already {
		return
	}
	e.notifier.ManualIntervention(domain.InterventionRequest{
		ID:      uuid.NewString(),
		PairID:  e.pairID,
		Account: e.account,
		Reason:  reason,
		Time:    e.now(),
	})
}

// onOpenRequest는 수동 진입 명령을 처리합니다
func (e *Engine) onOpenRequest(ctx context.Context, m OpenPositionMsg) {
	if reason := e.manualRejectReason(); reason != "" {
		e.logf("수동 진입 거부: %s", reason)
		return
	}
	if m.Signal == domain.NoSignal {
		e.logf("수동 진입 거부: 방향이 없습니다")
		return
	}
	if e.legs[0].qty != 0 || e.legs[1].qty != 0 {
		e.logf("수동 진입 거부: 이미 포지션이 있습니다")
		return
	}
	if !e.model.Ready() {
		e.logf("수동 진입 거부: 모델이 준비되지 않았습니다")
		return
	}
	q, ok := e.validQuotes(e.now())
	if !ok {
		e.logf("수동 진입 거부: 유효한 호가가 없습니다")
		return
	}
	cfg := e.pair.Config()
	qty1, qty2 := e.model.Quantities(e.pf.AllocateMargin(cfg.SlotOccupation), cfg.Margin1, cfg.Margin2, q, m.Signal)
	if qty1 < 1 || qty2 < 1 {
		e.logf("수동 진입 거부: 수량이 0입니다")
		return
	}
	_ = e.openPosition(ctx, m.Signal, qty1, qty2, q, "manual")
}

// onCloseRequest는 수동 청산 명령을 처리합니다
func (e *Engine) onCloseRequest(ctx context.Context) {
	if reason := e.manualRejectReason(); reason != "" {
		e.logf("수동 청산 거부: %s", reason)
		return
	}
	if e.legs[0].qty == 0 && e.legs[1].qty == 0 {
		e.logf("수동 청산 거부: 포지션이 없습니다")
		return
	}
	_ = e.closePosition(ctx, "manual")
}

func (e *Engine) manualRejectReason() string {
	switch {
	case e.degraded:
		return "지원하지 않는 모델"
	case e.pair.Runtime().Blocked:
		return "수동 개입 대기 중"
	case e.hasOrders():
		return "미체결 주문이 있습니다"
	case !e.connected():
		return "브로커 연결 없음"
	}
	return ""
}

func zModeFor(sig domain.SignalType) strategy.ZMode {
	switch sig {
	case domain.Long:
		return strategy.ZLong
	case domain.Short:
		return strategy.ZShort
	default:
		return strategy.ZDisplay
	}
}
