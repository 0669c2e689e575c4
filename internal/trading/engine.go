package trading

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/notification"
	"github.com/assist-by/pairs/internal/portfolio"
	"github.com/assist-by/pairs/internal/strategy"
)

// legState는 한 레그의 호가와 포지션 상태입니다.
// opening과 closing은 동시에 0이 아닐 수 없고 레그당 미체결 주문은 하나뿐입니다.
type legState struct {
	symbol   string
	exchange string
	rates    *domain.MarketRates

	shortable  bool
	shortKnown bool

	qty     int // 부호 있는 확정 수량
	opening int // 진입 중인 부호 있는 수량
	closing int // 청산 중인 부호 있는 수량
	order   *orderTrack
	errorAt time.Time // 복구 가능 에러 최초 수신 시각
	failed  bool      // 복구 불가 에러로 주문이 실패한 레그

	avgCost       float64
	lastHistClose float64
	seen          bool // 이번 회차 보유 현황 보고에 포함되었는지
}

// Deps는 엔진이 사용하는 외부 협력자 묶음입니다
type Deps struct {
	Portfolio *portfolio.Portfolio
	Pair      *portfolio.Pair
	Models    *strategy.Registry
	Brokers   *broker.Registry
	History   HistoryRequester
	Exchanges ExchangeOracle
	Notifier  notification.Sink
	Tracker   Tracker
	Now       func() time.Time
}

// Engine은 페어 하나의 주문 수명주기 상태 머신입니다.
// 모든 메서드는 PairTradingCore 워커 하나에서만 호출되므로 내부 잠금이 없습니다.
type Engine struct {
	cfg       Config
	pf        *portfolio.Portfolio
	pair      *portfolio.Pair
	models    *strategy.Registry
	brokers   *broker.Registry
	history   HistoryRequester
	exchanges ExchangeOracle
	notifier  notification.Sink
	tracker   Tracker
	now       func() time.Time

	pairID  string
	account string
	loc     *time.Location
	model   strategy.Model
	legs    [2]*legState
	orders  map[int64]*orderTrack
	execs   map[string]int64 // 체결 ID -> 주문 ID

	started  bool
	stopped  bool
	degraded bool

	histRequestID int64
	histPending   bool
	histAttempt   time.Time
	histLoaded    time.Time

	lastActivity time.Time // 마지막 주문 제출/체결 시각
	lastExit     domain.PositionSide
	resumedAt    time.Time
}

// NewEngine은 페어 엔진을 생성합니다
func NewEngine(cfg Config, deps Deps) *Engine {
	pc := deps.Pair.Config()
	e := &Engine{
		cfg:       cfg,
		pf:        deps.Portfolio,
		pair:      deps.Pair,
		models:    deps.Models,
		brokers:   deps.Brokers,
		history:   deps.History,
		exchanges: deps.Exchanges,
		notifier:  deps.Notifier,
		tracker:   deps.Tracker,
		now:       deps.Now,
		pairID:    pc.ID,
		account:   deps.Portfolio.Account,
		loc:       time.UTC,
		lastExit:  domain.FlatPosition,
	}
	if e.notifier == nil {
		e.notifier = notification.Nop{}
	}
	if e.tracker == nil {
		e.tracker = nopTracker{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.legs[0] = &legState{symbol: pc.Symbol1, exchange: pc.Exchange1, rates: domain.NewMarketRates(pc.Symbol1), shortable: true}
	e.legs[1] = &legState{symbol: pc.Symbol2, exchange: pc.Exchange2, rates: domain.NewMarketRates(pc.Symbol2), shortable: true}
	e.resetOrders()
	return e
}

// PairID는 엔진이 담당하는 페어 식별자입니다
func (e *Engine) PairID() string {
	return e.pairID
}

// Rates는 레그 호가 스냅샷을 반환합니다. 다른 고루틴에서 읽어도 안전합니다
func (e *Engine) Rates(leg int) domain.Rates {
	return e.legs[leg].rates.Rates()
}

// Model은 현재 트레이딩 모델을 반환합니다
func (e *Engine) Model() strategy.Model {
	return e.model
}

// Handle은 메시지 하나를 처리합니다
func (e *Engine) Handle(ctx context.Context, msg Message) {
	if _, ok := msg.(StartMsg); !ok && (!e.started || e.stopped) {
		return
	}

	switch m := msg.(type) {
	case StartMsg:
		e.start(ctx)
	case StopMsg:
		e.stop()
	case TickMsg:
		e.onTick(ctx, m)
	case ShortableMsg:
		e.onShortable(ctx, m)
	case TimerMsg:
		e.onTimer(ctx)
	case PortfolioMsg:
		e.onPortfolio(ctx, m)
	case PortfolioEndMsg:
		e.onPortfolioEnd(ctx)
	case OrderStatusMsg:
		e.onOrderStatus(ctx, m)
	case ExecutionMsg:
		e.onExecution(m)
	case CommissionMsg:
		e.onCommission(m)
	case ErrorMsg:
		e.onError(ctx, m)
	case OpenPositionMsg:
		e.onOpenRequest(ctx, m)
	case ClosePositionMsg:
		e.onCloseRequest(ctx)
	case ResumeMsg:
		e.onResume(ctx)
	case HistoryReadyMsg:
		e.onHistoryReady(ctx, m)
	case HistoryFailedMsg:
		e.onHistoryFailed(m)
	case ConnectionMsg:
		e.onConnection(ctx, m)
	default:
		log.Printf("[%s] 알 수 없는 메시지: %T", e.pairID, msg)
	}
}

func (e *Engine) start(ctx context.Context) {
	cfg := e.pair.Config()

	loc, err := cfg.Location()
	if err != nil {
		e.logf("시간대 로드 실패, UTC 사용: %v", err)
		loc = time.UTC
	}
	e.loc = loc

	model, err := strategy.CreateModelFromConfig(e.models, cfg)
	e.model = model
	e.started = true
	e.stopped = false
	if err != nil {
		e.degraded = true
		e.logf("모델 설정 오류로 거래하지 않습니다: %v", err)
		e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
			rt.Degraded = true
			rt.Status = domain.StatusDegraded
		})
		return
	}

	rt := e.pair.Runtime()
	e.legs[0].qty = rt.Qty1
	e.legs[1].qty = rt.Qty2
	for _, leg := range e.legs {
		leg.opening, leg.closing, leg.order, leg.errorAt = 0, 0, nil, time.Time{}
	}
	e.resetOrders()
	e.histPending = false
	e.histAttempt = time.Time{}
	if rt.Blocked {
		e.setStatus(domain.StatusBlocked)
	} else {
		e.setStatus(domain.StatusPending)
	}
	e.syncRuntime()

	e.logf("엔진 시작: 모델=%s, 포지션=%s (%d / %d)", e.model.Name(), rt.Position, rt.Qty1, rt.Qty2)

	if conn, ok := e.connection(); ok && conn.IsConnected() {
		e.subscribe(ctx, conn)
	}
	e.maintainHistory(ctx)
}

func (e *Engine) stop() {
	e.stopped = true
	e.setStatus(domain.StatusInactive)
	e.logf("엔진 종료")
}

func (e *Engine) onTick(ctx context.Context, m TickMsg) {
	idx := e.legIndex(m.Symbol)
	if idx < 0 || m.Price <= 0 {
		return
	}
	at := m.Time
	if at.IsZero() {
		at = e.now()
	}
	rates := e.legs[idx].rates
	switch m.Type {
	case TickBid:
		rates.SetBid(m.Price, at)
	case TickAsk:
		rates.SetAsk(m.Price, at)
	case TickLast:
		rates.SetLast(m.Price, at)
	}
	e.evaluate(ctx)
}

func (e *Engine) onShortable(ctx context.Context, m ShortableMsg) {
	idx := e.legIndex(m.Symbol)
	if idx < 0 {
		return
	}
	e.legs[idx].shortable = m.Shortable
	e.legs[idx].shortKnown = true
	e.evaluate(ctx)
}

func (e *Engine) onTimer(ctx context.Context) {
	if e.degraded {
		return
	}
	e.checkRecoverableErrors(ctx)
	e.updateDays()
	e.publishPnL()
	e.maintainHistory(ctx)
	e.evaluate(ctx)
}

func (e *Engine) onConnection(ctx context.Context, m ConnectionMsg) {
	if !m.Connected {
		e.logf("계좌 연결 끊김: %s", m.Account)
		e.setStatus(domain.StatusNotConnected)
		return
	}
	if conn, ok := e.connection(); ok {
		e.subscribe(ctx, conn)
	}
	e.evaluate(ctx)
}

func (e *Engine) subscribe(ctx context.Context, conn *broker.Connection) {
	if err := conn.SubscribeQuotes(ctx, e.legs[0].symbol, e.legs[1].symbol); err != nil {
		e.logf("호가 구독 실패: %v", err)
	}
}

// maintainHistory는 오늘 데이터가 없고 대기 중인 요청도 없으면 재시도 간격을 지켜 일봉을 요청합니다
func (e *Engine) maintainHistory(ctx context.Context) {
	if e.degraded || e.history == nil || e.histPending {
		return
	}
	now := e.now()
	if e.historyFresh(now) {
		return
	}
	if !e.histAttempt.IsZero() && now.Sub(e.histAttempt) < e.cfg.HistoryRetry {
		return
	}

	days := e.cfg.HistoryDays
	if lb := e.model.Lookback(); lb > days {
		days = lb
	}
	if e.histRequestID != 0 {
		e.tracker.ForgetRequest(e.histRequestID)
	}
	id := e.history.AllocRequestID()
	e.tracker.TrackRequest(id)
	e.histRequestID = id
	e.histPending = true
	e.histAttempt = now

	req := domain.HistoryRequest{
		ID:      id,
		PairID:  e.pairID,
		Symbol1: e.legs[0].symbol,
		Symbol2: e.legs[1].symbol,
		Days:    days,
	}
	if err := e.history.RequestData(ctx, req); err != nil {
		e.histPending = false
		e.logf("히스토리 요청 실패: %v", err)
	}
}

func (e *Engine) historyFresh(now time.Time) bool {
	return e.model != nil && e.model.Ready() && domain.SameDay(e.histLoaded, now, e.loc)
}

func (e *Engine) onHistoryReady(ctx context.Context, m HistoryReadyMsg) {
	if m.RequestID != e.histRequestID {
		return
	}
	e.tracker.ForgetRequest(m.RequestID)
	e.histPending = false
	now := e.now()

	if err := domain.ValidatePairSeries(m.Series1, m.Series2, now, e.cfg.HistoryMaxAgeDays); err != nil {
		e.raiseIntervention(err.Error(), domain.StatusBlocked)
		return
	}

	if lockable, ok := e.model.(strategy.Lockable); ok {
		if token := e.pair.Runtime().ModelState; token != "" {
			if err := lockable.RestoreState(token); err != nil {
				e.logf("모델 상태 복원 실패 (%s): %v", token, err)
			}
		}
	}

	if err := e.model.SetPrices(m.Series1.Closes(), m.Series2.Closes()); err != nil {
		e.logf("모델 가격 설정 실패: %v", err)
		return
	}
	e.histLoaded = now
	last1, _ := m.Series1.Last()
	last2, _ := m.Series2.Last()
	e.legs[0].lastHistClose = last1.Close
	e.legs[1].lastHistClose = last2.Close
	e.logf("일봉 %d개 로드 완료 (마지막 %s)", len(m.Series1), last1.DateKey())

	e.evaluate(ctx)
}

func (e *Engine) onHistoryFailed(m HistoryFailedMsg) {
	if m.RequestID != e.histRequestID {
		return
	}
	e.tracker.ForgetRequest(m.RequestID)
	e.histPending = false
	e.logf("히스토리 수신 실패: %s", m.Reason)
}

func (e *Engine) connection() (*broker.Connection, bool) {
	if e.brokers == nil {
		return nil, false
	}
	return e.brokers.Lookup(e.account)
}

func (e *Engine) connected() bool {
	conn, ok := e.connection()
	return ok && conn.IsConnected()
}

func (e *Engine) legIndex(symbol string) int {
	for i, leg := range e.legs {
		if leg.symbol == symbol {
			return i
		}
	}
	return -1
}

func (e *Engine) hasOrders() bool {
	return e.legs[0].order != nil || e.legs[1].order != nil
}

func (e *Engine) resetOrders() {
	for _, track := range e.orders {
		e.forgetOrder(track)
	}
	e.orders = make(map[int64]*orderTrack)
	e.execs = make(map[string]int64)
}

func (e *Engine) setStatus(status domain.CoreStatus) {
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Status = status
	})
}

// syncRuntime은 레그 수량과 미체결 여부를 페어 실행 상태에 반영합니다
func (e *Engine) syncRuntime() {
	q1, q2 := e.legs[0].qty, e.legs[1].qty
	pending := e.hasOrders()
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Qty1 = q1
		rt.Qty2 = q2
		rt.PendingOrders = pending
	})
}

func (e *Engine) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", e.pairID, msg)
	e.notifier.Log(e.pairID, msg)
}
