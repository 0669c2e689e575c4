package trading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
)

// evaluate는 현재 상태에서 진입 또는 청산 조건을 다시 검사합니다
func (e *Engine) evaluate(ctx context.Context) {
	if !e.started || e.stopped || e.degraded {
		return
	}
	// 수동 개입 상태는 재개 명령으로만 풀립니다
	if e.pair.Runtime().Blocked {
		return
	}
	if !e.connected() {
		e.setStatus(domain.StatusNotConnected)
		return
	}
	if e.hasOrders() {
		e.setStatus(domain.StatusTransient)
		return
	}

	pos, oneLeg := domain.DerivePosition(e.legs[0].qty, e.legs[1].qty)
	if oneLeg {
		e.setStatus(domain.StatusOneLeg)
		for i := range e.legs {
			e.closeLeg(ctx, i, "한쪽 레그만 보유")
		}
		e.syncRuntime()
		return
	}

	now := e.now()
	cfg := e.pair.Config()
	if e.model.Ready() {
		z := e.model.ZScore(e.quotes(), strategy.ZDisplay)
		e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
			rt.ZScore = z
		})
	}

	switch cfg.TradingStatus {
	case domain.TradingInactive:
		e.setStatus(domain.StatusInactive)
		return
	case domain.TradingMaintain:
		if pos == domain.FlatPosition {
			e.setStatus(domain.StatusMaintainOnly)
			return
		}
	}

	if pos == domain.FlatPosition {
		e.evaluateEntry(ctx, cfg, now)
	} else {
		e.evaluateExit(ctx, cfg, pos, now)
	}
}

// entryPlan은 진입 검사를 모두 통과한 주문 계획입니다
type entryPlan struct {
	signal domain.SignalType
	qty1   int
	qty2   int
	quotes strategy.Quotes
}

func (e *Engine) evaluateEntry(ctx context.Context, cfg domain.PairConfig, now time.Time) {
	status, plan := e.entryGuards(cfg, now)
	if status != "" {
		e.setStatus(status)
		return
	}
	_ = e.openPosition(ctx, plan.signal, plan.qty1, plan.qty2, plan.quotes, "signal")
}

// entryGuards는 진입 전 검사를 순서대로 수행합니다. 막힌 경우 해당 상태를 반환합니다
func (e *Engine) entryGuards(cfg domain.PairConfig, now time.Time) (domain.CoreStatus, entryPlan) {
	var plan entryPlan
	rt := e.pair.Runtime()

	if !e.model.Ready() {
		return domain.StatusNotReady, plan
	}
	if !e.historyFresh(now) {
		return domain.StatusEntryHistory, plan
	}
	q, ok := e.validQuotes(now)
	if !ok {
		return domain.StatusNotReady, plan
	}
	if !e.inHours(cfg.TradingHours, now) || !e.inHours(cfg.EntryHours, now) {
		return domain.StatusEntryTradingHours, plan
	}
	if e.priceSuspicious(now) {
		return domain.StatusSuspicious, plan
	}
	if !e.exchangesAlive() {
		return domain.StatusExchangeDead, plan
	}
	if e.pdtBlocked(cfg, rt.LastClosed, now) {
		return domain.StatusEntryPDT, plan
	}
	if cfg.MinPriceEnabled && (q.Leg1.Mid() < cfg.MinPrice || q.Leg2.Mid() < cfg.MinPrice) {
		return domain.StatusEntryMinPrice, plan
	}
	if !rt.LastClosed.IsZero() && now.Sub(rt.LastClosed) < e.cfg.Cooldown {
		return domain.StatusEntryCooldown, plan
	}

	sig := e.model.EntryLogic(q)
	if sig == domain.NoSignal {
		return domain.StatusEntrySignal, plan
	}
	if !cfg.AllowReversal && !e.resumedToday(now) &&
		domain.SameDay(rt.LastClosed, now, e.loc) && e.model.IsReversal(e.lastExit, sig) {
		return domain.StatusEntryReversal, plan
	}

	budget := e.pf.AllocateMargin(cfg.SlotOccupation)
	qty1, qty2 := e.model.Quantities(budget, cfg.Margin1, cfg.Margin2, q, sig)
	if qty1 < 1 || qty2 < 1 {
		return domain.StatusEntrySlot, plan
	}
	if cfg.MinProfitPotentialEnabled && e.model.ProfitPotential(q, sig, qty1, qty2) < cfg.MinProfitPotential {
		return domain.StatusEntryProfitPotential, plan
	}
	if !e.shortable(sig) {
		return domain.StatusEntryShortable, plan
	}

	return "", entryPlan{signal: sig, qty1: qty1, qty2: qty2, quotes: q}
}

func (e *Engine) evaluateExit(ctx context.Context, cfg domain.PairConfig, pos domain.PositionSide, now time.Time) {
	status, reason := e.exitGuards(cfg, pos, now)
	if status != "" {
		e.setStatus(status)
		return
	}
	_ = e.closePosition(ctx, reason)
}

// exitGuards는 청산 전 검사를 수행합니다. 청산해야 하면 빈 상태와 사유를 반환합니다
func (e *Engine) exitGuards(cfg domain.PairConfig, pos domain.PositionSide, now time.Time) (domain.CoreStatus, string) {
	rt := e.pair.Runtime()

	if !e.model.Ready() {
		return domain.StatusNotReady, ""
	}
	if !e.historyFresh(now) {
		return domain.StatusExitHistory, ""
	}
	q, ok := e.validQuotes(now)
	if !ok {
		return domain.StatusNotReady, ""
	}
	if !e.inHours(cfg.TradingHours, now) || !e.inHours(cfg.ExitHours, now) {
		return domain.StatusExitTradingHours, ""
	}
	if cfg.MaxDaysEnabled && !rt.LastOpened.IsZero() && e.calendarDays(rt.LastOpened, now) >= cfg.MaxDays {
		return "", "max-days"
	}
	if e.priceSuspicious(now) {
		return domain.StatusSuspicious, ""
	}
	if !e.exchangesAlive() {
		return domain.StatusExchangeDead, ""
	}
	if e.pdtBlocked(cfg, rt.LastOpened, now) {
		return domain.StatusExitPDT, ""
	}
	if !e.model.ExitLogic(q, pos) {
		return domain.StatusExitSignal, ""
	}
	if cfg.MinPnLEnabled {
		if pnl, _ := e.unrealized(q); pnl < cfg.MinPnL {
			return domain.StatusExitMinPnL, ""
		}
	}
	return "", "signal"
}

func (e *Engine) quotes() strategy.Quotes {
	return strategy.Quotes{Leg1: e.legs[0].rates.Rates(), Leg2: e.legs[1].rates.Rates()}
}

// validQuotes는 두 레그 호가가 모두 유효할 때만 true를 반환합니다
func (e *Engine) validQuotes(now time.Time) (strategy.Quotes, bool) {
	q := e.quotes()
	ok := q.Leg1.IsValid(now, e.loc, e.cfg.MinQuotePrice) && q.Leg2.IsValid(now, e.loc, e.cfg.MinQuotePrice)
	return q, ok
}

func (e *Engine) inHours(w domain.HoursWindow, now time.Time) bool {
	open, err := w.Contains(now.In(e.loc))
	if err != nil {
		e.logf("거래 시간 설정 오류: %v", err)
		return false
	}
	return open
}

// priceSuspicious는 현재가가 직전 종가 대비 허용 배수를 벗어나면 수동 개입을 요청합니다.
// 오늘 재개한 페어는 검사하지 않습니다.
func (e *Engine) priceSuspicious(now time.Time) bool {
	if e.resumedToday(now) || e.cfg.PriceSanityFactor <= 1 {
		return false
	}
	for _, leg := range e.legs {
		if leg.lastHistClose <= 0 {
			continue
		}
		r := leg.rates.Rates()
		price := r.Last
		if price <= 0 {
			price = r.Mid()
		}
		if price <= 0 {
			continue
		}
		ratio := price / leg.lastHistClose
		if ratio > e.cfg.PriceSanityFactor || ratio < 1/e.cfg.PriceSanityFactor {
			e.raiseIntervention(
				fmt.Sprintf("%s 가격 이상: 현재 %.4f, 직전 종가 %.4f", leg.symbol, price, leg.lastHistClose),
				domain.StatusSuspicious)
			return true
		}
	}
	return false
}

func (e *Engine) exchangesAlive() bool {
	if e.exchanges == nil {
		return true
	}
	for _, leg := range e.legs {
		if !e.exchanges.IsExchangeActive(leg.exchange) {
			return false
		}
	}
	return true
}

// pdtBlocked는 자산이 기준 미만일 때 같은 날 반대 거래를 막습니다
func (e *Engine) pdtBlocked(cfg domain.PairConfig, last time.Time, now time.Time) bool {
	if !cfg.PDTRule || e.pf.Equity() >= e.cfg.PDTMinEquity {
		return false
	}
	return domain.SameDay(last, now, e.loc)
}

// shortable은 공매도할 레그가 공매도 불가로 보고되지 않았는지 확인합니다.
// 보고를 받지 못한 레그는 가능한 것으로 봅니다.
func (e *Engine) shortable(sig domain.SignalType) bool {
	short := e.legs[1]
	if sig == domain.Short {
		short = e.legs[0]
	}
	return !short.shortKnown || short.shortable
}

func (e *Engine) resumedToday(now time.Time) bool {
	return domain.SameDay(e.resumedAt, now, e.loc)
}

func (e *Engine) calendarDays(from, to time.Time) int {
	hours := domain.StartOfDay(to, e.loc).Sub(domain.StartOfDay(from, e.loc)).Hours()
	return int(math.Round(hours / 24))
}

// costBasis는 보유 레그의 매입 원가 합계입니다
func (e *Engine) costBasis() float64 {
	basis := 0.0
	for _, leg := range e.legs {
		basis += math.Abs(float64(leg.qty)) * leg.avgCost
	}
	return basis
}

// unrealized는 롱 레그는 매수호가, 숏 레그는 매도호가로 평가한 미실현 손익입니다
func (e *Engine) unrealized(q strategy.Quotes) (pnl, pct float64) {
	marks := [2]domain.Rates{q.Leg1, q.Leg2}
	for i, leg := range e.legs {
		if leg.qty == 0 || leg.avgCost <= 0 {
			continue
		}
		mark := marks[i].Bid
		if leg.qty < 0 {
			mark = marks[i].Ask
		}
		if mark <= 0 {
			continue
		}
		pnl += float64(leg.qty) * (mark - leg.avgCost)
	}
	if basis := e.costBasis(); basis > 0 {
		pct = pnl / basis * 100
	}
	return pnl, pct
}

func (e *Engine) updateDays() {
	rt := e.pair.Runtime()
	if rt.Position == domain.FlatPosition || rt.LastOpened.IsZero() {
		return
	}
	cfg := e.pair.Config()
	days := e.calendarDays(rt.LastOpened, e.now())
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.DaysInPosition = days
		if cfg.MaxDaysEnabled {
			rt.DaysRemaining = cfg.MaxDays - days
		}
	})
}

// publishPnL은 포지션 보유 중 손익을 갱신하고 발행합니다
func (e *Engine) publishPnL() {
	if e.legs[0].qty == 0 || e.legs[1].qty == 0 || e.model == nil {
		return
	}
	q := e.quotes()
	pnl, pct := e.unrealized(q)
	z := e.model.ZScore(q, strategy.ZDisplay)
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.PnL = pnl
		rt.PnLPct = pct
		rt.ZScore = z
	})
	e.notifier.PnL(domain.PnLUpdate{
		PairID: e.pairID,
		PnL:    pnl,
		PnLPct: pct,
		ZScore: z,
		Time:   e.now(),
	})
}
