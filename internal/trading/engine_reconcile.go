package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
)

func (e *Engine) onPortfolio(ctx context.Context, m PortfolioMsg) {
	idx := e.legIndex(m.Item.Symbol)
	if idx < 0 {
		return
	}
	e.legs[idx].seen = true
	e.reconcileLeg(idx, m.Item.Quantity, m.Item.AverageCost)
}

// onPortfolioEnd는 이번 회차에 보고되지 않은 레그를 수량 0으로 대사합니다
func (e *Engine) onPortfolioEnd(ctx context.Context) {
	for i, leg := range e.legs {
		if !leg.seen {
			e.reconcileLeg(i, 0, 0)
		}
	}
	for _, leg := range e.legs {
		leg.seen = false
	}
	e.evaluate(ctx)
}

// reconcileLeg는 브로커가 보고한 수량과 내부 수량을 맞춥니다. 재평가는 회차가 끝난 뒤 한 번만 합니다.
// 마지막 주문/체결 후 ReconcileLock 동안은 보고가 늦게 반영될 수 있으므로 대사하지 않습니다.
func (e *Engine) reconcileLeg(idx int, external int, avgCost float64) {
	leg := e.legs[idx]
	if leg.qty == external {
		if external != 0 && avgCost > 0 {
			leg.avgCost = avgCost
		}
		return
	}

	now := e.now()
	if e.hasOrders() || (!e.lastActivity.IsZero() && now.Sub(e.lastActivity) < e.cfg.ReconcileLock) {
		return
	}

	other := e.legs[1-idx]
	internal := leg.qty
	switch {
	case internal == 0:
		leg.qty = external
		leg.avgCost = avgCost
		e.logf("%s 외부 포지션 반영: %d", leg.symbol, external)
		if other.qty != 0 {
			e.adoptOpen(now)
		}
	case external == 0:
		leg.qty = 0
		leg.avgCost = 0
		e.logf("%s 외부 청산 반영 (내부 %d)", leg.symbol, internal)
		if other.qty == 0 {
			e.syncRuntime()
			e.confirmClose(e.pair.Runtime().Position)
		}
	case (internal > 0) == (external > 0):
		leg.qty = external
		if avgCost > 0 {
			leg.avgCost = avgCost
		}
		e.logf("%s 수량 동기화: %d -> %d", leg.symbol, internal, external)
	default:
		e.raiseIntervention(fmt.Sprintf("%s 수량 불일치: 내부 %d, 브로커 %d", leg.symbol, internal, external),
			domain.StatusBlocked)
		return
	}

	e.syncRuntime()
}

// adoptOpen은 외부에서 만들어진 두 레그 포지션을 페어 포지션으로 받아들입니다
func (e *Engine) adoptOpen(now time.Time) {
	pos, oneLeg := domain.DerivePosition(e.legs[0].qty, e.legs[1].qty)
	if oneLeg || pos == domain.FlatPosition {
		return
	}
	token := ""
	if lockable, ok := e.model.(strategy.Lockable); ok {
		token = lockable.LockState()
	}
	q1, q2 := e.legs[0].qty, e.legs[1].qty
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Position = pos
		rt.Qty1 = q1
		rt.Qty2 = q2
		if rt.LastOpened.IsZero() {
			rt.LastOpened = now
		}
		rt.ModelState = token
	})
	e.notifier.PairStateUpdated(e.stateUpdate())
	e.logf("외부 %s 포지션 반영 (%d / %d)", pos, q1, q2)
}

// onResume은 수동 개입 상태를 풀고 진행 중이던 주문/에러 상태를 모두 초기화합니다
func (e *Engine) onResume(ctx context.Context) {
	if !e.pair.Runtime().Blocked {
		e.logf("재개 무시: 수동 개입 상태가 아닙니다")
		return
	}

	for _, leg := range e.legs {
		if leg.order != nil {
			e.cancelTrack(ctx, leg.order)
		}
		leg.opening = 0
		leg.closing = 0
		leg.errorAt = time.Time{}
		leg.failed = false
		leg.seen = false
	}
	e.resetOrders()
	if e.legs[0].qty == 0 && e.legs[1].qty == 0 {
		e.pf.ReleasePositionLock(e.pairID)
	}

	now := e.now()
	e.resumedAt = now
	e.histPending = false
	e.histAttempt = time.Time{}
	e.pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Blocked = false
		rt.BlockReason = ""
		rt.Status = domain.StatusPending
	})
	e.syncRuntime()
	e.notifier.InterventionCleared(e.pairID, e.account)
	e.logf("재개")

	e.maintainHistory(ctx)
	e.evaluate(ctx)
}
