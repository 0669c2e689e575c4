package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction은 한 레그의 체결 확정 거래 기록입니다
type Transaction struct {
	PairID      string
	Account     string
	Symbol      string
	Side        OrderSide
	Quantity    int
	Price       float64 // 평균 체결가
	QuotePrice  float64 // 주문 직전 호가 (슬리피지 계산용)
	Commission  decimal.Decimal
	RealizedPnL decimal.Decimal
	FillLatency time.Duration
	OrderID     int64
	Opening     bool
	Time        time.Time
}

// Slippage는 주문 직전 호가 대비 불리하게 체결된 금액을 반환합니다
func (t Transaction) Slippage() float64 {
	if t.QuotePrice <= 0 {
		return 0
	}
	return (t.Price - t.QuotePrice) * float64(t.Side.Sign()) * float64(t.Quantity)
}

// HistoryAction은 페어 단위 진입/청산 이력 종류입니다
type HistoryAction string

const (
	ActionOpened HistoryAction = "opened"
	ActionClosed HistoryAction = "closed"
)

// HistoryRecord는 페어 단위 진입/청산 이력입니다
type HistoryRecord struct {
	ID         string
	PairID     string
	Account    string
	Symbol1    string
	Symbol2    string
	Action     HistoryAction
	Position   PositionSide
	ZScore     float64
	PnL        decimal.Decimal
	PnLPct     float64
	Commission decimal.Decimal
	Reason     string
	Time       time.Time
}

// PnLUpdate는 포지션 보유 중 주기적으로 발행하는 손익 정보입니다
type PnLUpdate struct {
	PairID string
	PnL    float64
	PnLPct float64
	ZScore float64
	Time   time.Time
}

// InterventionRequest는 수동 개입 요청입니다
type InterventionRequest struct {
	ID      string
	PairID  string
	Account string
	Reason  string
	Time    time.Time
}

// PairStateUpdate는 포지션 진입/청산 시 저장해야 할 페어 상태입니다
type PairStateUpdate struct {
	PairID     string
	Account    string
	Position   PositionSide
	Qty1       int
	Qty2       int
	LastOpened time.Time
	LastClosed time.Time
	ModelState string
	Time       time.Time
}
