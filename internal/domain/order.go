package domain

import "time"

// OrderRequest는 브로커로 보내는 주문 요청 정보를 표현합니다
type OrderRequest struct {
	OrderID  int64     // 연결별로 할당된 주문 ID
	Account  string    // 계좌
	Symbol   string    // 종목
	Side     OrderSide // 매수/매도
	Type     OrderType // 주문 유형 (시장가)
	Quantity int       // 주식 수량
}

// OrderState는 브로커가 보고하는 주문 상태입니다
type OrderState string

const (
	OrderSubmitted OrderState = "Submitted"
	OrderFilled    OrderState = "Filled"
	OrderCancelled OrderState = "Cancelled"
	OrderInactive  OrderState = "Inactive"
)

// OrderStatus는 주문 상태 보고입니다
type OrderStatus struct {
	OrderID      int64
	Account      string
	State        OrderState
	Filled       int
	Remaining    int
	AvgFillPrice float64
}

// Execution은 체결 보고입니다
type Execution struct {
	ExecID   string
	OrderID  int64
	Account  string
	Symbol   string
	Side     OrderSide
	Quantity int
	Price    float64
	Time     time.Time
}

// CommissionReport는 체결별 수수료 보고입니다. 청산 거래는 실현손익을 포함합니다
type CommissionReport struct {
	ExecID      string
	Commission  float64
	RealizedPnL float64
}

// PortfolioItem은 브로커가 보고하는 종목별 보유 현황입니다
type PortfolioItem struct {
	Account       string
	Symbol        string
	Quantity      int // 부호 있는 수량
	MarketValue   float64
	AverageCost   float64
	UnrealizedPnL float64
}
