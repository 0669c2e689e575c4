package trading

import (
	"time"

	"github.com/assist-by/pairs/internal/domain"
)

// Message는 PairTradingCore 큐로 들어가는 메시지입니다
type Message interface {
	Kind() string
}

// TickType은 호가 틱 종류입니다
type TickType int

const (
	TickBid TickType = iota
	TickAsk
	TickLast
)

// TickMsg는 호가 틱입니다
type TickMsg struct {
	Symbol   string
	Type     TickType
	Price    float64
	Exchange string    // 틱을 보낸 거래소 (생존 확인용)
	Time     time.Time // 호가 시각. 비어 있으면 큐에 들어간 시각을 사용합니다
}

// ShortableMsg는 공매도 가능 여부 틱입니다
type ShortableMsg struct {
	Symbol    string
	Shortable bool
	Time      time.Time
}

// TimerMsg는 매 분 발생하는 타이머 틱입니다
type TimerMsg struct {
	Time time.Time
}

// OrderStatusMsg는 주문 상태 보고입니다
type OrderStatusMsg struct {
	Status domain.OrderStatus
}

// ExecutionMsg는 체결 보고입니다
type ExecutionMsg struct {
	Execution domain.Execution
}

// CommissionMsg는 수수료 보고입니다
type CommissionMsg struct {
	Report domain.CommissionReport
}

// PortfolioMsg는 브로커가 보고한 종목 보유 현황입니다
type PortfolioMsg struct {
	Item domain.PortfolioItem
}

// PortfolioEndMsg는 한 회차 보유 현황 보고가 끝났음을 알립니다
type PortfolioEndMsg struct {
	Account string
}

// ErrorMsg는 주문에 대한 브로커 에러입니다
type ErrorMsg struct {
	OrderID int64
	Code    int
	Text    string
}

// OpenPositionMsg는 수동 진입 명령입니다
type OpenPositionMsg struct {
	PairID string
	Signal domain.SignalType
}

// ClosePositionMsg는 수동 청산 명령입니다
type ClosePositionMsg struct {
	PairID string
}

// ResumeMsg는 수동 개입 후 재개 명령입니다
type ResumeMsg struct {
	PairID string
}

// HistoryReadyMsg는 일봉 데이터 수신 완료입니다
type HistoryReadyMsg struct {
	RequestID int64
	Series1   domain.PriceSeries
	Series2   domain.PriceSeries
}

// HistoryFailedMsg는 일봉 데이터 수신 실패입니다
type HistoryFailedMsg struct {
	RequestID int64
	Reason    string
}

// ConnectionMsg는 계좌 연결 상태 변경입니다
type ConnectionMsg struct {
	Account   string
	Connected bool
}

// StartMsg는 엔진 시작 메시지입니다
type StartMsg struct{}

// StopMsg는 엔진 종료 메시지입니다. 워커는 이 메시지 처리 후 종료합니다
type StopMsg struct{}

func (TickMsg) Kind() string          { return "tick" }
func (ShortableMsg) Kind() string     { return "shortable" }
func (TimerMsg) Kind() string         { return "timer" }
func (OrderStatusMsg) Kind() string   { return "order-status" }
func (ExecutionMsg) Kind() string     { return "execution" }
func (CommissionMsg) Kind() string    { return "commission" }
func (PortfolioMsg) Kind() string     { return "portfolio" }
func (PortfolioEndMsg) Kind() string  { return "portfolio-end" }
func (ErrorMsg) Kind() string         { return "error" }
func (OpenPositionMsg) Kind() string  { return "open-position" }
func (ClosePositionMsg) Kind() string { return "close-position" }
func (ResumeMsg) Kind() string        { return "resume" }
func (HistoryReadyMsg) Kind() string  { return "history-ready" }
func (HistoryFailedMsg) Kind() string { return "history-failed" }
func (ConnectionMsg) Kind() string    { return "connection" }
func (StartMsg) Kind() string         { return "start" }
func (StopMsg) Kind() string          { return "stop" }

// HistoryMessage는 히스토리 소스 결과를 엔진 메시지로 바꿉니다
func HistoryMessage(res domain.HistoryResult) Message {
	if res.Err != nil {
		return HistoryFailedMsg{RequestID: res.RequestID, Reason: res.Err.Error()}
	}
	return HistoryReadyMsg{RequestID: res.RequestID, Series1: res.Series1, Series2: res.Series2}
}
