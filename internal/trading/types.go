package trading

import (
	"context"
	"time"

	"github.com/assist-by/pairs/internal/domain"
)

// Config는 엔진 동작 상수입니다
type Config struct {
	ReconcileLock     time.Duration // 마지막 주문/체결 후 포지션 대사를 미루는 시간
	PriceSanityFactor float64       // 직전 종가 대비 허용 가격 배수
	Cooldown          time.Duration // 청산 후 재진입 대기 시간
	RecoverableWait   time.Duration // 복구 가능 에러 대기 시간
	HistoryRetry      time.Duration // 히스토리 요청 재시도 간격
	HistoryMaxAgeDays int           // 마지막 일봉 허용 나이 (일)
	HistoryDays       int           // 요청할 일봉 수
	PDTMinEquity      float64       // 패턴 데이 트레이딩 보호가 풀리는 자산
	TickMaxAge        time.Duration
	GenericTickMaxAge time.Duration
	MessageMaxAge     time.Duration
	MinQuotePrice     float64 // 호가 유효성 최소 가격
}

// DefaultConfig는 기본 엔진 상수를 반환합니다
func DefaultConfig() Config {
	return Config{
		ReconcileLock:     5 * time.Minute,
		PriceSanityFactor: 1.99,
		Cooldown:          120 * time.Second,
		RecoverableWait:   120 * time.Second,
		HistoryRetry:      11 * time.Minute,
		HistoryMaxAgeDays: 5,
		HistoryDays:       250,
		PDTMinEquity:      25000,
		TickMaxAge:        2 * time.Second,
		GenericTickMaxAge: 5 * time.Second,
		MessageMaxAge:     30 * time.Second,
		MinQuotePrice:     0.01,
	}
}

// HistoryRequester는 일봉 데이터 소스입니다. 결과는 HistoryReadyMsg/HistoryFailedMsg로 돌아옵니다
type HistoryRequester interface {
	AllocRequestID() int64
	RequestData(ctx context.Context, req domain.HistoryRequest) error
}

// ExchangeOracle은 거래소 생존 여부를 알려줍니다
type ExchangeOracle interface {
	IsExchangeActive(venue string) bool
}

// Tracker는 엔진이 제출한 주문과 요청 ID를 필터에 등록하고 끝난 ID를 지웁니다
type Tracker interface {
	TrackOrder(orderID int64)
	TrackRequest(requestID int64)
	ForgetOrder(orderID int64, execIDs []string)
	ForgetRequest(requestID int64)
}

type nopTracker struct{}

func (nopTracker) TrackOrder(int64)            {}
func (nopTracker) TrackRequest(int64)          {}
func (nopTracker) ForgetOrder(int64, []string) {}
func (nopTracker) ForgetRequest(int64)         {}

// ExecutionError는 주문 제출 중 발생한 오류를 나타냅니다
type ExecutionError struct {
	Phase string
	Err   error
}

func (e *ExecutionError) Error() string {
	return "주문 실행 실패 (" + e.Phase + "): " + e.Err.Error()
}

// Unwrap은 내부 에러를 반환합니다
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
