package backtest

import (
	"time"

	"github.com/assist-by/pairs/internal/domain"
)

// Result는 백테스트 결과를 저장하는 구조체입니다
type Result struct {
	PairID               string
	TotalTrades          int                // 총 거래 횟수
	WinningTrades        int                // 승리 거래 횟수
	LosingTrades         int                // 패배 거래 횟수
	WinRate              float64            // 승률 (%)
	CumulativeReturn     float64            // 누적 수익률 (%)
	AverageReturn        float64            // 평균 수익률 (%)
	AnnualizedReturn     float64            // 연율화 수익률 (%)
	ProfitFactor         float64            // 총 이익 / 총 손실
	AvgWinAmount         float64            // 평균 이익 거래 수익률 (%)
	AvgLossAmount        float64            // 평균 손실 거래 손실률 (%)
	AvgHoldingDays       float64            // 평균 보유 거래일 수
	MaxConsecutiveWins   int                // 최대 연속 승리
	MaxConsecutiveLosses int                // 최대 연속 패배
	MaxDrawdown          float64            // 최대 낙폭 (%)
	AvgDrawdown          float64            // 평균 낙폭 (%)
	MonthlyReturns       map[string]float64 // 월별 수익률 (%), 키는 "2006-01"
	EquityCurve          []EquityPoint
	Trades               []Trade
	StartTime            time.Time
	EndTime              time.Time
	FinalBalance         float64
}

// Trade는 청산된 페어 거래 한 건입니다
type Trade struct {
	Side        domain.PositionSide
	EntryTime   time.Time
	ExitTime    time.Time
	Qty1        int
	Qty2        int
	EntryPrice1 float64
	EntryPrice2 float64
	ExitPrice1  float64
	ExitPrice2  float64
	HoldingDays int        // 보유 거래일 수
	Commission  float64    // 진입과 청산 수수료 합계
	PnL         float64    // 수수료 차감 후 손익
	ProfitPct   float64    // 예산 대비 수익률 (%)
	ExitReason  ExitReason // 종료 이유
}

// ExitReason은 포지션 청산 이유를 정의합니다
type ExitReason int

const (
	NoExit        ExitReason = iota // 청산되지 않음
	SignalExit                      // 모델 청산 신호
	MaxDaysExit                     // 최대 보유일 초과
	EndOfBacktest                   // 백테스트 종료
)

// String은 청산 이유를 문자열로 변환합니다
func (r ExitReason) String() string {
	switch r {
	case SignalExit:
		return "청산 신호"
	case MaxDaysExit:
		return "최대 보유일"
	case EndOfBacktest:
		return "백테스트 종료"
	default:
		return "알 수 없음"
	}
}

// EquityPoint는 거래일별 자산 기록입니다
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// position은 백테스트 중 열린 페어 포지션입니다
type position struct {
	side        domain.PositionSide
	entryIndex  int
	entryTime   time.Time
	qty1, qty2  int
	price1      float64
	price2      float64
	entryCharge float64
}

// Account는 백테스트 계정 상태를 나타냅니다
type Account struct {
	InitialBalance float64       // 초기 잔고
	Balance        float64       // 실현 손익 반영 잔고
	EquityHistory  []EquityPoint // 거래일별 자산
}
