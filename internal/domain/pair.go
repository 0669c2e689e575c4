package domain

import (
	"fmt"
	"time"
)

// HoursWindow는 "HH:MM" 형식의 하루 중 시간 구간입니다.
// Start와 End가 모두 비어 있으면 하루 종일 열려 있는 것으로 봅니다.
type HoursWindow struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// Contains는 t(이미 페어 시간대로 변환된 시각)가 구간 안에 있는지 확인합니다.
// 주말은 항상 닫혀 있습니다.
func (w HoursWindow) Contains(t time.Time) (bool, error) {
	if IsWeekend(t) {
		return false, nil
	}
	if w.Start == "" && w.End == "" {
		return true, nil
	}
	start, err := parseClock(w.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false, err
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= start && minute < end, nil
}

// Validate는 구간 형식을 검사합니다
func (w HoursWindow) Validate() error {
	if w.Start == "" && w.End == "" {
		return nil
	}
	start, err := parseClock(w.Start)
	if err != nil {
		return err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("시작 시각(%s)이 종료 시각(%s)보다 늦습니다", w.Start, w.End)
	}
	return nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("잘못된 시각 형식 %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsWeekend는 토요일 또는 일요일인지 확인합니다
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PairConfig는 사용자가 설정하는 페어 정보입니다
type PairConfig struct {
	ID        string `mapstructure:"id"`
	Symbol1   string `mapstructure:"symbol1"`
	Symbol2   string `mapstructure:"symbol2"`
	Exchange1 string `mapstructure:"exchange1"` // 1번 종목 상장 거래소
	Exchange2 string `mapstructure:"exchange2"`
	Timezone  string `mapstructure:"timezone"`

	Model       string                 `mapstructure:"model"`
	ModelParams map[string]interface{} `mapstructure:"model_params"`

	TradingHours HoursWindow `mapstructure:"trading_hours"`
	EntryHours   HoursWindow `mapstructure:"entry_hours"`
	ExitHours    HoursWindow `mapstructure:"exit_hours"`

	Margin1        float64 `mapstructure:"margin1"` // 1번 레그 증거금률 (%)
	Margin2        float64 `mapstructure:"margin2"`
	SlotOccupation float64 `mapstructure:"slot_occupation"`

	MaxDaysEnabled            bool    `mapstructure:"max_days_enabled"`
	MaxDays                   int     `mapstructure:"max_days"`
	MinPriceEnabled           bool    `mapstructure:"min_price_enabled"`
	MinPrice                  float64 `mapstructure:"min_price"`
	MinPnLEnabled             bool    `mapstructure:"min_pnl_enabled"`
	MinPnL                    float64 `mapstructure:"min_pnl"`
	MinProfitPotentialEnabled bool    `mapstructure:"min_profit_potential_enabled"`
	MinProfitPotential        float64 `mapstructure:"min_profit_potential"`

	AllowReversal bool `mapstructure:"allow_reversal"`
	PDTRule       bool `mapstructure:"pdt_rule"` // 패턴 데이 트레이딩 보호

	TradingStatus TradingStatus `mapstructure:"trading_status"`
}

// Location은 페어 시간대를 반환합니다. 비어 있으면 America/New_York을 사용합니다
func (c PairConfig) Location() (*time.Location, error) {
	tz := c.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	return time.LoadLocation(tz)
}

// Symbols는 두 종목 심볼을 반환합니다
func (c PairConfig) Symbols() (string, string) {
	return c.Symbol1, c.Symbol2
}

// PairRuntime은 엔진이 갱신하는 페어 실행 상태입니다
type PairRuntime struct {
	Status         CoreStatus
	Position       PositionSide
	Qty1           int // 부호 있는 확정 수량
	Qty2           int
	PendingOrders  bool
	LastOpened     time.Time
	LastClosed     time.Time
	ModelState     string // 모델 잠금 토큰
	ZScore         float64
	PnL            float64
	PnLPct         float64
	DaysInPosition int
	DaysRemaining  int
	Blocked        bool
	BlockReason    string
	Degraded       bool
}

// IsPositioned는 두 레그 중 하나라도 수량이 있는지 확인합니다
func (r PairRuntime) IsPositioned() bool {
	return r.Qty1 != 0 || r.Qty2 != 0
}
