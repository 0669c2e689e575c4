package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
)

// scriptedModel은 SetPrices에 들어온 거래일 수로 정해진 시그널을 냅니다
type scriptedModel struct {
	strategy.BaseModel
	day     int
	entries map[int]domain.SignalType
	exits   map[int]bool
}

func newScriptedModel(entries map[int]domain.SignalType, exits map[int]bool) *scriptedModel {
	return &scriptedModel{
		BaseModel: strategy.BaseModel{ModelName: "scripted"},
		entries:   entries,
		exits:     exits,
	}
}

func (m *scriptedModel) Lookback() int { return 2 }

func (m *scriptedModel) SetPrices(s1, s2 []float64) error {
	m.day = len(s1)
	m.SetReady(true)
	return nil
}

func (m *scriptedModel) EntryLogic(strategy.Quotes) domain.SignalType { return m.entries[m.day] }

func (m *scriptedModel) ExitLogic(strategy.Quotes, domain.PositionSide) bool { return m.exits[m.day] }

func (m *scriptedModel) ZScore(strategy.Quotes, strategy.ZMode) float64 { return 0 }

func (m *scriptedModel) ProfitPotential(strategy.Quotes, domain.SignalType, int, int) float64 {
	return 0
}

func (m *scriptedModel) Quantities(float64, float64, float64, strategy.Quotes, domain.SignalType) (int, int) {
	return 10, 20
}

func series(closes ...float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ps := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		ps[i] = domain.DailyBar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return ps
}

func flat(n int, price float64) domain.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return series(closes...)
}

func TestEngineRun(t *testing.T) {
	s1 := series(100, 100, 100, 100, 101, 102, 105, 104, 105, 106)
	s2 := flat(len(s1), 50)
	model := newScriptedModel(
		map[int]domain.SignalType{3: domain.Long, 7: domain.Short},
		map[int]bool{6: true},
	)

	engine, err := NewEngine("ko-pep", model, s1, s2, Config{InitialBalance: 10000, Margin1: 25, Margin2: 25})
	require.NoError(t, err)
	result, err := engine.Run()
	require.NoError(t, err)

	require.Len(t, result.Trades, 2)

	long := result.Trades[0]
	assert.Equal(t, domain.LongPosition, long.Side)
	assert.Equal(t, SignalExit, long.ExitReason)
	assert.Equal(t, 3, long.HoldingDays)
	assert.InDelta(t, 50, long.PnL, 1e-9)
	assert.InDelta(t, 0.5, long.ProfitPct, 1e-9)

	short := result.Trades[1]
	assert.Equal(t, domain.ShortPosition, short.Side)
	assert.Equal(t, EndOfBacktest, short.ExitReason)
	assert.InDelta(t, -20, short.PnL, 1e-9)

	assert.Equal(t, "ko-pep", result.PairID)
	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.InDelta(t, 50, result.WinRate, 1e-9)
	assert.InDelta(t, 10030, result.FinalBalance, 1e-9)
	assert.InDelta(t, 0.3, result.CumulativeReturn, 1e-9)
	assert.InDelta(t, 2.5, result.ProfitFactor, 1e-9)
	assert.InDelta(t, 20.0/10050*100, result.MaxDrawdown, 1e-9)
	assert.InDelta(t, 0.3, result.MonthlyReturns["2024-01"], 1e-9)
}

func TestEngineMaxDays(t *testing.T) {
	s1 := series(100, 100, 100, 100, 99, 98, 97, 96)
	s2 := flat(len(s1), 50)
	model := newScriptedModel(map[int]domain.SignalType{3: domain.Long}, nil)

	engine, err := NewEngine("ko-pep", model, s1, s2, Config{InitialBalance: 10000, MaxDays: 2, FeeRate: 0.001})
	require.NoError(t, err)
	result, err := engine.Run()
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.Equal(t, MaxDaysExit, trade.ExitReason)
	assert.Equal(t, s1[5].Date, trade.ExitTime)
	// 진입 (10*100 + 20*50)*0.001 + 청산 (10*98 + 20*50)*0.001
	assert.InDelta(t, 3.98, trade.Commission, 1e-9)
	assert.InDelta(t, -20-3.98, trade.PnL, 1e-9)
}

func TestNewEngineRejectsShortSeries(t *testing.T) {
	model := newScriptedModel(nil, nil)

	_, err := NewEngine("p", model, flat(2, 10), flat(2, 10), Config{InitialBalance: 1})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewEngine("p", model, flat(5, 10), flat(4, 10), Config{InitialBalance: 1})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewEngine("p", model, flat(5, 10), flat(5, 10), Config{})
	assert.Error(t, err)
}

func TestCalculateDrawdownStats(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []EquityPoint{
		{Timestamp: start, Equity: 100},
		{Timestamp: start.AddDate(0, 0, 1), Equity: 90},
		{Timestamp: start.AddDate(0, 0, 2), Equity: 95},
		{Timestamp: start.AddDate(0, 0, 3), Equity: 110},
	}

	maxDD, avgDD, duration := CalculateDrawdownStats(points)
	assert.InDelta(t, 10, maxDD, 1e-9)
	assert.InDelta(t, 7.5, avgDD, 1e-9)
	assert.Equal(t, 2*24*time.Hour, duration)

	maxDD, _, _ = CalculateDrawdownStats(nil)
	assert.Zero(t, maxDD)
}

func TestCalculateStatsNoTrades(t *testing.T) {
	account := &Account{InitialBalance: 1000, Balance: 1000}
	result := CalculateStats(nil, account)
	assert.Zero(t, result.TotalTrades)
	assert.Zero(t, result.CumulativeReturn)
	assert.NotNil(t, result.MonthlyReturns)
}
