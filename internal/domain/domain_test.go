package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePosition(t *testing.T) {
	tests := []struct {
		name       string
		qty1, qty2 int
		want       PositionSide
		wantOneLeg bool
	}{
		{"둘 다 0", 0, 0, FlatPosition, false},
		{"롱", 100, -50, LongPosition, false},
		{"숏", -100, 50, ShortPosition, false},
		{"1번 레그만", 100, 0, FlatPosition, true},
		{"2번 레그만", 0, -20, FlatPosition, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, oneLeg := DerivePosition(tt.qty1, tt.qty2)
			assert.Equal(t, tt.want, side)
			assert.Equal(t, tt.wantOneLeg, oneLeg)
			// 두 레그 모두 수량이 있을 때만 포지션이 열려 있어야 함
			assert.Equal(t, tt.qty1 != 0 && tt.qty2 != 0, side != FlatPosition)
		})
	}
}

func TestRatesIsValid(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, 3, 5, 11, 0, 0, 0, loc)

	m := NewMarketRates("AAA")
	m.SetBid(10, now.Add(-time.Hour))
	m.SetAsk(10.1, now.Add(-time.Hour))
	assert.True(t, m.Rates().IsValid(now, loc, 0.01))

	t.Run("전날 변경된 호가는 stale", func(t *testing.T) {
		m := NewMarketRates("AAA")
		m.SetBid(10, now.Add(-24*time.Hour))
		m.SetAsk(10.1, now.Add(-time.Minute))
		assert.False(t, m.Rates().IsValid(now, loc, 0.01))
	})

	t.Run("최소 가격 미만", func(t *testing.T) {
		assert.False(t, m.Rates().IsValid(now, loc, 10.05))
	})

	t.Run("같은 값이면 변경 시각 유지", func(t *testing.T) {
		m := NewMarketRates("AAA")
		first := now.Add(-2 * time.Hour)
		m.SetBid(10, first)
		m.SetBid(10, now)
		assert.Equal(t, first, m.Rates().BidTime)
		m.SetBid(10.2, now)
		assert.Equal(t, now, m.Rates().BidTime)
	})
}

func TestRatesMid(t *testing.T) {
	assert.InDelta(t, 10.05, Rates{Bid: 10, Ask: 10.1}.Mid(), 1e-9)
	assert.Equal(t, 9.0, Rates{Last: 9}.Mid())
}

func TestHoursWindow(t *testing.T) {
	w := HoursWindow{Start: "09:30", End: "16:00"}
	require.NoError(t, w.Validate())

	tuesday := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	open, err := w.Contains(tuesday.Add(10 * time.Hour))
	require.NoError(t, err)
	assert.True(t, open)

	open, _ = w.Contains(tuesday.Add(9 * time.Hour))
	assert.False(t, open)

	open, _ = w.Contains(tuesday.Add(16 * time.Hour))
	assert.False(t, open)

	saturday := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	open, _ = HoursWindow{}.Contains(saturday)
	assert.False(t, open, "주말은 항상 닫힘")

	assert.Error(t, HoursWindow{Start: "16:00", End: "09:30"}.Validate())
	assert.Error(t, HoursWindow{Start: "9h", End: "10:00"}.Validate())
}

func makeSeries(start time.Time, closes ...float64) PriceSeries {
	s := make(PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = DailyBar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return s
}

func TestValidatePairSeries(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

	ok1 := makeSeries(start, 1, 2, 3)
	ok2 := makeSeries(start, 4, 5, 6)
	assert.NoError(t, ValidatePairSeries(ok1, ok2, now, 5))

	tests := []struct {
		name   string
		s1, s2 PriceSeries
		now    time.Time
	}{
		{"비어 있음", PriceSeries{}, PriceSeries{}, now},
		{"길이 다름", ok1, makeSeries(start, 4, 5), now},
		{"마지막 날짜 다름", ok1, makeSeries(start.AddDate(0, 0, 1), 4, 5, 6), now},
		{"오래된 데이터", ok1, ok2, now.AddDate(0, 0, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePairSeries(tt.s1, tt.s2, tt.now, 5)
			var serr *SeriesError
			assert.ErrorAs(t, err, &serr)
		})
	}
}

func TestTransactionSlippage(t *testing.T) {
	buy := Transaction{Side: Buy, Quantity: 10, Price: 10.2, QuotePrice: 10.0}
	assert.InDelta(t, 2.0, buy.Slippage(), 1e-9)

	sell := Transaction{Side: Sell, Quantity: 10, Price: 9.9, QuotePrice: 10.0}
	assert.InDelta(t, 1.0, sell.Slippage(), 1e-9)
}
