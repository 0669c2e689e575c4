package residual

import (
	"math/rand"
	"testing"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	trueIntercept = 5.0
	trueSlope     = 1.8
	noise         = 0.4
)

func syntheticSeries(n int, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	s1 := make([]float64, n)
	s2 := make([]float64, n)
	for i := 0; i < n; i++ {
		s2[i] = 40 + 0.1*float64(i) + rng.NormFloat64()
		s1[i] = trueIntercept + trueSlope*s2[i] + rng.NormFloat64()*noise
	}
	return s1, s2
}

func flatQuotes(p1, p2 float64) strategy.Quotes {
	return strategy.Quotes{
		Leg1: domain.Rates{Bid: p1, Ask: p1},
		Leg2: domain.Rates{Bid: p2, Ask: p2},
	}
}

func TestRegressionRoundTrip(t *testing.T) {
	m, err := NewModel(map[string]interface{}{"lookback": 100})
	require.NoError(t, err)
	model := m.(*Model)

	s1, s2 := syntheticSeries(100, 1)
	require.NoError(t, model.SetPrices(s1, s2))

	reg := model.Regression()
	assert.InDelta(t, trueSlope, reg.Slope, 0.1)
	assert.InDelta(t, noise, reg.StdDev, 0.1)

	// 학습 구간 밖의 점
	x0 := 55.0
	y0 := trueIntercept + trueSlope*x0 + 2*noise
	want := (y0 - (reg.Intercept + reg.Slope*x0)) / reg.StdDev

	q := flatQuotes(y0, x0)
	assert.InDelta(t, want, model.ZScore(q, strategy.ZDisplay), 1e-9)
	assert.InDelta(t, want, model.ZScore(q, strategy.ZLong), 1e-9)
	assert.InDelta(t, 2.0, model.ZScore(q, strategy.ZDisplay), 0.8)
}

func TestLookbackWindow(t *testing.T) {
	m, err := NewModel(map[string]interface{}{"lookback": 30})
	require.NoError(t, err)

	s1, s2 := syntheticSeries(80, 2)
	require.NoError(t, m.SetPrices(s1, s2))
	assert.Equal(t, 30, m.Lookback())

	// lookback보다 짧은 데이터는 실패
	assert.Error(t, m.SetPrices(s1[:10], s2[:10]))
	assert.False(t, m.Ready())
	assert.Equal(t, 0.0, m.ZScore(flatQuotes(1, 1), strategy.ZDisplay))
}

func TestEntryExit(t *testing.T) {
	m, err := NewModel(map[string]interface{}{"lookback": 100, "entry": 2.0, "exit": 0.5})
	require.NoError(t, err)
	model := m.(*Model)

	s1, s2 := syntheticSeries(100, 3)
	require.NoError(t, model.SetPrices(s1, s2))
	reg := model.Regression()

	x0 := 50.0
	fitted := reg.Intercept + reg.Slope*x0

	// 스프레드가 -3σ면 롱
	q := flatQuotes(fitted-3*reg.StdDev, x0)
	assert.Equal(t, domain.Long, model.EntryLogic(q))
	assert.False(t, model.ExitLogic(q, domain.LongPosition))

	// -0.5σ까지 회귀하면 롱 청산
	q = flatQuotes(fitted-0.4*reg.StdDev, x0)
	assert.True(t, model.ExitLogic(q, domain.LongPosition))

	// +3σ면 숏
	q = flatQuotes(fitted+3*reg.StdDev, x0)
	assert.Equal(t, domain.Short, model.EntryLogic(q))

	q1, q2 := model.Quantities(10000, 50, 50, q, domain.Short)
	assert.Greater(t, q1, 0)
	assert.InDelta(t, float64(q1)*reg.Slope, float64(q2), 1.0)
	assert.Greater(t, model.ProfitPotential(q, domain.Short, q1, q2), 0.0)
}

func TestRegister(t *testing.T) {
	registry := strategy.NewRegistry()
	RegisterModel(registry)
	_, err := registry.Create(Name, map[string]interface{}{"lookback": 2})
	assert.Error(t, err)
}
