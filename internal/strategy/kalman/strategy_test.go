package kalman

import (
	"math/rand"
	"testing"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	s1 := make([]float64, n)
	s2 := make([]float64, n)
	p := 50.0
	for i := 0; i < n; i++ {
		p += rng.NormFloat64() * 0.5
		s2[i] = p
		s1[i] = 3 + 1.2*p + rng.NormFloat64()*0.3
	}
	return s1, s2
}

func TestToken(t *testing.T) {
	sub := SubModel{Delta: 1e-5, Ve: 1e-3}
	parsed, err := ParseToken(sub.Token())
	require.NoError(t, err)
	assert.Equal(t, sub, parsed)

	for _, bad := range []string{"", "delta=1", "delta=x;ve=1", "foo=1;ve=2"} {
		_, err := ParseToken(bad)
		assert.ErrorIs(t, err, strategy.ErrInvalidState, bad)
	}
}

func TestAutoSelectsAndLocks(t *testing.T) {
	m, err := NewAuto(map[string]interface{}{"lookback": 100})
	require.NoError(t, err)
	model := m.(*Model)
	assert.Len(t, model.candidates, 4)

	lockable, ok := m.(strategy.Lockable)
	require.True(t, ok)
	assert.Equal(t, "", lockable.LockState(), "준비 전에는 빈 토큰")

	s1, s2 := series(150, 11)
	require.NoError(t, model.SetPrices(s1, s2))
	assert.True(t, model.Ready())
	assert.Greater(t, model.State.StdDev, 0.0)

	token := lockable.LockState()
	require.NotEmpty(t, token)
	assert.True(t, model.Locked())

	// 재시작 후 같은 하위 모델 복원
	restarted, err := NewAuto(map[string]interface{}{"lookback": 100})
	require.NoError(t, err)
	r := restarted.(*Model)
	require.NoError(t, r.RestoreState(token))
	other1, other2 := series(150, 99)
	require.NoError(t, r.SetPrices(other1, other2))
	assert.Equal(t, token, r.Active().Token())

	r.UnlockState()
	assert.False(t, r.Locked())
}

func TestRestoreRejectsUnknownSubModel(t *testing.T) {
	m, err := NewAuto(map[string]interface{}{"ve": 0.01})
	require.NoError(t, err)
	err = m.(*Model).RestoreState(SubModel{Delta: 0.5, Ve: 0.01}.Token())
	assert.ErrorIs(t, err, strategy.ErrInvalidState)
}

func TestGrid(t *testing.T) {
	m, err := NewGrid(map[string]interface{}{"lookback": 60})
	require.NoError(t, err)
	model := m.(*Model)
	assert.Len(t, model.candidates, 16)
	assert.Equal(t, GridName, model.Name())

	s1, s2 := series(60, 5)
	require.NoError(t, model.SetPrices(s1, s2))

	// 관계식 근처 호가는 진입 시그널이 없어야 함
	x := s2[len(s2)-1]
	y := model.State.Intercept + model.State.Slope*x
	q := strategy.Quotes{
		Leg1: domain.Rates{Bid: y, Ask: y},
		Leg2: domain.Rates{Bid: x, Ask: x},
	}
	assert.Equal(t, domain.NoSignal, model.EntryLogic(q))
	assert.InDelta(t, 0.0, model.ZScore(q, strategy.ZDisplay), 1e-6)

	// 4σ 아래면 롱
	q.Leg1 = domain.Rates{Bid: y - 4*model.State.StdDev, Ask: y - 4*model.State.StdDev}
	assert.Equal(t, domain.Long, model.EntryLogic(q))
}

func TestRegister(t *testing.T) {
	registry := strategy.NewRegistry()
	RegisterModel(registry)
	assert.Equal(t, []string{AutoName, GridName}, registry.ListModels())
}
