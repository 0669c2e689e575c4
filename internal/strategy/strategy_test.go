package strategy

import (
	"errors"
	"testing"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandLogicSimple(t *testing.T) {
	b := NewBandLogic(BandConfig{Entry: 2, Exit: 0, MaxEntry: 6, Mode: EntrySimple})

	tests := []struct {
		name          string
		zLong, zShort float64
		want          domain.SignalType
	}{
		{"롱 진입", -2.5, -2.6, domain.Long},
		{"최대 초과", -6.5, -6.6, domain.NoSignal},
		{"임계값 미만", -1.9, -2.0, domain.NoSignal},
		{"경계값", -2.0, -2.1, domain.Long},
		{"숏 진입", 2.6, 2.5, domain.Short},
		{"숏 최대 초과", 6.6, 6.5, domain.NoSignal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Entry(tt.zLong, tt.zShort))
		})
	}
}

func TestBandLogicUptick(t *testing.T) {
	b := NewBandLogic(BandConfig{Entry: 2, Exit: 0, Mode: EntryUptick})

	// 첫 평가는 직전 값이 없으므로 시그널 없음
	assert.Equal(t, domain.NoSignal, b.Entry(-2.5, -2.5))
	// 계속 바깥에 머무르면 시그널 없음
	assert.Equal(t, domain.NoSignal, b.Entry(-2.6, -2.6))
	// 안쪽으로 돌아왔다가
	assert.Equal(t, domain.NoSignal, b.Entry(-1.5, -1.5))
	// 새로 넘는 순간에만 시그널
	assert.Equal(t, domain.Long, b.Entry(-2.1, -2.1))
	assert.Equal(t, domain.NoSignal, b.Entry(-2.2, -2.2))
}

func TestBandLogicDowntick(t *testing.T) {
	b := NewBandLogic(BandConfig{Entry: 2, Exit: 0, Downtick: 3, Mode: EntryDowntick})

	// downtick 임계값을 넘기 전에는 시그널 없음
	assert.Equal(t, domain.NoSignal, b.Entry(-2.5, -2.5))
	// 3을 넘어 무장
	assert.Equal(t, domain.NoSignal, b.Entry(-3.2, -3.2))
	// entry~downtick 구간으로 돌아오면 시그널
	assert.Equal(t, domain.Long, b.Entry(-2.7, -2.7))
	// entry 안쪽으로 들어오면 해제
	assert.Equal(t, domain.NoSignal, b.Entry(-1.0, -1.0))
	assert.Equal(t, domain.NoSignal, b.Entry(-2.5, -2.5))

	// 숏 쪽도 대칭
	assert.Equal(t, domain.NoSignal, b.Entry(3.5, 3.5))
	assert.Equal(t, domain.Short, b.Entry(2.4, 2.4))
}

func TestBandLogicExit(t *testing.T) {
	b := NewBandLogic(BandConfig{Entry: 2, Exit: 0, Mode: EntrySimple})

	assert.False(t, b.Exit(-0.1, domain.LongPosition))
	assert.True(t, b.Exit(0, domain.LongPosition))
	assert.True(t, b.Exit(0.5, domain.LongPosition))

	assert.False(t, b.Exit(0.1, domain.ShortPosition))
	assert.True(t, b.Exit(-0.2, domain.ShortPosition))

	assert.False(t, b.Exit(10, domain.FlatPosition))
}

func TestBandConfigValidate(t *testing.T) {
	assert.NoError(t, BandConfig{Entry: 2, Exit: 0.5, MaxEntry: 5, Mode: EntrySimple}.Validate())

	err := BandConfig{Entry: 2, Mode: "sideways"}.Validate()
	assert.True(t, errors.Is(err, ErrUnsupportedModel))

	assert.Error(t, BandConfig{Entry: 2, Exit: 2, Mode: EntrySimple}.Validate())
	assert.Error(t, BandConfig{Entry: 2, MaxEntry: 1.5, Mode: EntrySimple}.Validate())
	assert.Error(t, BandConfig{Entry: 2, Downtick: 2, Mode: EntryDowntick}.Validate())
}

func TestDisplayZScore(t *testing.T) {
	assert.Equal(t, -2.0, DisplayZScore(-2.0, -2.4, -2.2))
	assert.Equal(t, 1.1, DisplayZScore(1.3, 1.1, 1.2))
	// 부호가 다르면 중간가 값
	assert.Equal(t, 0.05, DisplayZScore(0.2, -0.1, 0.05))
}

func TestBracket(t *testing.T) {
	q := Quotes{
		Leg1: domain.Rates{Bid: 9.9, Ask: 10.1},
		Leg2: domain.Rates{Bid: 19.9, Ask: 20.1},
	}
	assert.InDelta(t, 10.1/19.9, RatioBracket(q, domain.Long), 1e-12)
	assert.InDelta(t, 9.9/20.1, RatioBracket(q, domain.Short), 1e-12)
	assert.InDelta(t, 10.0/20.0, RatioBracket(q, domain.NoSignal), 1e-12)

	// 롱 스프레드는 숏 스프레드보다 항상 크거나 같아야 함
	for _, slope := range []float64{0.5, -0.5} {
		long := SpreadBracket(q, domain.Long, 1, slope)
		short := SpreadBracket(q, domain.Short, 1, slope)
		assert.GreaterOrEqual(t, long, short)
	}

	assert.Equal(t, domain.Short, ExitSignal(domain.LongPosition))
	assert.Equal(t, domain.Long, ExitSignal(domain.ShortPosition))
}

func TestSizing(t *testing.T) {
	q1, q2, err := EqualNotional(SizingConfig{Budget: 1000, Margin1: 50, Margin2: 50, Price1: 10, Price2: 40})
	require.NoError(t, err)
	// 명목 1000 / 레그
	assert.Equal(t, 100, q1)
	assert.Equal(t, 25, q2)

	q1, q2, err = HedgeRatio(SizingConfig{Budget: 1000, Margin1: 50, Margin2: 50, Price1: 10, Price2: 20}, 0.5)
	require.NoError(t, err)
	// 단위당 10*0.5 + 0.5*20*0.5 = 10
	assert.Equal(t, 100, q1)
	assert.Equal(t, 50, q2)

	_, _, err = EqualNotional(SizingConfig{Budget: 1000, Price1: 10, Price2: 20})
	assert.Error(t, err)
	_, _, err = HedgeRatio(SizingConfig{Budget: 0, Margin1: 50, Margin2: 50, Price1: 10, Price2: 20}, 1)
	assert.Error(t, err)
}

func TestReversionPnL(t *testing.T) {
	// 1번 레그 +0.25, 2번 레그 -0.5
	assert.InDelta(t, 50.0, ReversionPnL(domain.Long, 100, 50, 0.25, -0.5), 1e-9)
	assert.InDelta(t, 50.0, ReversionPnL(domain.Short, 100, 50, -0.25, 0.5), 1e-9)
	assert.Equal(t, 0.0, ReversionPnL(domain.NoSignal, 100, 50, 1, 2))

	// 2번 레그 수량이 손익에 반영됨
	assert.InDelta(t, 25.0, ReversionPnL(domain.Long, 100, 0, 0.25, -0.5), 1e-9)
	assert.InDelta(t, 75.0, ReversionPnL(domain.Long, 100, 100, 0.25, -0.5), 1e-9)
}

func TestSpreadMoves(t *testing.T) {
	m1, m2 := SpreadMoves(1.0, 2.0)
	assert.InDelta(t, 0.5, m1, 1e-9)
	assert.InDelta(t, -0.25, m2, 1e-9)
	assert.InDelta(t, 1.0, m1-2.0*m2, 1e-9)

	m1, m2 = SpreadMoves(1.0, 0)
	assert.Equal(t, 1.0, m1)
	assert.Equal(t, 0.0, m2)

	// 헤지 비율대로 잡은 수량이면 1번 레그 단독 회귀와 같은 손익
	m1, m2 = SpreadMoves(0.5, 2.0)
	assert.InDelta(t, 100*0.5, ReversionPnL(domain.Long, 100, 200, m1, m2), 1e-9)
}

func TestRatioMoves(t *testing.T) {
	m1, m2 := RatioMoves(10, 20, 0.605)
	assert.InDelta(t, 1.0, m1, 1e-9)
	assert.InDelta(t, 0.605, (10+m1)/(20+m2), 1e-9)
	assert.Less(t, m2, 0.0)

	m1, m2 = RatioMoves(0, 20, 0.5)
	assert.Equal(t, 0.0, m1)
	assert.Equal(t, 0.0, m2)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func(params map[string]interface{}) (Model, error) {
		return NewUnsupported("stub"), nil
	})

	assert.Equal(t, []string{"stub"}, registry.ListModels())

	_, err := registry.Create("missing", nil)
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	model, err := CreateModelFromConfig(registry, domain.PairConfig{ID: "p1", Model: "nope"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
	require.NotNil(t, model)
	assert.Equal(t, "unsupported", model.Name())
	assert.Equal(t, domain.NoSignal, model.EntryLogic(Quotes{}))
	assert.Equal(t, 0.0, model.ZScore(Quotes{}, ZDisplay))
	assert.Error(t, model.SetPrices([]float64{1}, []float64{1}))
}

func TestValidateSeries(t *testing.T) {
	assert.NoError(t, ValidateSeries("m", []float64{1, 2, 3}, []float64{1, 2, 3}, 3))

	var perr *PriceError
	assert.ErrorAs(t, ValidateSeries("m", []float64{1, 2}, []float64{1}, 1), &perr)
	assert.ErrorAs(t, ValidateSeries("m", nil, nil, 1), &perr)
	assert.ErrorAs(t, ValidateSeries("m", []float64{1, 2}, []float64{1, 2}, 3), &perr)
	assert.ErrorAs(t, ValidateSeries("m", []float64{1, 0}, []float64{1, 2}, 1), &perr)
}

func TestIsReversal(t *testing.T) {
	b := &BaseModel{}
	assert.False(t, b.IsReversal(domain.FlatPosition, domain.Long))
	assert.False(t, b.IsReversal(domain.LongPosition, domain.Long))
	assert.True(t, b.IsReversal(domain.LongPosition, domain.Short))
	assert.True(t, b.IsReversal(domain.ShortPosition, domain.Long))
}

func TestParams(t *testing.T) {
	params := map[string]interface{}{"a": 3, "b": "2.5", "c": 1.5, "d": "x", "e": true}
	r := &ParamReader{Params: params}
	assert.Equal(t, 3, r.Int("a", 0))
	assert.Equal(t, 2.5, r.Float("b", 0))
	assert.Equal(t, 7, r.Int("missing", 7))
	require.NoError(t, r.Err)

	_, err := Int(params, "c", 0)
	assert.Error(t, err)
	_, err = Float(params, "e", 0)
	assert.Error(t, err)
	_, err = String(params, "a", "")
	assert.Error(t, err)
}
