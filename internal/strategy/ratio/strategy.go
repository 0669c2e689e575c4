package ratio

import (
	"fmt"
	"math"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/indicator"
	"github.com/assist-by/pairs/internal/strategy"
)

// Name은 레지스트리에 등록되는 모델 이름입니다
const Name = "ratio"

// Model은 가격비(1번/2번)의 이동평균 대비 z-score로 매매하는 모델입니다
type Model struct {
	strategy.BaseModel

	band   *strategy.BandLogic
	ma     indicator.Indicator
	stddev *indicator.StdDev
	rsi    *indicator.RSI // nil이면 필터 미사용

	maPeriod  int
	stdPeriod int
	rsiFilter float64 // RSI가 50±rsiFilter 바깥이어야 진입

	ratios []float64
	mean   float64
	sd     float64
}

// NewModel은 새로운 가격비 모델을 생성합니다
func NewModel(params map[string]interface{}) (strategy.Model, error) {
	r := &strategy.ParamReader{Params: params}
	maType := r.String("ma_type", "sma")
	maPeriod := r.Int("ma_period", 20)
	stdPeriod := r.Int("std_period", 20)
	rsiPeriod := r.Int("rsi_period", 0)
	rsiFilter := r.Float("rsi_filter", 0)
	band := r.Band()
	if r.Err != nil {
		return nil, fmt.Errorf("ratio 모델 설정 오류: %w", r.Err)
	}
	if maPeriod < 1 || stdPeriod < 2 {
		return nil, fmt.Errorf("ratio 모델 설정 오류: ma_period=%d, std_period=%d", maPeriod, stdPeriod)
	}
	if rsiFilter < 0 || rsiFilter >= 50 {
		return nil, fmt.Errorf("ratio 모델 설정 오류: rsi_filter=%v", rsiFilter)
	}

	ma, err := indicator.NewMovingAverage(maType, maPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", strategy.ErrUnsupportedModel, err)
	}

	m := &Model{
		BaseModel: strategy.BaseModel{
			ModelName:   Name,
			Description: "가격비 이동평균/표준편차 z-score 모델",
			Config:      params,
		},
		band:      strategy.NewBandLogic(band),
		ma:        ma,
		stddev:    indicator.NewStdDev(stdPeriod),
		maPeriod:  maPeriod,
		stdPeriod: stdPeriod,
		rsiFilter: rsiFilter,
	}
	if rsiPeriod > 0 {
		m.rsi = indicator.NewRSI(rsiPeriod)
	}
	return m, nil
}

// Lookback은 필요한 최소 데이터 길이를 반환합니다
func (m *Model) Lookback() int {
	n := m.maPeriod
	if m.stdPeriod > n {
		n = m.stdPeriod
	}
	if m.rsi != nil && m.rsi.Period+1 > n {
		n = m.rsi.Period + 1
	}
	return n
}

// SetPrices는 가격비 시계열의 평균과 표준편차를 갱신합니다
func (m *Model) SetPrices(s1, s2 []float64) error {
	if err := strategy.ValidateSeries(Name, s1, s2, m.Lookback()); err != nil {
		m.SetReady(false)
		return err
	}

	ratios := make([]float64, len(s1))
	for i := range s1 {
		ratios[i] = s1[i] / s2[i]
	}

	maValues, err := m.ma.Calculate(ratios)
	if err != nil {
		m.SetReady(false)
		return &strategy.PriceError{Model: Name, Err: err}
	}
	sdValues, err := m.stddev.Calculate(ratios)
	if err != nil {
		m.SetReady(false)
		return &strategy.PriceError{Model: Name, Err: err}
	}

	mean, sd := indicator.Last(maValues), indicator.Last(sdValues)
	if math.IsNaN(mean) || math.IsNaN(sd) || sd <= 0 {
		m.SetReady(false)
		return &strategy.PriceError{Model: Name, Err: fmt.Errorf("표준편차가 0입니다")}
	}

	m.ratios = ratios
	m.mean = mean
	m.sd = sd
	m.SetReady(true)
	return nil
}

// Mean은 가격비 평균을 반환합니다
func (m *Model) Mean() float64 { return m.mean }

// StdDev는 가격비 표준편차를 반환합니다
func (m *Model) StdDev() float64 { return m.sd }

func (m *Model) z(q strategy.Quotes, sig domain.SignalType) float64 {
	return strategy.Safe((strategy.RatioBracket(q, sig) - m.mean) / m.sd)
}

// ZScore는 z-score를 반환합니다. 준비되지 않았으면 0입니다
func (m *Model) ZScore(q strategy.Quotes, mode strategy.ZMode) float64 {
	if !m.Ready() {
		return 0
	}
	if mode == strategy.ZDisplay {
		return strategy.DisplayZScore(m.z(q, domain.Long), m.z(q, domain.Short), m.z(q, domain.NoSignal))
	}
	return m.z(q, strategy.ModeSignal(mode))
}

// EntryLogic은 밴드 로직과 RSI 필터로 진입 시그널을 계산합니다
func (m *Model) EntryLogic(q strategy.Quotes) domain.SignalType {
	if !m.Ready() {
		return domain.NoSignal
	}
	sig := m.band.Entry(m.z(q, domain.Long), m.z(q, domain.Short))
	if sig == domain.NoSignal || m.rsi == nil {
		return sig
	}

	value, ok := m.liveRSI(strategy.RatioBracket(q, sig))
	if !ok {
		return domain.NoSignal
	}
	if sig == domain.Long && value > 50-m.rsiFilter {
		return domain.NoSignal
	}
	if sig == domain.Short && value < 50+m.rsiFilter {
		return domain.NoSignal
	}
	return sig
}

// liveRSI는 과거 가격비에 현재 가격비를 붙여 RSI를 계산합니다
func (m *Model) liveRSI(live float64) (float64, bool) {
	series := make([]float64, len(m.ratios), len(m.ratios)+1)
	copy(series, m.ratios)
	series = append(series, live)
	values, err := m.rsi.Calculate(series)
	if err != nil {
		return 0, false
	}
	v := indicator.Last(values)
	return v, !math.IsNaN(v)
}

// ExitLogic은 청산 방향 호가 기준 z-score로 청산 여부를 판단합니다
func (m *Model) ExitLogic(q strategy.Quotes, pos domain.PositionSide) bool {
	if !m.Ready() {
		return false
	}
	return m.band.Exit(m.z(q, strategy.ExitSignal(pos)), pos)
}

// ProfitPotential은 가격비가 청산 목표까지 회귀했을 때의 예상 손익입니다
func (m *Model) ProfitPotential(q strategy.Quotes, sig domain.SignalType, qty1, qty2 int) float64 {
	if !m.Ready() || sig == domain.NoSignal {
		return 0
	}
	p1, p2 := strategy.EntryPrices(q, sig)
	target := m.mean + m.band.ExitTarget(sig)*m.sd
	move1, move2 := strategy.RatioMoves(p1, p2, target)
	return strategy.Safe(strategy.ReversionPnL(sig, qty1, qty2, move1, move2))
}

// Quantities는 두 레그에 같은 명목 금액을 배정합니다
func (m *Model) Quantities(budget, margin1, margin2 float64, q strategy.Quotes, sig domain.SignalType) (int, int) {
	p1, p2 := strategy.EntryPrices(q, sig)
	q1, q2, err := strategy.EqualNotional(strategy.SizingConfig{
		Budget: budget, Margin1: margin1, Margin2: margin2, Price1: p1, Price2: p2,
	})
	if err != nil {
		return 0, 0
	}
	return q1, q2
}

// RegisterModel은 이 모델을 레지스트리에 등록합니다
func RegisterModel(registry *strategy.Registry) {
	registry.Register(Name, NewModel)
}
