package residual

import (
	"fmt"

	"github.com/assist-by/pairs/internal/indicator"
	"github.com/assist-by/pairs/internal/strategy"
)

// Name은 레지스트리에 등록되는 모델 이름입니다
const Name = "residual"

// Model은 1번 종목을 2번 종목에 OLS 회귀한 잔차 z-score 모델입니다
type Model struct {
	strategy.SpreadModel
	lookback int
	reg      indicator.Regression
}

// NewModel은 새로운 잔차 모델을 생성합니다
func NewModel(params map[string]interface{}) (strategy.Model, error) {
	r := &strategy.ParamReader{Params: params}
	lookback := r.Int("lookback", 60)
	band := r.Band()
	if r.Err != nil {
		return nil, fmt.Errorf("residual 모델 설정 오류: %w", r.Err)
	}
	if lookback < 3 {
		return nil, fmt.Errorf("residual 모델 설정 오류: lookback=%d", lookback)
	}

	return &Model{
		SpreadModel: strategy.SpreadModel{
			BaseModel: strategy.BaseModel{
				ModelName:   Name,
				Description: "OLS 회귀 잔차 z-score 모델",
				Config:      params,
			},
			Band: strategy.NewBandLogic(band),
		},
		lookback: lookback,
	}, nil
}

// Lookback은 회귀에 쓰는 데이터 길이입니다
func (m *Model) Lookback() int {
	return m.lookback
}

// SetPrices는 마지막 lookback 구간으로 회귀식을 다시 계산합니다
func (m *Model) SetPrices(s1, s2 []float64) error {
	if err := strategy.ValidateSeries(Name, s1, s2, m.lookback); err != nil {
		m.SetReady(false)
		return err
	}

	start := len(s1) - m.lookback
	reg, err := indicator.OLS(s2[start:], s1[start:])
	if err != nil {
		m.SetReady(false)
		return &strategy.PriceError{Model: Name, Err: err}
	}
	if reg.StdDev <= 0 {
		m.SetReady(false)
		return &strategy.PriceError{Model: Name, Err: fmt.Errorf("잔차 표준편차가 0입니다")}
	}

	m.reg = reg
	m.State = strategy.SpreadState{Intercept: reg.Intercept, Slope: reg.Slope, StdDev: reg.StdDev}
	m.SetReady(true)
	return nil
}

// Regression은 마지막 회귀 결과를 반환합니다
func (m *Model) Regression() indicator.Regression {
	return m.reg
}

// RegisterModel은 이 모델을 레지스트리에 등록합니다
func RegisterModel(registry *strategy.Registry) {
	registry.Register(Name, NewModel)
}
