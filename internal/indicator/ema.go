package indicator

import (
	"fmt"
	"math"
)

// EMA는 지수이동평균 지표를 구현합니다
type EMA struct {
	BaseIndicator
	Period int // EMA 기간
}

// NewEMA는 새로운 EMA 지표 인스턴스를 생성합니다
func NewEMA(period int) *EMA {
	return &EMA{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("EMA(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 주어진 값 시계열에 대해 EMA를 계산합니다
func (e *EMA) Calculate(values []float64) ([]float64, error) {
	if err := validateSeries(e.Period, values, e.Period); err != nil {
		return nil, err
	}

	p := e.Period
	alpha := 2.0 / float64(p+1)
	results := make([]float64, len(values))

	// 첫 값을 시작값으로 사용 (ewm adjust=False와 동일)
	ema := values[0]
	results[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		results[i] = ema
	}

	// 최소 기간 이전 값들은 NaN
	for i := 0; i < p-1; i++ {
		results[i] = math.NaN()
	}

	return results, nil
}
