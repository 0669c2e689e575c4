package indicator

import (
	"fmt"
	"math"
)

// SMA는 단순이동평균 지표를 구현합니다
type SMA struct {
	BaseIndicator
	Period int
}

// NewSMA는 새로운 SMA 지표 인스턴스를 생성합니다
func NewSMA(period int) *SMA {
	return &SMA{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("SMA(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 이동 구간 합으로 SMA를 계산합니다
func (s *SMA) Calculate(values []float64) ([]float64, error) {
	if err := validateSeries(s.Period, values, s.Period); err != nil {
		return nil, err
	}

	p := s.Period
	results := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= p {
			sum -= values[i-p]
		}
		if i < p-1 {
			results[i] = math.NaN()
			continue
		}
		results[i] = sum / float64(p)
	}
	return results, nil
}

// StdDev는 이동 표본 표준편차 지표를 구현합니다
type StdDev struct {
	BaseIndicator
	Period int
}

// NewStdDev는 새로운 표준편차 지표 인스턴스를 생성합니다
func NewStdDev(period int) *StdDev {
	return &StdDev{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("StdDev(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 구간별 표본 표준편차(n-1)를 계산합니다
func (s *StdDev) Calculate(values []float64) ([]float64, error) {
	if err := validateSeries(s.Period, values, s.Period); err != nil {
		return nil, err
	}
	if s.Period < 2 {
		return nil, &ValidationError{Field: "period", Err: fmt.Errorf("표준편차 기간은 2 이상이어야 합니다")}
	}

	p := s.Period
	results := make([]float64, len(values))
	for i := range values {
		if i < p-1 {
			results[i] = math.NaN()
			continue
		}
		results[i] = SampleStdDev(values[i-p+1 : i+1])
	}
	return results, nil
}

// Mean은 산술평균을 반환합니다
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev는 표본 표준편차를 반환합니다
func SampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
