package indicator

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError는 입력값 검증 에러를 정의합니다
type ValidationError struct {
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("유효하지 않은 %s: %v", e.Field, e.Err)
}

// Indicator는 값 시계열에 대한 기술적 지표 인터페이스입니다.
// 결과 슬라이스는 입력과 길이가 같고, 계산 불가 구간은 math.NaN()으로 채웁니다.
type Indicator interface {
	// Calculate는 값 시계열로 지표를 계산합니다
	Calculate(values []float64) ([]float64, error)

	// GetName은 지표의 이름을 반환합니다
	GetName() string

	// GetConfig는 지표의 현재 설정을 반환합니다
	GetConfig() map[string]interface{}
}

// BaseIndicator는 모든 지표 구현체에서 공통적으로 사용할 수 있는 기본 구현을 제공합니다
type BaseIndicator struct {
	Name   string
	Config map[string]interface{}
}

// GetName은 지표의 이름을 반환합니다
func (b *BaseIndicator) GetName() string {
	return b.Name
}

// GetConfig는 지표의 현재 설정을 반환합니다
func (b *BaseIndicator) GetConfig() map[string]interface{} {
	// 설정의 복사본 반환
	configCopy := make(map[string]interface{})
	for k, v := range b.Config {
		configCopy[k] = v
	}
	return configCopy
}

// NewMovingAverage는 이동평균 종류(sma/ema)에 맞는 지표를 생성합니다
func NewMovingAverage(kind string, period int) (Indicator, error) {
	switch strings.ToLower(kind) {
	case "", "sma":
		return NewSMA(period), nil
	case "ema":
		return NewEMA(period), nil
	default:
		return nil, &ValidationError{Field: "ma_type", Err: fmt.Errorf("지원하지 않는 이동평균: %s", kind)}
	}
}

// Last는 결과 슬라이스의 마지막 값을 반환합니다
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func validateSeries(period int, values []float64, need int) error {
	if period <= 0 {
		return &ValidationError{Field: "period", Err: fmt.Errorf("period must be > 0")}
	}
	if len(values) == 0 {
		return &ValidationError{Field: "values", Err: fmt.Errorf("데이터가 비어있습니다")}
	}
	if len(values) < need {
		return &ValidationError{
			Field: "values",
			Err:   fmt.Errorf("데이터가 부족합니다. 필요: %d, 현재: %d", need, len(values)),
		}
	}
	return nil
}
