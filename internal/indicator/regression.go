package indicator

import (
	"fmt"
	"math"
)

// Regression은 y = Intercept + Slope*x 최소제곱 회귀 결과입니다
type Regression struct {
	Intercept float64
	Slope     float64
	StdDev    float64 // 잔차 표준편차 (자유도 n-2)
	N         int
}

// Fitted는 x에 대한 회귀 추정값을 반환합니다
func (r Regression) Fitted(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// Residual은 실제값과 추정값의 차이를 반환합니다
func (r Regression) Residual(x, y float64) float64 {
	return y - r.Fitted(x)
}

// ZScore는 잔차를 표준편차로 정규화한 값을 반환합니다
func (r Regression) ZScore(x, y float64) float64 {
	if r.StdDev <= 0 || math.IsNaN(r.StdDev) {
		return 0
	}
	return r.Residual(x, y) / r.StdDev
}

// OLS는 y를 x에 회귀한 최소제곱 결과를 계산합니다
func OLS(x, y []float64) (Regression, error) {
	if len(x) != len(y) {
		return Regression{}, &ValidationError{
			Field: "values",
			Err:   fmt.Errorf("길이가 다릅니다 (%d != %d)", len(x), len(y)),
		}
	}
	n := len(x)
	if n < 3 {
		return Regression{}, &ValidationError{
			Field: "values",
			Err:   fmt.Errorf("데이터가 부족합니다. 필요: 3, 현재: %d", n),
		}
	}

	mx, my := Mean(x), Mean(y)
	sxx, sxy := 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx == 0 {
		return Regression{}, &ValidationError{Field: "x", Err: fmt.Errorf("분산이 0입니다")}
	}

	reg := Regression{N: n}
	reg.Slope = sxy / sxx
	reg.Intercept = my - reg.Slope*mx

	sse := 0.0
	for i := 0; i < n; i++ {
		e := reg.Residual(x[i], y[i])
		sse += e * e
	}
	reg.StdDev = math.Sqrt(sse / float64(n-2))
	return reg, nil
}
