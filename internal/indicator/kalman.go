package indicator

import (
	"fmt"
	"math"
)

// Kalman은 y = Intercept + Slope*x 관계를 재귀적으로 추정하는 칼만 필터입니다.
// 상태는 [slope, intercept]이고 상태 잡음은 Delta/(1-Delta), 관측 잡음은 Ve입니다.
type Kalman struct {
	Delta float64
	Ve    float64

	Slope     float64
	Intercept float64
	P         [2][2]float64 // 상태 공분산
	Q         float64       // 마지막 예측 오차 분산

	LogLikelihood float64
	N             int
}

// NewKalman은 새 필터를 생성합니다
func NewKalman(delta, ve float64) (*Kalman, error) {
	if delta <= 0 || delta >= 1 {
		return nil, &ValidationError{Field: "delta", Err: fmt.Errorf("0 < delta < 1 이어야 합니다: %v", delta)}
	}
	if ve <= 0 {
		return nil, &ValidationError{Field: "ve", Err: fmt.Errorf("ve must be > 0")}
	}
	return &Kalman{Delta: delta, Ve: ve}, nil
}

// Fit은 회귀 추정값으로 초기 상태를 잡고 전체 시계열로 필터를 갱신합니다
func (k *Kalman) Fit(x, y []float64) error {
	reg, err := OLS(x, y)
	if err != nil {
		return err
	}
	vw := k.Delta / (1 - k.Delta)
	k.Slope, k.Intercept = reg.Slope, reg.Intercept
	k.P = [2][2]float64{{vw, 0}, {0, vw}}
	k.Q = 0
	k.LogLikelihood = 0
	k.N = 0
	for i := range x {
		k.Update(x[i], y[i])
	}
	return nil
}

// Update는 관측값 하나로 상태를 갱신하고 예측 오차와 그 분산을 반환합니다
func (k *Kalman) Update(x, y float64) (e, q float64) {
	vw := k.Delta / (1 - k.Delta)

	// 예측 단계: R = P + Vw
	r := k.P
	r[0][0] += vw
	r[1][1] += vw

	// 관측 벡터 h = [x, 1]
	yhat := k.Slope*x + k.Intercept
	e = y - yhat

	rh0 := r[0][0]*x + r[0][1]
	rh1 := r[1][0]*x + r[1][1]
	q = x*rh0 + rh1 + k.Ve

	k0 := rh0 / q
	k1 := rh1 / q

	k.Slope += k0 * e
	k.Intercept += k1 * e

	// P = R - K h' R
	hr0 := x*r[0][0] + r[1][0]
	hr1 := x*r[0][1] + r[1][1]
	k.P = [2][2]float64{
		{r[0][0] - k0*hr0, r[0][1] - k0*hr1},
		{r[1][0] - k1*hr0, r[1][1] - k1*hr1},
	}

	k.Q = q
	k.LogLikelihood += -0.5 * (math.Log(2*math.Pi*q) + e*e/q)
	k.N++
	return e, q
}

// Spread는 현재 상태 기준 잔차를 반환합니다
func (k *Kalman) Spread(x, y float64) float64 {
	return y - (k.Slope*x + k.Intercept)
}

// StdDev는 현재 예측 오차 표준편차를 반환합니다
func (k *Kalman) StdDev() float64 {
	if k.Q <= 0 {
		return 0
	}
	return math.Sqrt(k.Q)
}
