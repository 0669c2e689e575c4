// internal/indicator/rsi.go
package indicator

import (
	"fmt"
	"math"
)

// RSI는 Relative Strength Index 지표를 구현
type RSI struct {
	BaseIndicator
	Period int // RSI 계산 기간
}

// NewRSI는 새로운 RSI 지표 인스턴스를 생성
func NewRSI(period int) *RSI {
	return &RSI{
		BaseIndicator: BaseIndicator{
			Name: fmt.Sprintf("RSI(%d)", period),
			Config: map[string]interface{}{
				"Period": period,
			},
		},
		Period: period,
	}
}

// Calculate는 주어진 값 시계열에 대해 RSI(0–100)를 계산
func (r *RSI) Calculate(values []float64) ([]float64, error) {
	if err := validateSeries(r.Period, values, r.Period+1); err != nil {
		return nil, err
	}

	p := r.Period
	results := make([]float64, len(values))

	// ---------- 1. 첫 p 개의 변동 Δ 합산 (SMA) ----------------------------
	sumGain, sumLoss := 0.0, 0.0
	for i := 1; i <= p; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			sumGain += delta
		} else {
			sumLoss += -delta
		}
	}
	avgGain, avgLoss := sumGain/float64(p), sumLoss/float64(p)
	results[p] = toRSI(avgGain, avgLoss)

	// ---------- 2. 이후 구간 Wilder EMA 방식 ----------------------------
	for i := p + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
		results[i] = toRSI(avgGain, avgLoss)
	}

	// ---------- 3. 앞 구간(NaN) 표시 ------------------------------------
	for i := 0; i < p; i++ {
		results[i] = math.NaN()
	}
	return results, nil
}

// --- 유틸 ---------------------------------------------------------------

func toRSI(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50 // 완전 횡보
	case avgLoss == 0:
		return 100
	default:
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs)
	}
}
