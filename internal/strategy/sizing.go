package strategy

import (
	"fmt"
	"math"
)

// SizingConfig는 레그 수량 계산을 위한 설정을 정의합니다
type SizingConfig struct {
	Budget  float64 // 페어에 배정된 증거금 예산
	Margin1 float64 // 1번 레그 증거금률 (%)
	Margin2 float64 // 2번 레그 증거금률 (%)
	Price1  float64
	Price2  float64
}

func (c SizingConfig) validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("증거금 예산이 0 이하입니다: %.2f", c.Budget)
	}
	if c.Margin1 <= 0 || c.Margin2 <= 0 {
		return fmt.Errorf("증거금률이 0 이하입니다: %.2f/%.2f", c.Margin1, c.Margin2)
	}
	if c.Price1 <= 0 || c.Price2 <= 0 {
		return fmt.Errorf("가격이 0 이하입니다: %.4f/%.4f", c.Price1, c.Price2)
	}
	return nil
}

// EqualNotional은 두 레그에 같은 명목 금액을 배정해 수량을 계산합니다.
// 명목 N에 대해 N*m1/100 + N*m2/100 = 예산이 되도록 N을 정합니다.
func EqualNotional(c SizingConfig) (int, int, error) {
	if err := c.validate(); err != nil {
		return 0, 0, err
	}
	notional := c.Budget / ((c.Margin1 + c.Margin2) / 100)
	q1 := int(math.Floor(notional / c.Price1))
	q2 := int(math.Floor(notional / c.Price2))
	return q1, q2, nil
}

// HedgeRatio는 헤지 비율 |slope|로 2번 레그 수량을 맞춰 수량을 계산합니다
func HedgeRatio(c SizingConfig, slope float64) (int, int, error) {
	if err := c.validate(); err != nil {
		return 0, 0, err
	}
	b := math.Abs(slope)
	perUnit := c.Price1*c.Margin1/100 + b*c.Price2*c.Margin2/100
	q1 := int(math.Floor(c.Budget / perUnit))
	q2 := int(math.Round(float64(q1) * b))
	return q1, q2, nil
}
