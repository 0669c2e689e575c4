package strategy

import "github.com/assist-by/pairs/internal/domain"

// Unsupported는 알 수 없는 모델 이름에 대해 쓰는 비활성 모델입니다. 항상 시그널이 없습니다
type Unsupported struct {
	BaseModel
}

// NewUnsupported는 비활성 모델을 생성합니다
func NewUnsupported(requested string) *Unsupported {
	return &Unsupported{
		BaseModel: BaseModel{
			ModelName:   "unsupported",
			Description: "지원하지 않는 모델: " + requested,
		},
	}
}

func (u *Unsupported) SetPrices(s1, s2 []float64) error {
	return ErrUnsupportedModel
}

func (u *Unsupported) Lookback() int { return 0 }

func (u *Unsupported) EntryLogic(q Quotes) domain.SignalType { return domain.NoSignal }

func (u *Unsupported) ExitLogic(q Quotes, pos domain.PositionSide) bool { return false }

func (u *Unsupported) ZScore(q Quotes, mode ZMode) float64 { return 0 }

func (u *Unsupported) ProfitPotential(q Quotes, sig domain.SignalType, qty1, qty2 int) float64 {
	return 0
}

func (u *Unsupported) Quantities(budget, margin1, margin2 float64, q Quotes, sig domain.SignalType) (int, int) {
	return 0, 0
}

func (u *Unsupported) IsReversal(lastExit domain.PositionSide, sig domain.SignalType) bool {
	return false
}
