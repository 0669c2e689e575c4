package strategy

import (
	"github.com/assist-by/pairs/internal/domain"
)

// SpreadState는 회귀 계열 모델의 현재 관계식 p1 = Intercept + Slope*p2 입니다
type SpreadState struct {
	Intercept float64
	Slope     float64
	StdDev    float64
}

// ZScore는 방향별 보수적 스프레드를 표준편차로 정규화합니다
func (s SpreadState) ZScore(q Quotes, sig domain.SignalType) float64 {
	if s.StdDev <= 0 {
		return 0
	}
	return Safe(SpreadBracket(q, sig, s.Intercept, s.Slope) / s.StdDev)
}

// SpreadModel은 잔차 z-score 기반 모델(회귀, 칼만)의 공통 구현입니다.
// 임베딩하는 쪽은 SetPrices와 Lookback을 구현하고 State를 갱신합니다.
type SpreadModel struct {
	BaseModel
	Band  *BandLogic
	State SpreadState
}

// ZScore는 z-score를 반환합니다. 준비되지 않았으면 0입니다
func (m *SpreadModel) ZScore(q Quotes, mode ZMode) float64 {
	if !m.Ready() {
		return 0
	}
	if mode == ZDisplay {
		return DisplayZScore(
			m.State.ZScore(q, domain.Long),
			m.State.ZScore(q, domain.Short),
			m.State.ZScore(q, domain.NoSignal),
		)
	}
	return m.State.ZScore(q, ModeSignal(mode))
}

// EntryLogic은 밴드 로직으로 진입 시그널을 계산합니다
func (m *SpreadModel) EntryLogic(q Quotes) domain.SignalType {
	if !m.Ready() {
		return domain.NoSignal
	}
	return m.Band.Entry(m.State.ZScore(q, domain.Long), m.State.ZScore(q, domain.Short))
}

// ExitLogic은 청산 방향 호가 기준 z-score로 청산 여부를 판단합니다
func (m *SpreadModel) ExitLogic(q Quotes, pos domain.PositionSide) bool {
	if !m.Ready() {
		return false
	}
	return m.Band.Exit(m.State.ZScore(q, ExitSignal(pos)), pos)
}

// ProfitPotential은 스프레드가 청산 목표까지 회귀했을 때의 예상 손익입니다
func (m *SpreadModel) ProfitPotential(q Quotes, sig domain.SignalType, qty1, qty2 int) float64 {
	if !m.Ready() || sig == domain.NoSignal {
		return 0
	}
	current := SpreadBracket(q, sig, m.State.Intercept, m.State.Slope)
	target := m.Band.ExitTarget(sig) * m.State.StdDev
	move1, move2 := SpreadMoves(target-current, m.State.Slope)
	return Safe(ReversionPnL(sig, qty1, qty2, move1, move2))
}

// Quantities는 헤지 비율로 레그 수량을 계산합니다
func (m *SpreadModel) Quantities(budget, margin1, margin2 float64, q Quotes, sig domain.SignalType) (int, int) {
	p1, p2 := EntryPrices(q, sig)
	q1, q2, err := HedgeRatio(SizingConfig{
		Budget: budget, Margin1: margin1, Margin2: margin2, Price1: p1, Price2: p2,
	}, m.State.Slope)
	if err != nil {
		return 0, 0
	}
	return q1, q2
}
