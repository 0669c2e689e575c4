package kalman

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/assist-by/pairs/internal/indicator"
	"github.com/assist-by/pairs/internal/strategy"
)

// 레지스트리 등록 이름
const (
	AutoName = "kalman-auto"
	GridName = "kalman-grid"
)

var (
	defaultDeltas = []float64{1e-6, 1e-5, 1e-4, 1e-3}
	defaultVes    = []float64{1e-4, 1e-3, 1e-2, 1e-1}
)

// SubModel은 칼만 필터 하이퍼파라미터 조합 하나입니다
type SubModel struct {
	Delta float64
	Ve    float64
}

// Token은 모델 잠금 상태로 저장하는 문자열을 반환합니다
func (s SubModel) Token() string {
	return fmt.Sprintf("delta=%g;ve=%g", s.Delta, s.Ve)
}

// ParseToken은 Token 형식 문자열을 해석합니다
func ParseToken(token string) (SubModel, error) {
	var sub SubModel
	var haveDelta, haveVe bool
	for _, part := range strings.Split(token, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return SubModel{}, fmt.Errorf("%w: %q", strategy.ErrInvalidState, token)
		}
		v, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return SubModel{}, fmt.Errorf("%w: %q", strategy.ErrInvalidState, token)
		}
		switch kv[0] {
		case "delta":
			sub.Delta, haveDelta = v, true
		case "ve":
			sub.Ve, haveVe = v, true
		default:
			return SubModel{}, fmt.Errorf("%w: %q", strategy.ErrInvalidState, token)
		}
	}
	if !haveDelta || !haveVe {
		return SubModel{}, fmt.Errorf("%w: %q", strategy.ErrInvalidState, token)
	}
	return sub, nil
}

// Model은 칼만 필터로 추정한 관계식의 잔차 z-score 모델입니다.
// 후보 하위 모델 중 로그 우도가 가장 높은 것을 고르고, 포지션 보유 중에는 잠가서 유지합니다.
type Model struct {
	strategy.SpreadModel

	candidates []SubModel
	lookback   int
	active     SubModel
	locked     bool
	filter     *indicator.Kalman
}

func newModel(name, desc string, params map[string]interface{}, grid bool) (strategy.Model, error) {
	r := &strategy.ParamReader{Params: params}
	lookback := r.Int("lookback", 120)
	ve := r.Float("ve", 1e-3)
	band := r.Band()
	if r.Err != nil {
		return nil, fmt.Errorf("%s 모델 설정 오류: %w", name, r.Err)
	}
	if lookback < 3 {
		return nil, fmt.Errorf("%s 모델 설정 오류: lookback=%d", name, lookback)
	}

	var candidates []SubModel
	if grid {
		for _, d := range defaultDeltas {
			for _, v := range defaultVes {
				candidates = append(candidates, SubModel{Delta: d, Ve: v})
			}
		}
	} else {
		if ve <= 0 {
			return nil, fmt.Errorf("%s 모델 설정 오류: ve=%v", name, ve)
		}
		for _, d := range defaultDeltas {
			candidates = append(candidates, SubModel{Delta: d, Ve: ve})
		}
	}

	return &Model{
		SpreadModel: strategy.SpreadModel{
			BaseModel: strategy.BaseModel{
				ModelName:   name,
				Description: desc,
				Config:      params,
			},
			Band: strategy.NewBandLogic(band),
		},
		candidates: candidates,
		lookback:   lookback,
	}, nil
}

// NewAuto는 delta만 고르는 칼만 모델을 생성합니다
func NewAuto(params map[string]interface{}) (strategy.Model, error) {
	return newModel(AutoName, "칼만 필터 (delta 자동 선택)", params, false)
}

// NewGrid는 delta와 ve 격자에서 고르는 칼만 모델을 생성합니다
func NewGrid(params map[string]interface{}) (strategy.Model, error) {
	return newModel(GridName, "칼만 필터 (delta/ve 격자 선택)", params, true)
}

// Lookback은 필터에 넣는 데이터 길이입니다
func (m *Model) Lookback() int {
	return m.lookback
}

// SetPrices는 필터를 다시 돌려 관계식을 갱신합니다.
// 잠긴 상태면 잠긴 하위 모델만 사용합니다.
func (m *Model) SetPrices(s1, s2 []float64) error {
	if err := strategy.ValidateSeries(m.Name(), s1, s2, m.lookback); err != nil {
		m.SetReady(false)
		return err
	}
	start := len(s1) - m.lookback
	x, y := s2[start:], s1[start:]

	candidates := m.candidates
	if m.locked {
		candidates = []SubModel{m.active}
	}

	var best *indicator.Kalman
	var bestSub SubModel
	for _, sub := range candidates {
		k, err := indicator.NewKalman(sub.Delta, sub.Ve)
		if err != nil {
			m.SetReady(false)
			return &strategy.PriceError{Model: m.Name(), Err: err}
		}
		if err := k.Fit(x, y); err != nil {
			m.SetReady(false)
			return &strategy.PriceError{Model: m.Name(), Err: err}
		}
		if best == nil || k.LogLikelihood > best.LogLikelihood {
			best, bestSub = k, sub
		}
	}

	if best.StdDev() <= 0 {
		m.SetReady(false)
		return &strategy.PriceError{Model: m.Name(), Err: fmt.Errorf("예측 오차 표준편차가 0입니다")}
	}

	m.filter = best
	m.active = bestSub
	m.State = strategy.SpreadState{Intercept: best.Intercept, Slope: best.Slope, StdDev: best.StdDev()}
	m.SetReady(true)
	return nil
}

// Active는 현재 하위 모델을 반환합니다
func (m *Model) Active() SubModel {
	return m.active
}

// Locked는 잠금 여부를 반환합니다
func (m *Model) Locked() bool {
	return m.locked
}

// LockState는 현재 하위 모델을 잠그고 토큰을 반환합니다
func (m *Model) LockState() string {
	if !m.Ready() && !m.locked {
		return ""
	}
	m.locked = true
	return m.active.Token()
}

// RestoreState는 저장된 토큰의 하위 모델로 잠급니다. 다음 SetPrices부터 적용됩니다
func (m *Model) RestoreState(token string) error {
	sub, err := ParseToken(token)
	if err != nil {
		return err
	}
	found := false
	for _, c := range m.candidates {
		if c == sub {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s 후보에 없는 하위 모델 %s", strategy.ErrInvalidState, m.Name(), token)
	}
	m.active = sub
	m.locked = true
	return nil
}

// UnlockState는 잠금을 해제합니다
func (m *Model) UnlockState() {
	m.locked = false
}

// RegisterModel은 두 칼만 모델을 레지스트리에 등록합니다
func RegisterModel(registry *strategy.Registry) {
	registry.Register(AutoName, NewAuto)
	registry.Register(GridName, NewGrid)
}
