package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/assist-by/pairs/internal/domain"
)

// Error 타입들은 모델 사용 중 발생할 수 있는 에러를 정의합니다
var (
	ErrUnsupportedModel = errors.New("지원하지 않는 모델입니다")
	ErrNotReady         = errors.New("모델 가격 데이터가 준비되지 않았습니다")
	ErrInvalidState     = errors.New("잘못된 모델 상태 토큰입니다")
)

// PriceError는 SetPrices 입력 검증 에러입니다
type PriceError struct {
	Model string
	Err   error
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("모델 가격 설정 실패 [%s]: %v", e.Model, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *PriceError) Unwrap() error {
	return e.Err
}

// Quotes는 두 레그의 현재 호가입니다
type Quotes struct {
	Leg1 domain.Rates
	Leg2 domain.Rates
}

// ZMode는 z-score 계산에 쓰는 호가 조합입니다
type ZMode int

const (
	ZDisplay ZMode = iota // 표시용
	ZLong                 // 롱 진입(1번 매수/2번 매도) 기준 최악 체결
	ZShort                // 숏 진입(1번 매도/2번 매수) 기준 최악 체결
)

// Model은 페어 트레이딩 모델 인터페이스입니다.
// EntryLogic/ExitLogic은 SetPrices가 성공한 뒤에만 호출해야 합니다.
type Model interface {
	// Name은 모델 이름을 반환합니다
	Name() string

	// SetPrices는 두 레그의 일봉 종가로 모델을 갱신합니다
	SetPrices(s1, s2 []float64) error

	// Ready는 SetPrices가 성공했는지 반환합니다
	Ready() bool

	// Lookback은 필요한 최소 데이터 길이를 반환합니다
	Lookback() int

	// EntryLogic은 진입 시그널을 계산합니다
	EntryLogic(q Quotes) domain.SignalType

	// ExitLogic은 현재 포지션을 청산해야 하는지 판단합니다
	ExitLogic(q Quotes, pos domain.PositionSide) bool

	// ZScore는 z-score를 반환합니다. 준비되지 않았으면 0을 반환합니다
	ZScore(q Quotes, mode ZMode) float64

	// ProfitPotential은 청산 기준까지 회귀했을 때 예상 손익을 반환합니다
	ProfitPotential(q Quotes, sig domain.SignalType, qty1, qty2 int) float64

	// Quantities는 증거금 예산으로 레그별 수량을 계산합니다
	Quantities(budget, margin1, margin2 float64, q Quotes, sig domain.SignalType) (int, int)

	// IsReversal은 같은 날 직전 청산과 반대 방향 진입인지 판단합니다
	IsReversal(lastExit domain.PositionSide, sig domain.SignalType) bool
}

// Lockable은 내부 하위 모델 선택을 저장/복원할 수 있는 모델입니다
type Lockable interface {
	// LockState는 현재 하위 모델을 고정하고 그 토큰을 반환합니다
	LockState() string

	// RestoreState는 저장된 토큰으로 하위 모델을 고정합니다
	RestoreState(token string) error

	// UnlockState는 고정을 해제합니다
	UnlockState()
}

// BaseModel은 모든 모델 구현체에서 공통으로 사용하는 기본 구현을 제공합니다
type BaseModel struct {
	ModelName   string
	Description string
	Config      map[string]interface{}
	ready       bool
}

// Name은 모델 이름을 반환합니다
func (b *BaseModel) Name() string {
	return b.ModelName
}

// Ready는 SetPrices 성공 여부를 반환합니다
func (b *BaseModel) Ready() bool {
	return b.ready
}

// SetReady는 준비 상태를 설정합니다
func (b *BaseModel) SetReady(ready bool) {
	b.ready = ready
}

// GetConfig는 모델 설정의 복사본을 반환합니다
func (b *BaseModel) GetConfig() map[string]interface{} {
	configCopy := make(map[string]interface{})
	for k, v := range b.Config {
		configCopy[k] = v
	}
	return configCopy
}

// IsReversal은 직전 청산 포지션과 반대 방향으로 진입하는 경우 true를 반환합니다
func (b *BaseModel) IsReversal(lastExit domain.PositionSide, sig domain.SignalType) bool {
	if lastExit == domain.FlatPosition || lastExit == "" || sig == domain.NoSignal {
		return false
	}
	return sig.Position() != lastExit
}

// ValidateSeries는 SetPrices 공통 입력 조건을 검사합니다
func ValidateSeries(model string, s1, s2 []float64, lookback int) error {
	switch {
	case len(s1) != len(s2):
		return &PriceError{Model: model, Err: fmt.Errorf("길이가 다릅니다 (%d != %d)", len(s1), len(s2))}
	case len(s1) == 0:
		return &PriceError{Model: model, Err: fmt.Errorf("데이터가 비어있습니다")}
	case len(s1) < lookback:
		return &PriceError{Model: model, Err: fmt.Errorf("데이터가 부족합니다. 필요: %d, 현재: %d", lookback, len(s1))}
	}
	for i := range s1 {
		if s1[i] <= 0 || s2[i] <= 0 {
			return &PriceError{Model: model, Err: fmt.Errorf("%d번째 가격이 0 이하입니다", i)}
		}
	}
	return nil
}

// Factory는 모델 인스턴스를 생성하는 함수 타입입니다
type Factory func(params map[string]interface{}) (Model, error)

// Registry는 사용 가능한 모든 모델을 등록하고 관리합니다
type Registry struct {
	models map[string]Factory
}

// NewRegistry는 새로운 모델 레지스트리를 생성합니다
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]Factory),
	}
}

// Register는 새로운 모델 팩토리를 레지스트리에 등록합니다
func (r *Registry) Register(name string, factory Factory) {
	r.models[name] = factory
}

// Create는 주어진 이름과 설정으로 모델 인스턴스를 생성합니다
func (r *Registry) Create(name string, params map[string]interface{}) (Model, error) {
	factory, exists := r.models[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, name)
	}
	return factory(params)
}

// ListModels는 사용 가능한 모든 모델 이름을 정렬해서 반환합니다
func (r *Registry) ListModels() []string {
	var names []string
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
