package portfolio

import (
	"fmt"
	"sync"

	"github.com/assist-by/pairs/internal/domain"
)

// Pair는 포트폴리오가 소유하는 페어입니다.
// 설정은 사용자 명령이, 실행 상태는 엔진이 갱신하므로 둘 다 뮤텍스로 보호합니다.
type Pair struct {
	mu      sync.RWMutex
	config  domain.PairConfig
	runtime domain.PairRuntime
}

// NewPair는 새 페어를 생성합니다
func NewPair(cfg domain.PairConfig) *Pair {
	return &Pair{
		config: cfg,
		runtime: domain.PairRuntime{
			Status:   domain.StatusPending,
			Position: domain.FlatPosition,
		},
	}
}

// ValidatePairConfig는 페어 설정을 검사합니다
func ValidatePairConfig(cfg domain.PairConfig) error {
	switch {
	case cfg.ID == "":
		return fmt.Errorf("%w: id가 비어있습니다", ErrInvalidPair)
	case cfg.Symbol1 == "" || cfg.Symbol2 == "":
		return fmt.Errorf("%w: 심볼이 비어있습니다", ErrInvalidPair)
	case cfg.Symbol1 == cfg.Symbol2:
		return fmt.Errorf("%w: 두 심볼이 같습니다", ErrInvalidPair)
	case cfg.SlotOccupation < 0.1 || cfg.SlotOccupation > 2.0:
		return ErrInvalidOccupation
	case cfg.Margin1 <= 0 || cfg.Margin1 > 100 || cfg.Margin2 <= 0 || cfg.Margin2 > 100:
		return fmt.Errorf("%w: 증거금률은 0 초과 100 이하이어야 합니다", ErrInvalidPair)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("%w: 시간대 %q: %v", ErrInvalidPair, cfg.Timezone, err)
	}
	for _, w := range []domain.HoursWindow{cfg.TradingHours, cfg.EntryHours, cfg.ExitHours} {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPair, err)
		}
	}
	return nil
}

// ID는 페어 식별자를 반환합니다
func (p *Pair) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.ID
}

// Config는 설정의 복사본을 반환합니다
func (p *Pair) Config() domain.PairConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// Runtime은 실행 상태의 복사본을 반환합니다
func (p *Pair) Runtime() domain.PairRuntime {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runtime
}

// UpdateRuntime은 실행 상태를 갱신합니다. fn 안에서 다른 락을 잡으면 안 됩니다
func (p *Pair) UpdateRuntime(fn func(rt *domain.PairRuntime)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.runtime)
}

// SetTradingStatus는 사용자 거래 상태를 바꿉니다
func (p *Pair) SetTradingStatus(status domain.TradingStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.TradingStatus = status
}

// busy는 포지션이나 미체결 주문이 있는지 확인합니다
func (p *Pair) busy() bool {
	rt := p.Runtime()
	return rt.IsPositioned() || rt.PendingOrders
}
