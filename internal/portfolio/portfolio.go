package portfolio

import (
	"log"
	"sync"

	"github.com/assist-by/pairs/internal/domain"
)

// 최소 슬롯 점유율과 자산 기준
const (
	minOccupation = 0.01
	minEquity     = 1.0
)

// Portfolio는 한 계좌에 묶인 페어 묶음과 슬롯 잠금 집합을 관리합니다.
// 잠금 순서는 항상 포트폴리오 뮤텍스 다음 페어 뮤텍스입니다.
type Portfolio struct {
	ID           string
	Account      string
	MaxPairs     int
	AccountAlloc float64 // 계좌 자산 중 이 포트폴리오에 배정하는 비율 (%)

	mu     sync.Mutex
	equity float64
	pairs  map[string]*Pair
	order  []string
	locks  map[string]float64 // 슬롯을 예약한 페어 -> 점유율
}

// New는 새 포트폴리오를 생성합니다
func New(id, account string, maxPairs int, accountAlloc float64) *Portfolio {
	return &Portfolio{
		ID:           id,
		Account:      account,
		MaxPairs:     maxPairs,
		AccountAlloc: accountAlloc,
		pairs:        make(map[string]*Pair),
		locks:        make(map[string]float64),
	}
}

// SetEquity는 브로커가 보고한 계좌 순자산을 기록합니다
func (p *Portfolio) SetEquity(equity float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.equity = equity
}

// Equity는 마지막으로 보고된 계좌 순자산을 반환합니다
func (p *Portfolio) Equity() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.equity
}

// AddPair는 페어를 추가합니다
func (p *Portfolio) AddPair(cfg domain.PairConfig) (*Pair, error) {
	if err := ValidatePairConfig(cfg); err != nil {
		return nil, NewPairError(cfg.ID, "add", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.pairs[cfg.ID]; exists {
		return nil, NewPairError(cfg.ID, "add", ErrPairExists)
	}
	pair := NewPair(cfg)
	p.pairs[cfg.ID] = pair
	p.order = append(p.order, cfg.ID)
	return pair, nil
}

// RemovePair는 포지션과 미체결 주문이 없는 페어만 삭제합니다
func (p *Portfolio) RemovePair(pairID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pair, exists := p.pairs[pairID]
	if !exists {
		return NewPairError(pairID, "remove", ErrUnknownPair)
	}
	if _, reserved := p.locks[pairID]; reserved || pair.busy() {
		return NewPairError(pairID, "remove", ErrPairBusy)
	}

	delete(p.pairs, pairID)
	for i, id := range p.order {
		if id == pairID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// Pair는 식별자로 페어를 찾습니다
func (p *Portfolio) Pair(pairID string) (*Pair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pair, ok := p.pairs[pairID]
	return pair, ok
}

// Pairs는 등록 순서대로 페어 목록을 반환합니다
func (p *Portfolio) Pairs() []*Pair {
	p.mu.Lock()
	defer p.mu.Unlock()
	pairs := make([]*Pair, 0, len(p.order))
	for _, id := range p.order {
		pairs = append(pairs, p.pairs[id])
	}
	return pairs
}

// occupiedLocked는 예약 + 보유 중인 점유율 합계를 계산합니다. p.mu를 잡은 상태에서 호출합니다
func (p *Portfolio) occupiedLocked() float64 {
	total := 0.0
	for id, pair := range p.pairs {
		if weight, reserved := p.locks[id]; reserved {
			total += weight
			continue
		}
		if pair.Runtime().IsPositioned() {
			total += pair.Config().SlotOccupation
		}
	}
	return total
}

// Occupied는 예약 + 보유 중인 점유율 합계를 반환합니다
func (p *Portfolio) Occupied() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.occupiedLocked()
}

// AcquirePositionLock은 페어의 슬롯을 예약합니다.
// 점유율이 너무 작거나, 자산을 아직 모르거나, 모르는 페어거나, 최대 페어 수를 넘으면 false를 반환합니다.
func (p *Portfolio) AcquirePositionLock(pairID string, occupation float64) bool {
	if occupation < minOccupation {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.equity < minEquity {
		return false
	}
	if _, exists := p.pairs[pairID]; !exists {
		return false
	}
	if _, reserved := p.locks[pairID]; reserved {
		return true
	}

	// 부동소수 누적 오차 허용
	if p.occupiedLocked()+occupation > float64(p.MaxPairs)+1e-9 {
		log.Printf("[%s] 슬롯 부족: 사용 %.2f + 요청 %.2f > 최대 %d",
			pairID, p.occupiedLocked(), occupation, p.MaxPairs)
		return false
	}
	p.locks[pairID] = occupation
	return true
}

// ReleasePositionLock은 예약을 해제합니다. 여러 번 호출해도 안전합니다
func (p *Portfolio) ReleasePositionLock(pairID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.locks, pairID)
}

// HasPositionLock은 예약 여부를 반환합니다
func (p *Portfolio) HasPositionLock(pairID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.locks[pairID]
	return ok
}

// AllocateMargin은 점유율에 해당하는 증거금 예산을 계산합니다
// occupation × equity × AccountAlloc/100 / MaxPairs
func (p *Portfolio) AllocateMargin(occupation float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.MaxPairs <= 0 {
		return 0
	}
	return occupation * p.equity * p.AccountAlloc / 100 / float64(p.MaxPairs)
}
