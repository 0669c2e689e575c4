package trading

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Router는 프로세스 전체에서 실행 중인 PairTradingCore 목록입니다.
// 외부 이벤트는 Publish로 모든 코어에 전달되고 각 코어가 관련 여부를 판단합니다.
type Router struct {
	mu      sync.Mutex
	cores   map[string]*PairTradingCore
	running bool
}

// NewRouter는 빈 라우터를 생성합니다
func NewRouter() *Router {
	return &Router{cores: make(map[string]*PairTradingCore)}
}

// Start는 라우터를 사용 가능 상태로 만듭니다
func (r *Router) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
}

// Stop은 모든 코어를 종료하고 목록을 비웁니다
func (r *Router) Stop() {
	r.mu.Lock()
	cores := r.cores
	r.cores = make(map[string]*PairTradingCore)
	r.running = false
	r.mu.Unlock()

	for _, core := range cores {
		core.Stop()
	}
}

// Register는 코어를 등록하고 시작합니다
func (r *Router) Register(ctx context.Context, core *PairTradingCore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return fmt.Errorf("라우터가 시작되지 않았습니다")
	}
	if _, exists := r.cores[core.PairID()]; exists {
		return fmt.Errorf("이미 실행 중인 페어입니다: %s", core.PairID())
	}
	r.cores[core.PairID()] = core
	core.Start(ctx)
	log.Printf("페어 코어 등록: %s", core.PairID())
	return nil
}

// Unregister는 코어를 종료하고 목록에서 제거합니다
func (r *Router) Unregister(pairID string) {
	r.mu.Lock()
	core, ok := r.cores[pairID]
	delete(r.cores, pairID)
	r.mu.Unlock()

	if ok {
		core.Stop()
	}
}

// Publish는 메시지를 모든 코어에 전달하고 받아들인 코어 수를 반환합니다
func (r *Router) Publish(msg Message) int {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return 0
	}
	cores := make([]*PairTradingCore, 0, len(r.cores))
	for _, core := range r.cores {
		cores = append(cores, core)
	}
	r.mu.Unlock()

	accepted := 0
	for _, core := range cores {
		if core.Post(msg) {
			accepted++
		}
	}
	return accepted
}

// Lookup은 페어 코어를 찾습니다
func (r *Router) Lookup(pairID string) (*PairTradingCore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	core, ok := r.cores[pairID]
	return core, ok
}

// Active는 실행 중인 페어 ID를 정렬해서 반환합니다
func (r *Router) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.cores))
	for id := range r.cores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
