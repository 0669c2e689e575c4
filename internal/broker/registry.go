package broker

import (
	"fmt"
	"log"
	"sort"
	"sync"
)

// Registry는 프로세스 전체의 계좌 -> 연결 맵입니다
type Registry struct {
	mu      sync.Mutex
	conns   map[string]*Connection
	running bool
}

// NewRegistry는 빈 레지스트리를 생성합니다
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Start는 레지스트리를 사용 가능 상태로 만듭니다
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
}

// Stop은 모든 연결을 떼어냅니다
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.conns = make(map[string]*Connection)
}

// Register는 계좌 연결을 등록합니다
func (r *Registry) Register(conn *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return fmt.Errorf("레지스트리가 시작되지 않았습니다")
	}
	if _, exists := r.conns[conn.Account]; exists {
		return fmt.Errorf("%w: %s", ErrAccountExists, conn.Account)
	}
	r.conns[conn.Account] = conn
	log.Printf("브로커 연결 등록: %s", conn.Account)
	return nil
}

// Unregister는 계좌 연결을 제거합니다
func (r *Registry) Unregister(account string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, account)
}

// Lookup은 계좌 연결을 찾습니다
func (r *Registry) Lookup(account string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil, false
	}
	conn, ok := r.conns[account]
	return conn, ok
}

// Accounts는 등록된 계좌 목록을 반환합니다
func (r *Registry) Accounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := make([]string, 0, len(r.conns))
	for account := range r.conns {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
