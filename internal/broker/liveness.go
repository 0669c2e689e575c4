package broker

import (
	"sync"
	"time"
)

// DefaultLivenessWindow는 거래소가 살아 있다고 보는 마지막 틱 이후 시간입니다
const DefaultLivenessWindow = 1800 * time.Second

// Liveness는 거래소별 마지막 틱 시각을 기록하는 오라클입니다
type Liveness struct {
	mu     sync.RWMutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewLiveness는 새 오라클을 생성합니다
func NewLiveness(window time.Duration) *Liveness {
	if window <= 0 {
		window = DefaultLivenessWindow
	}
	return &Liveness{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// WithClock은 테스트용 시계를 설정합니다
func (l *Liveness) WithClock(now func() time.Time) *Liveness {
	l.now = now
	return l
}

// Touch는 거래소에서 틱을 받았음을 기록합니다
func (l *Liveness) Touch(venue string, at time.Time) {
	if venue == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if at.After(l.seen[venue]) {
		l.seen[venue] = at
	}
}

// IsExchangeActive는 window 안에 틱이 있었는지 확인합니다. 거래소가 지정되지 않았으면 true입니다
func (l *Liveness) IsExchangeActive(venue string) bool {
	if venue == "" {
		return true
	}
	l.mu.RLock()
	last, ok := l.seen[venue]
	l.mu.RUnlock()
	if !ok {
		return false
	}
	return l.now().Sub(last) <= l.window
}
