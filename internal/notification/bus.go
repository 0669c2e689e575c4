package notification

import (
	"log"
	"sync"

	"github.com/assist-by/pairs/internal/domain"
)

// DefaultBufferSize는 Bus 이벤트 버퍼 기본 크기입니다
const DefaultBufferSize = 1024

// Bus는 이벤트를 여러 Sink에 비동기로 전달합니다.
// 전달은 백그라운드 고루틴 하나에서 발행 순서대로 일어나며, 버퍼가 가득 차면 발행자가 대기합니다.
type Bus struct {
	sinks  []Sink
	events chan func(Sink)
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewBus는 새 Bus를 생성하고 전달 고루틴을 시작합니다
func NewBus(buffer int, sinks ...Sink) *Bus {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	b := &Bus{
		sinks:  sinks,
		events: make(chan func(Sink), buffer),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.done)
	for fn := range b.events {
		for _, sink := range b.sinks {
			b.deliver(sink, fn)
		}
	}
}

// deliver는 Sink 하나의 패닉이 다른 Sink 전달을 막지 않도록 합니다
func (b *Bus) deliver(sink Sink, fn func(Sink)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("알림 전달 중 패닉 (%T): %v", sink, r)
		}
	}()
	fn(sink)
}

// Close는 남은 이벤트를 모두 전달한 뒤 반환합니다. 이후 발행은 무시됩니다
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) publish(fn func(Sink)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.events <- fn
}

func (b *Bus) Log(pairID, message string) {
	b.publish(func(s Sink) { s.Log(pairID, message) })
}

func (b *Bus) Transaction(tx domain.Transaction) {
	b.publish(func(s Sink) { s.Transaction(tx) })
}

func (b *Bus) History(rec domain.HistoryRecord) {
	b.publish(func(s Sink) { s.History(rec) })
}

func (b *Bus) PnL(update domain.PnLUpdate) {
	b.publish(func(s Sink) { s.PnL(update) })
}

func (b *Bus) ManualIntervention(req domain.InterventionRequest) {
	b.publish(func(s Sink) { s.ManualIntervention(req) })
}

func (b *Bus) InterventionCleared(pairID, account string) {
	b.publish(func(s Sink) { s.InterventionCleared(pairID, account) })
}

func (b *Bus) PairStateUpdated(update domain.PairStateUpdate) {
	b.publish(func(s Sink) { s.PairStateUpdated(update) })
}
