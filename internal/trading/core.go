package trading

import (
	"context"
	"log"
	"sync"
	"time"
)

// envelope는 큐에 들어간 메시지와 들어간 시각입니다
type envelope struct {
	msg Message
	at  time.Time
}

// PairTradingCore는 엔진 하나를 전용 워커 고루틴과 메시지 큐로 감쌉니다.
// 관련 여부는 큐에 넣을 때 판단하므로 엔진은 자기 페어에 대한 메시지만 받습니다.
type PairTradingCore struct {
	engine  *Engine
	cfg     Config
	now     func() time.Time
	pairID  string
	account string
	symbols [2]string

	mu         sync.Mutex
	queue      []envelope
	running    bool
	orderIDs   map[int64]bool
	execIDs    map[string]bool
	requestIDs map[int64]bool

	notify chan struct{}
	done   chan struct{}
}

// NewPairTradingCore는 페어 엔진과 디스패치 래퍼를 생성합니다
func NewPairTradingCore(cfg Config, deps Deps) *PairTradingCore {
	pc := deps.Pair.Config()
	c := &PairTradingCore{
		cfg:        cfg,
		now:        deps.Now,
		pairID:     pc.ID,
		account:    deps.Portfolio.Account,
		symbols:    [2]string{pc.Symbol1, pc.Symbol2},
		orderIDs:   make(map[int64]bool),
		execIDs:    make(map[string]bool),
		requestIDs: make(map[int64]bool),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	if c.now == nil {
		c.now = time.Now
	}
	deps.Tracker = c
	c.engine = NewEngine(cfg, deps)
	return c
}

// PairID는 페어 식별자를 반환합니다
func (c *PairTradingCore) PairID() string {
	return c.pairID
}

// Engine은 감싸고 있는 엔진을 반환합니다. 엔진 메서드는 워커 밖에서 호출하면 안 됩니다
func (c *PairTradingCore) Engine() *Engine {
	return c.engine
}

// Start는 워커를 띄우고 시작 메시지를 넣습니다
func (c *PairTradingCore) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.run(ctx)
	c.enqueue(StartMsg{})
}

// Stop은 종료 메시지를 넣고 이후 메시지를 받지 않습니다. 워커는 종료 메시지 처리 후 끝납니다
func (c *PairTradingCore) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	c.enqueue(StopMsg{})
}

// Done은 워커가 끝나면 닫히는 채널을 반환합니다
func (c *PairTradingCore) Done() <-chan struct{} {
	return c.done
}

// Post는 관련 있는 메시지만 큐에 넣습니다. 넣었으면 true를 반환합니다
func (c *PairTradingCore) Post(msg Message) bool {
	c.mu.Lock()
	if !c.running || !c.relevantLocked(msg) {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, envelope{msg: msg, at: c.now()})
	c.mu.Unlock()

	c.signal()
	return true
}

// TrackOrder는 엔진이 제출한 주문 ID를 필터에 등록합니다
func (c *PairTradingCore) TrackOrder(orderID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderIDs[orderID] = true
}

// TrackRequest는 엔진이 보낸 히스토리 요청 ID를 필터에 등록합니다
func (c *PairTradingCore) TrackRequest(requestID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestIDs[requestID] = true
}

// ForgetOrder는 끝난 주문과 그 체결 ID를 필터에서 지웁니다
func (c *PairTradingCore) ForgetOrder(orderID int64, execIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orderIDs, orderID)
	for _, id := range execIDs {
		delete(c.execIDs, id)
	}
}

// ForgetRequest는 응답을 받았거나 대체된 히스토리 요청 ID를 지웁니다
func (c *PairTradingCore) ForgetRequest(requestID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.requestIDs, requestID)
}

func (c *PairTradingCore) enqueue(msg Message) {
	c.mu.Lock()
	c.queue = append(c.queue, envelope{msg: msg, at: c.now()})
	c.mu.Unlock()
	c.signal()
}

func (c *PairTradingCore) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *PairTradingCore) pop() (envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return envelope{}, false
	}
	env := c.queue[0]
	c.queue[0] = envelope{}
	c.queue = c.queue[1:]
	return env, true
}

// run은 큐를 도착 순서대로 비우며 엔진을 호출합니다
func (c *PairTradingCore) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] 워커 종료: %v", c.pairID, ctx.Err())
			return
		case <-c.notify:
		}

		for {
			env, ok := c.pop()
			if !ok {
				break
			}
			if c.stale(env) {
				continue
			}
			c.engine.Handle(ctx, env.msg)
			if _, stop := env.msg.(StopMsg); stop {
				return
			}
		}
	}
}

// relevantLocked는 메시지가 이 페어와 관련 있는지 판단합니다. c.mu를 잡은 상태에서 호출합니다
func (c *PairTradingCore) relevantLocked(msg Message) bool {
	switch m := msg.(type) {
	case TickMsg:
		return c.hasSymbol(m.Symbol)
	case ShortableMsg:
		return c.hasSymbol(m.Symbol)
	case TimerMsg:
		return true
	case OrderStatusMsg:
		return c.orderIDs[m.Status.OrderID]
	case ErrorMsg:
		return c.orderIDs[m.OrderID]
	case ExecutionMsg:
		if !c.orderIDs[m.Execution.OrderID] {
			return false
		}
		c.execIDs[m.Execution.ExecID] = true
		return true
	case CommissionMsg:
		return c.execIDs[m.Report.ExecID]
	case PortfolioMsg:
		return m.Item.Account == c.account && c.hasSymbol(m.Item.Symbol)
	case PortfolioEndMsg:
		return m.Account == c.account
	case OpenPositionMsg:
		return m.PairID == c.pairID
	case ClosePositionMsg:
		return m.PairID == c.pairID
	case ResumeMsg:
		return m.PairID == c.pairID
	case HistoryReadyMsg:
		return c.requestIDs[m.RequestID]
	case HistoryFailedMsg:
		return c.requestIDs[m.RequestID]
	case ConnectionMsg:
		return m.Account == c.account
	}
	return false
}

func (c *PairTradingCore) hasSymbol(symbol string) bool {
	return symbol == c.symbols[0] || symbol == c.symbols[1]
}

// stale은 처리 시점에 너무 오래된 메시지인지 판단합니다.
// 주문 피드백, 히스토리 결과, 연결 변경, 시작/종료 메시지는 버리지 않습니다.
func (c *PairTradingCore) stale(env envelope) bool {
	now := c.now()
	// 주문 상태/체결/수수료/에러를 버리면 레그 수량과 미체결 주문이 브로커와 어긋나고
	// 히스토리 결과를 버리면 요청이 끝나지 않은 채 남으므로 나이와 상관없이 처리합니다
	switch m := env.msg.(type) {
	case TickMsg:
		at := m.Time
		if at.IsZero() {
			at = env.at
		}
		return now.Sub(at) > c.cfg.TickMaxAge
	case ShortableMsg:
		at := m.Time
		if at.IsZero() {
			at = env.at
		}
		return now.Sub(at) > c.cfg.GenericTickMaxAge
	case TimerMsg, PortfolioMsg, PortfolioEndMsg, OpenPositionMsg, ClosePositionMsg, ResumeMsg:
		return now.Sub(env.at) > c.cfg.MessageMaxAge
	}
	return false
}
