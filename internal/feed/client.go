package feed

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/trading"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 16 * time.Second
	readTimeout       = 60 * time.Second
)

// Quote는 호가 스트림 메시지입니다. 0인 가격 필드는 변경 없음으로 봅니다
type Quote struct {
	Type      string    `json:"type"` // quote 또는 shortable
	Symbol    string    `json:"symbol"`
	Exchange  string    `json:"exchange,omitempty"`
	Bid       float64   `json:"bid,omitempty"`
	Ask       float64   `json:"ask,omitempty"`
	Last      float64   `json:"last,omitempty"`
	Shortable *bool     `json:"shortable,omitempty"`
	Time      time.Time `json:"time,omitempty"`
}

type subscribeRequest struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// Handler는 변환된 틱 메시지를 받습니다
type Handler func(msg trading.Message)

// Client는 웹소켓 호가 스트림을 구독하고 틱 메시지로 변환합니다
type Client struct {
	url      string
	handler  Handler
	liveness *broker.Liveness
	dialer   websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	symbols map[string]bool
	conn    *websocket.Conn
}

// Option은 Client 설정 함수입니다
type Option func(*Client)

// WithBackoff는 재연결 대기 시간 범위를 설정합니다
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = min
		c.maxBackoff = max
	}
}

// WithLiveness는 틱 수신 시 거래소 생존을 기록할 오라클을 설정합니다
func WithLiveness(l *broker.Liveness) Option {
	return func(c *Client) {
		c.liveness = l
	}
}

// NewClient는 새 호가 스트림 클라이언트를 생성합니다
func NewClient(url string, handler Handler, opts ...Option) *Client {
	c := &Client{
		url:        url,
		handler:    handler,
		dialer:     websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		symbols:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe는 종목을 구독 목록에 추가합니다.
// 연결되어 있으면 바로 요청하고 아니면 다음 연결 때 요청합니다.
func (c *Client) Subscribe(symbols ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []string
	for _, s := range symbols {
		if s == "" || c.symbols[s] {
			continue
		}
		c.symbols[s] = true
		added = append(added, s)
	}
	if len(added) == 0 || c.conn == nil {
		return nil
	}
	return c.conn.WriteJSON(subscribeRequest{Action: "subscribe", Symbols: added})
}

// Symbols는 구독 중인 종목 목록을 반환합니다
func (c *Client) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.symbolsLocked()
}

func (c *Client) symbolsLocked() []string {
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Connected는 스트림 연결 여부를 반환합니다
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run은 ctx가 끝날 때까지 연결을 유지합니다. 끊기면 지수 백오프로 재연결합니다
func (c *Client) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		log.Printf("호가 스트림 연결 중: %s", c.url)
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Printf("호가 스트림 연결 실패: %v (재시도 %v 후)", err, backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > c.maxBackoff {
					backoff = c.maxBackoff
				}
			}
			continue
		}

		backoff = c.minBackoff
		if err := c.serve(ctx, conn); err != nil && ctx.Err() == nil {
			log.Printf("호가 스트림 끊김: %v", err)
		}
	}
}

// serve는 구독을 다시 요청한 뒤 연결이 끊길 때까지 메시지를 읽습니다
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	symbols := c.symbolsLocked()
	var err error
	if len(symbols) > 0 {
		err = conn.WriteJSON(subscribeRequest{Action: "subscribe", Symbols: symbols})
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()
	if err != nil {
		return err
	}
	log.Printf("호가 스트림 연결됨 (%d개 종목)", len(symbols))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var q Quote
		if err := json.Unmarshal(data, &q); err != nil {
			log.Printf("호가 메시지 파싱 실패: %v", err)
			continue
		}
		for _, msg := range c.translate(q, time.Now()) {
			c.handler(msg)
		}
	}
}

// translate는 스트림 메시지를 틱 메시지로 변환하고 거래소 생존을 기록합니다
func (c *Client) translate(q Quote, received time.Time) []trading.Message {
	if q.Symbol == "" {
		return nil
	}
	at := q.Time
	if at.IsZero() {
		at = received
	}

	switch q.Type {
	case "shortable":
		if q.Shortable == nil {
			return nil
		}
		return []trading.Message{trading.ShortableMsg{Symbol: q.Symbol, Shortable: *q.Shortable, Time: at}}
	case "quote", "":
		var msgs []trading.Message
		add := func(t trading.TickType, price float64) {
			if price > 0 {
				msgs = append(msgs, trading.TickMsg{Symbol: q.Symbol, Type: t, Price: price, Exchange: q.Exchange, Time: at})
			}
		}
		add(trading.TickBid, q.Bid)
		add(trading.TickAsk, q.Ask)
		add(trading.TickLast, q.Last)
		if len(msgs) > 0 && c.liveness != nil {
			c.liveness.Touch(q.Exchange, at)
		}
		return msgs
	}
	return nil
}
