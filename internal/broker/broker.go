// internal/broker/broker.go
package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/assist-by/pairs/internal/domain"
)

var (
	ErrNotConnected  = errors.New("브로커에 연결되어 있지 않습니다")
	ErrUnknownOrder  = errors.New("알 수 없는 주문입니다")
	ErrAccountExists = errors.New("이미 등록된 계좌입니다")
)

// OrderSink는 브로커 연결 하나와의 상호작용을 위한 인터페이스입니다.
// 주문 결과는 반환값이 아니라 주문 상태/체결/수수료 메시지로 비동기 전달됩니다.
type OrderSink interface {
	// NextOrderID는 다음 주문 ID를 할당합니다
	NextOrderID(ctx context.Context) (int64, error)

	// PlaceOrder는 시장가 주문을 제출합니다
	PlaceOrder(ctx context.Context, order domain.OrderRequest) error

	// CancelOrder는 주문을 취소합니다
	CancelOrder(ctx context.Context, orderID int64) error

	// SubscribeQuotes는 종목 호가 구독을 요청합니다
	SubscribeQuotes(ctx context.Context, symbols ...string) error

	// IsConnected는 연결 상태를 반환합니다
	IsConnected() bool
}

// Connection은 계좌 하나의 브로커 연결입니다.
// 여러 페어가 같은 연결을 공유하므로 주문 ID 할당 호출만 뮤텍스로 직렬화합니다.
type Connection struct {
	Account string

	sink OrderSink
	idMu sync.Mutex
}

// NewConnection은 새 연결 래퍼를 생성합니다
func NewConnection(account string, sink OrderSink) *Connection {
	return &Connection{Account: account, sink: sink}
}

// AllocateOrderID는 주문 ID를 하나 할당합니다
func (c *Connection) AllocateOrderID(ctx context.Context) (int64, error) {
	if !c.sink.IsConnected() {
		return 0, ErrNotConnected
	}
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return c.sink.NextOrderID(ctx)
}

// PlaceOrder는 주문을 제출합니다
func (c *Connection) PlaceOrder(ctx context.Context, order domain.OrderRequest) error {
	if !c.sink.IsConnected() {
		return ErrNotConnected
	}
	order.Account = c.Account
	return c.sink.PlaceOrder(ctx, order)
}

// CancelOrder는 주문을 취소합니다
func (c *Connection) CancelOrder(ctx context.Context, orderID int64) error {
	if !c.sink.IsConnected() {
		return ErrNotConnected
	}
	return c.sink.CancelOrder(ctx, orderID)
}

// SubscribeQuotes는 호가 구독을 요청합니다
func (c *Connection) SubscribeQuotes(ctx context.Context, symbols ...string) error {
	if !c.sink.IsConnected() {
		return ErrNotConnected
	}
	return c.sink.SubscribeQuotes(ctx, symbols...)
}

// IsConnected는 연결 상태를 반환합니다
func (c *Connection) IsConnected() bool {
	return c.sink.IsConnected()
}
