package paper

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/trading"
)

type sink struct {
	mu   sync.Mutex
	msgs []trading.Message
}

func (s *sink) Publish(msg trading.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return 1
}

func (s *sink) take() []trading.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.msgs
	s.msgs = nil
	return out
}

type subscriber struct {
	symbols []string
}

func (s *subscriber) Subscribe(symbols ...string) error {
	s.symbols = append(s.symbols, symbols...)
	return nil
}

var clock = time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

func newBroker(t *testing.T, opts ...Option) (*Broker, *sink) {
	t.Helper()
	out := &sink{}
	b := New("DU1", 1000, out, append([]Option{WithClock(func() time.Time { return clock })}, opts...)...)
	b.SetConnected(true)
	require.Equal(t, []trading.Message{trading.ConnectionMsg{Account: "DU1", Connected: true}}, out.take())
	return b, out
}

func quote(b *Broker, symbol string, bid, ask float64) {
	b.Observe(trading.TickMsg{Symbol: symbol, Type: trading.TickBid, Price: bid})
	b.Observe(trading.TickMsg{Symbol: symbol, Type: trading.TickAsk, Price: ask})
}

func TestRoundTrip(t *testing.T) {
	b, out := newBroker(t)
	ctx := context.Background()
	quote(b, "AAA", 10.0, 10.1)

	id, err := b.NextOrderID(ctx)
	require.NoError(t, err)
	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: id, Symbol: "AAA", Side: domain.Buy, Quantity: 10}))

	msgs := out.take()
	require.Len(t, msgs, 3)
	exec := msgs[0].(trading.ExecutionMsg).Execution
	assert.Equal(t, id, exec.OrderID)
	assert.Equal(t, 10.1, exec.Price)
	assert.Equal(t, clock, exec.Time)

	report := msgs[1].(trading.CommissionMsg).Report
	assert.Equal(t, exec.ExecID, report.ExecID)
	assert.InDelta(t, 0.0404, report.Commission, 1e-9)
	assert.Equal(t, math.MaxFloat64, report.RealizedPnL, "진입 체결은 실현손익 없음")

	status := msgs[2].(trading.OrderStatusMsg).Status
	assert.Equal(t, domain.OrderFilled, status.State)
	assert.Equal(t, 10, status.Filled)
	assert.Zero(t, status.Remaining)
	assert.Equal(t, 10, b.Position("AAA"))

	quote(b, "AAA", 10.5, 10.6)
	id2, _ := b.NextOrderID(ctx)
	assert.Equal(t, id+1, id2)
	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: id2, Symbol: "AAA", Side: domain.Sell, Quantity: 10}))

	msgs = out.take()
	require.Len(t, msgs, 3)
	report = msgs[1].(trading.CommissionMsg).Report
	assert.InDelta(t, 3.958, report.RealizedPnL, 1e-9)
	assert.NotEqual(t, exec.ExecID, report.ExecID)

	assert.Zero(t, b.Position("AAA"))
	assert.InDelta(t, 1003.9176, b.Equity(), 1e-9)
}

func TestSlippage(t *testing.T) {
	b, out := newBroker(t, WithSlippage(0.01), WithFeeRate(0))
	quote(b, "AAA", 10, 10)

	require.NoError(t, b.PlaceOrder(context.Background(), domain.OrderRequest{OrderID: 1, Symbol: "AAA", Side: domain.Sell, Quantity: 1}))
	exec := out.take()[0].(trading.ExecutionMsg).Execution
	assert.InDelta(t, 9.9, exec.Price, 1e-9)

	require.NoError(t, b.PlaceOrder(context.Background(), domain.OrderRequest{OrderID: 2, Symbol: "AAA", Side: domain.Buy, Quantity: 1}))
	exec = out.take()[0].(trading.ExecutionMsg).Execution
	assert.InDelta(t, 10.1, exec.Price, 1e-9)
}

func TestNoQuote(t *testing.T) {
	b, out := newBroker(t)
	ctx := context.Background()

	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 7, Symbol: "ZZZ", Side: domain.Buy, Quantity: 5}))
	msgs := out.take()
	require.Len(t, msgs, 1)
	errMsg := msgs[0].(trading.ErrorMsg)
	assert.Equal(t, int64(7), errMsg.OrderID)
	assert.Equal(t, CodeNoQuote, errMsg.Code)

	require.NoError(t, b.CancelOrder(ctx, 7))
	assert.Equal(t, []trading.Message{trading.OrderStatusMsg{Status: domain.OrderStatus{
		OrderID: 7, Account: "DU1", State: domain.OrderCancelled,
	}}}, out.take())

	assert.ErrorIs(t, b.CancelOrder(ctx, 7), broker.ErrUnknownOrder)
}

func TestLastPriceFallback(t *testing.T) {
	b, out := newBroker(t)
	b.Observe(trading.TickMsg{Symbol: "AAA", Type: trading.TickLast, Price: 12})

	require.NoError(t, b.PlaceOrder(context.Background(), domain.OrderRequest{OrderID: 1, Symbol: "AAA", Side: domain.Buy, Quantity: 1}))
	exec := out.take()[0].(trading.ExecutionMsg).Execution
	assert.Equal(t, 12.0, exec.Price)
}

func TestPortfolioSnapshot(t *testing.T) {
	b, out := newBroker(t, WithFeeRate(0))
	ctx := context.Background()
	quote(b, "AAA", 10, 10)
	quote(b, "BBB", 20, 20)

	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 1, Symbol: "BBB", Side: domain.Sell, Quantity: 5}))
	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 2, Symbol: "AAA", Side: domain.Buy, Quantity: 10}))
	out.take()

	quote(b, "BBB", 18, 18)
	b.PublishPortfolio()
	msgs := out.take()
	require.Len(t, msgs, 3)

	aaa := msgs[0].(trading.PortfolioMsg).Item
	assert.Equal(t, "AAA", aaa.Symbol)
	assert.Equal(t, 10, aaa.Quantity)

	bbb := msgs[1].(trading.PortfolioMsg).Item
	assert.Equal(t, -5, bbb.Quantity)
	assert.Equal(t, 20.0, bbb.AverageCost)
	assert.InDelta(t, 10.0, bbb.UnrealizedPnL, 1e-9)
	assert.Equal(t, trading.PortfolioEndMsg{Account: "DU1"}, msgs[2])

	// 현금 1000, 평가액 100 - 90
	assert.InDelta(t, 1010.0, b.Equity(), 1e-9)
}

func TestReversal(t *testing.T) {
	b, out := newBroker(t, WithFeeRate(0))
	ctx := context.Background()
	quote(b, "AAA", 10, 10)
	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 1, Symbol: "AAA", Side: domain.Buy, Quantity: 5}))

	quote(b, "AAA", 12, 12)
	require.NoError(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 2, Symbol: "AAA", Side: domain.Sell, Quantity: 8}))

	msgs := out.take()
	report := msgs[4].(trading.CommissionMsg).Report
	assert.InDelta(t, 10.0, report.RealizedPnL, 1e-9)
	assert.Equal(t, -3, b.Position("AAA"))
}

func TestDisconnected(t *testing.T) {
	b, out := newBroker(t)
	ctx := context.Background()

	b.SetConnected(false)
	b.SetConnected(false)
	assert.Equal(t, []trading.Message{trading.ConnectionMsg{Account: "DU1", Connected: false}}, out.take())

	_, err := b.NextOrderID(ctx)
	assert.ErrorIs(t, err, broker.ErrNotConnected)
	assert.ErrorIs(t, b.PlaceOrder(ctx, domain.OrderRequest{OrderID: 1, Symbol: "AAA", Side: domain.Buy, Quantity: 1}), broker.ErrNotConnected)
}

func TestSubscribeQuotes(t *testing.T) {
	sub := &subscriber{}
	b, _ := newBroker(t, WithQuoteSubscriber(sub))
	conn := broker.NewConnection("DU1", b)

	require.NoError(t, conn.SubscribeQuotes(context.Background(), "AAA", "BBB"))
	assert.Equal(t, []string{"AAA", "BBB"}, sub.symbols)
}
