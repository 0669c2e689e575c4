package paper

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/assist-by/pairs/internal/broker"
	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/trading"
)

const (
	// CodeNoQuote는 호가가 없어 주문을 체결할 수 없을 때 보내는 에러 코드입니다
	CodeNoQuote = 201

	DefaultFeeRate = 0.0004
)

// noRealizedPnL은 진입 체결 수수료 보고에 실리는 실현손익 값입니다
const noRealizedPnL = math.MaxFloat64

// Publisher는 브로커 메시지를 페어 코어에 전달합니다
type Publisher interface {
	Publish(msg trading.Message) int
}

// QuoteSubscriber는 호가 구독 요청을 받습니다
type QuoteSubscriber interface {
	Subscribe(symbols ...string) error
}

type holding struct {
	qty     int
	avgCost float64
}

// Broker는 호가 스냅샷으로 시장가 주문을 즉시 체결하는 모의 브로커입니다.
// 주문 결과는 주문 상태/체결/수수료 메시지로 Publisher에 전달됩니다.
type Broker struct {
	account   string
	publisher Publisher
	quotes    QuoteSubscriber
	feeRate   float64
	slippage  float64 // 호가 대비 불리한 체결 비율
	now       func() time.Time

	mu        sync.Mutex
	connected bool
	nextID    int64
	execSeq   int64
	cash      float64
	rates     map[string]domain.Rates
	holdings  map[string]*holding
	rejected  map[int64]bool
}

// Option은 Broker 설정 함수입니다
type Option func(*Broker)

// WithFeeRate는 체결 금액 대비 수수료율을 설정합니다
func WithFeeRate(rate float64) Option {
	return func(b *Broker) {
		b.feeRate = rate
	}
}

// WithSlippage는 호가 대비 불리한 체결 비율을 설정합니다
func WithSlippage(ratio float64) Option {
	return func(b *Broker) {
		b.slippage = ratio
	}
}

// WithQuoteSubscriber는 호가 구독 요청을 전달할 대상을 설정합니다
func WithQuoteSubscriber(q QuoteSubscriber) Option {
	return func(b *Broker) {
		b.quotes = q
	}
}

// WithClock은 시계를 설정합니다
func WithClock(now func() time.Time) Option {
	return func(b *Broker) {
		b.now = now
	}
}

// New는 초기 현금 cash를 가진 모의 계좌를 생성합니다
func New(account string, cash float64, publisher Publisher, opts ...Option) *Broker {
	b := &Broker{
		account:   account,
		publisher: publisher,
		feeRate:   DefaultFeeRate,
		now:       time.Now,
		cash:      cash,
		rates:     make(map[string]domain.Rates),
		holdings:  make(map[string]*holding),
		rejected:  make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var _ broker.OrderSink = (*Broker)(nil)

// Account는 계좌 이름을 반환합니다
func (b *Broker) Account() string {
	return b.account
}

// SetConnected는 연결 상태를 바꾸고 변경을 발행합니다
func (b *Broker) SetConnected(connected bool) {
	b.mu.Lock()
	changed := b.connected != connected
	b.connected = connected
	b.mu.Unlock()

	if changed {
		b.publisher.Publish(trading.ConnectionMsg{Account: b.account, Connected: connected})
	}
}

// IsConnected는 연결 상태를 반환합니다
func (b *Broker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Observe는 호가 틱을 체결 기준 가격으로 기록합니다
func (b *Broker) Observe(msg trading.Message) {
	tick, ok := msg.(trading.TickMsg)
	if !ok || tick.Price <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.rates[tick.Symbol]
	switch tick.Type {
	case trading.TickBid:
		r.Bid = tick.Price
	case trading.TickAsk:
		r.Ask = tick.Price
	case trading.TickLast:
		r.Last = tick.Price
	}
	b.rates[tick.Symbol] = r
}

// NextOrderID는 다음 주문 ID를 할당합니다
func (b *Broker) NextOrderID(ctx context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, broker.ErrNotConnected
	}
	b.nextID++
	return b.nextID, nil
}

// SubscribeQuotes는 호가 구독을 요청합니다
func (b *Broker) SubscribeQuotes(ctx context.Context, symbols ...string) error {
	if b.quotes == nil {
		return nil
	}
	return b.quotes.Subscribe(symbols...)
}

// PlaceOrder는 시장가 주문을 현재 호가로 즉시 체결합니다.
// 호가가 없으면 CodeNoQuote 에러 메시지를 발행합니다.
func (b *Broker) PlaceOrder(ctx context.Context, order domain.OrderRequest) error {
	if order.Quantity <= 0 {
		return fmt.Errorf("잘못된 주문 수량: %d", order.Quantity)
	}

	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return broker.ErrNotConnected
	}
	price, ok := b.fillPriceLocked(order.Symbol, order.Side)
	if !ok {
		b.rejected[order.OrderID] = true
		b.mu.Unlock()
		log.Printf("모의 주문 거부 [%d] %s: 호가 없음", order.OrderID, order.Symbol)
		b.publisher.Publish(trading.ErrorMsg{OrderID: order.OrderID, Code: CodeNoQuote, Text: "호가가 없어 체결할 수 없습니다: " + order.Symbol})
		return nil
	}

	commission := float64(order.Quantity) * price * b.feeRate
	realized := b.applyLocked(order.Symbol, order.Side, order.Quantity, price, commission)
	b.execSeq++
	execID := fmt.Sprintf("paper-%s-%d", b.account, b.execSeq)
	b.mu.Unlock()

	now := b.now()
	b.publisher.Publish(trading.ExecutionMsg{Execution: domain.Execution{
		ExecID:   execID,
		OrderID:  order.OrderID,
		Account:  b.account,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    price,
		Time:     now,
	}})
	b.publisher.Publish(trading.CommissionMsg{Report: domain.CommissionReport{
		ExecID:      execID,
		Commission:  commission,
		RealizedPnL: realized,
	}})
	b.publisher.Publish(trading.OrderStatusMsg{Status: domain.OrderStatus{
		OrderID:      order.OrderID,
		Account:      b.account,
		State:        domain.OrderFilled,
		Filled:       order.Quantity,
		Remaining:    0,
		AvgFillPrice: price,
	}})
	return nil
}

// CancelOrder는 체결되지 않은 주문을 취소합니다. 이미 체결된 주문은 취소할 수 없습니다
func (b *Broker) CancelOrder(ctx context.Context, orderID int64) error {
	b.mu.Lock()
	if !b.rejected[orderID] {
		b.mu.Unlock()
		return broker.ErrUnknownOrder
	}
	delete(b.rejected, orderID)
	b.mu.Unlock()

	b.publisher.Publish(trading.OrderStatusMsg{Status: domain.OrderStatus{
		OrderID: orderID,
		Account: b.account,
		State:   domain.OrderCancelled,
	}})
	return nil
}

// fillPriceLocked는 매수는 매도호가, 매도는 매수호가에 슬리피지를 더한 체결가를 반환합니다
func (b *Broker) fillPriceLocked(symbol string, side domain.OrderSide) (float64, bool) {
	r := b.rates[symbol]
	price := r.Ask
	if side == domain.Sell {
		price = r.Bid
	}
	if price <= 0 {
		price = r.Last
	}
	if price <= 0 {
		return 0, false
	}
	return price * (1 + float64(side.Sign())*b.slippage), true
}

// applyLocked는 체결을 보유 현황과 현금에 반영하고 청산분 실현손익을 반환합니다
func (b *Broker) applyLocked(symbol string, side domain.OrderSide, qty int, price, commission float64) float64 {
	h, ok := b.holdings[symbol]
	if !ok {
		h = &holding{}
		b.holdings[symbol] = h
	}
	sign := side.Sign()
	b.cash -= float64(sign*qty)*price + commission

	realized := noRealizedPnL
	signed := sign * qty
	switch {
	case h.qty == 0 || (h.qty > 0) == (signed > 0):
		total := math.Abs(float64(h.qty))*h.avgCost + float64(qty)*price
		h.qty += signed
		h.avgCost = total / math.Abs(float64(h.qty))
	default:
		closed := qty
		if abs(h.qty) < closed {
			closed = abs(h.qty)
		}
		direction := 1.0
		if h.qty < 0 {
			direction = -1.0
		}
		realized = (price-h.avgCost)*float64(closed)*direction - commission
		h.qty += signed
		switch {
		case h.qty == 0:
			h.avgCost = 0
		case (h.qty > 0) == (signed > 0):
			// 방향이 뒤집히면 남은 수량은 이번 체결가로 새로 진입한 것으로 봅니다
			h.avgCost = price
		}
	}
	if h.qty == 0 {
		delete(b.holdings, symbol)
	}
	return realized
}

// PublishPortfolio는 보유 현황을 종목별로 발행하고 끝 표시를 보냅니다
func (b *Broker) PublishPortfolio() {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.holdings))
	for s := range b.holdings {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	items := make([]domain.PortfolioItem, 0, len(symbols))
	for _, s := range symbols {
		h := b.holdings[s]
		mark := b.markLocked(s, h)
		items = append(items, domain.PortfolioItem{
			Account:       b.account,
			Symbol:        s,
			Quantity:      h.qty,
			MarketValue:   float64(h.qty) * mark,
			AverageCost:   h.avgCost,
			UnrealizedPnL: (mark - h.avgCost) * float64(h.qty),
		})
	}
	b.mu.Unlock()

	for _, item := range items {
		b.publisher.Publish(trading.PortfolioMsg{Item: item})
	}
	b.publisher.Publish(trading.PortfolioEndMsg{Account: b.account})
}

// Equity는 현금과 보유 종목 평가액의 합을 반환합니다
func (b *Broker) Equity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	equity := b.cash
	for s, h := range b.holdings {
		equity += float64(h.qty) * b.markLocked(s, h)
	}
	return equity
}

// Position은 종목의 부호 있는 보유 수량을 반환합니다
func (b *Broker) Position(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.holdings[symbol]; ok {
		return h.qty
	}
	return 0
}

func (b *Broker) markLocked(symbol string, h *holding) float64 {
	if mid := b.rates[symbol].Mid(); mid > 0 {
		return mid
	}
	return h.avgCost
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
