package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) NextOrderID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSink) PlaceOrder(ctx context.Context, order domain.OrderRequest) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockSink) CancelOrder(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockSink) SubscribeQuotes(ctx context.Context, symbols ...string) error {
	return m.Called(ctx, symbols).Error(0)
}

func (m *mockSink) IsConnected() bool {
	return m.Called().Bool(0)
}

// 할당 호출이 동시에 두 개 이상 진행되지 않는지 확인하는 sink
type countingSink struct {
	mu       sync.Mutex
	next     int64
	inFlight int
	maxSeen  int
}

func (s *countingSink) NextOrderID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.next++
	return s.next, nil
}

func (s *countingSink) PlaceOrder(ctx context.Context, order domain.OrderRequest) error { return nil }
func (s *countingSink) CancelOrder(ctx context.Context, orderID int64) error            { return nil }
func (s *countingSink) SubscribeQuotes(ctx context.Context, symbols ...string) error    { return nil }
func (s *countingSink) IsConnected() bool                                               { return true }

func TestConnectionSerializesOrderIDs(t *testing.T) {
	sink := &countingSink{}
	conn := NewConnection("DU1", sink)

	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := conn.AllocateOrderID(context.Background())
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "중복 주문 ID %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 20)
	assert.Equal(t, 1, sink.maxSeen)
}

func TestConnectionNotConnected(t *testing.T) {
	sink := new(mockSink)
	sink.On("IsConnected").Return(false)
	conn := NewConnection("DU1", sink)

	_, err := conn.AllocateOrderID(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, conn.PlaceOrder(context.Background(), domain.OrderRequest{}), ErrNotConnected)
	sink.AssertNotCalled(t, "NextOrderID", mock.Anything)
}

func TestConnectionStampsAccount(t *testing.T) {
	sink := new(mockSink)
	sink.On("IsConnected").Return(true)
	sink.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(o domain.OrderRequest) bool {
		return o.Account == "DU1" && o.Symbol == "AAA"
	})).Return(nil)

	conn := NewConnection("DU1", sink)
	require.NoError(t, conn.PlaceOrder(context.Background(), domain.OrderRequest{Symbol: "AAA", Quantity: 1}))
	sink.AssertExpectations(t)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	conn := NewConnection("DU1", &countingSink{})

	assert.Error(t, r.Register(conn), "시작 전에는 등록 불가")

	r.Start()
	require.NoError(t, r.Register(conn))
	assert.ErrorIs(t, r.Register(conn), ErrAccountExists)

	got, ok := r.Lookup("DU1")
	assert.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, []string{"DU1"}, r.Accounts())

	r.Unregister("DU1")
	_, ok = r.Lookup("DU1")
	assert.False(t, ok)

	require.NoError(t, r.Register(conn))
	r.Stop()
	_, ok = r.Lookup("DU1")
	assert.False(t, ok)
}

func TestLiveness(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	l := NewLiveness(0).WithClock(func() time.Time { return now })

	assert.True(t, l.IsExchangeActive(""))
	assert.False(t, l.IsExchangeActive("NYSE"))

	l.Touch("NYSE", now.Add(-10*time.Minute))
	assert.True(t, l.IsExchangeActive("NYSE"))

	l.Touch("NASDAQ", now.Add(-31*time.Minute))
	assert.False(t, l.IsExchangeActive("NASDAQ"))

	// 더 오래된 틱은 무시
	l.Touch("NYSE", now.Add(-time.Hour))
	assert.True(t, l.IsExchangeActive("NYSE"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code int
		want ErrorClass
	}{
		{399, Informational},
		{2104, Informational},
		{2110, Recoverable},
		{404, Recoverable},
		{161, Recoverable},
		{1100, Recoverable},
		{201, Unrecoverable},
		{103, Unrecoverable},
		{200, Unrecoverable},
		{9999, Unrecoverable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.code), "code %d", tt.code)
	}

	err := &Error{OrderID: 7, Code: 404, Message: "locating"}
	assert.Equal(t, Recoverable, err.Class())
	assert.Contains(t, err.Error(), "404")
}
