package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/portfolio"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	return openAt(t, filepath.Join(t.TempDir(), "pairs.db"))
}

func openAt(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPairStateRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	opened := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	s.PairStateUpdated(domain.PairStateUpdate{
		PairID: "p1", Account: "DU1", Position: domain.LongPosition,
		Qty1: 100, Qty2: -50, LastOpened: opened, ModelState: "delta=0.0001", Time: opened,
	})
	// 같은 페어는 덮어씀
	s.PairStateUpdated(domain.PairStateUpdate{
		PairID: "p1", Account: "DU1", Position: domain.FlatPosition,
		LastOpened: opened, LastClosed: opened.Add(time.Hour), Time: opened.Add(time.Hour),
	})
	s.PairStateUpdated(domain.PairStateUpdate{PairID: "p2", Account: "DU2", Position: domain.ShortPosition, Qty1: -10, Qty2: 20})

	states, err := s.LoadPairStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	p1 := states["p1"]
	assert.Equal(t, domain.FlatPosition, p1.Position)
	assert.Zero(t, p1.Qty1)
	assert.True(t, opened.Equal(p1.LastOpened))
	assert.True(t, opened.Add(time.Hour).Equal(p1.LastClosed))
	assert.Empty(t, p1.ModelState)

	p2 := states["p2"]
	assert.Equal(t, -10, p2.Qty1)
	assert.True(t, p2.LastOpened.IsZero())
}

func TestRestoreRuntime(t *testing.T) {
	pair := portfolio.NewPair(domain.PairConfig{ID: "p1", Symbol1: "AAA", Symbol2: "BBB"})
	st := domain.PairStateUpdate{
		PairID: "p1", Account: "DU1", Position: domain.ShortPosition,
		Qty1: -10, Qty2: 20, ModelState: "delta=0.001",
	}

	assert.False(t, RestoreRuntime(pair, "DU9", st))
	assert.Zero(t, pair.Runtime().Qty1)

	require.True(t, RestoreRuntime(pair, "DU1", st))
	rt := pair.Runtime()
	assert.Equal(t, domain.ShortPosition, rt.Position)
	assert.Equal(t, 20, rt.Qty2)
	assert.Equal(t, "delta=0.001", rt.ModelState)
}

func TestTransactions(t *testing.T) {
	s := openTemp(t)
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	s.Transaction(domain.Transaction{
		PairID: "p1", Account: "DU1", Symbol: "AAA", Side: domain.Buy, Quantity: 10,
		Price: 10.02, QuotePrice: 10.0, Commission: decimal.RequireFromString("1.005"),
		RealizedPnL: decimal.Zero, FillLatency: 250 * time.Millisecond, OrderID: 7, Opening: true, Time: at,
	})
	s.Transaction(domain.Transaction{
		PairID: "p1", Account: "DU1", Symbol: "AAA", Side: domain.Sell, Quantity: 10,
		Price: 11, Commission: decimal.NewFromInt(1), RealizedPnL: decimal.RequireFromString("8.985"),
		OrderID: 9, Time: at.Add(time.Hour),
	})
	s.Transaction(domain.Transaction{PairID: "p2", Account: "DU1", Symbol: "CCC", Side: domain.Buy, Quantity: 1, Price: 1, OrderID: 1, Time: at})

	txs, err := s.Transactions(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.Buy, txs[0].Side)
	assert.True(t, txs[0].Opening)
	assert.Equal(t, "1.005", txs[0].Commission.String())
	assert.Equal(t, 250*time.Millisecond, txs[0].FillLatency)
	assert.False(t, txs[1].Opening)
	assert.True(t, txs[1].RealizedPnL.Equal(decimal.RequireFromString("8.985")))
}

func TestRecentHistory(t *testing.T) {
	s := openTemp(t)
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	for i, action := range []domain.HistoryAction{domain.ActionOpened, domain.ActionClosed, domain.ActionOpened} {
		s.History(domain.HistoryRecord{
			ID: string(rune('a' + i)), PairID: "p1", Account: "DU1", Symbol1: "AAA", Symbol2: "BBB",
			Action: action, Position: domain.LongPosition, PnL: decimal.NewFromFloat(-3.5),
			Commission: decimal.NewFromInt(2), Time: at.Add(time.Duration(i) * time.Hour),
		})
	}
	// 중복 ID는 무시
	s.History(domain.HistoryRecord{ID: "a", PairID: "p1", Action: domain.ActionClosed, Time: at})

	recs, err := s.RecentHistory(context.Background(), "p1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, domain.ActionClosed, recs[1].Action)
	assert.Equal(t, "-3.5", recs[1].PnL.String())
}

func TestInterventions(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	s.ManualIntervention(domain.InterventionRequest{ID: "i1", PairID: "p1", Account: "DU1", Reason: "수량 불일치", Time: at})
	s.ManualIntervention(domain.InterventionRequest{ID: "i2", PairID: "p2", Account: "DU1", Reason: "주문 거부", Time: at.Add(time.Minute)})

	open, err := s.OpenInterventions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "i1", open[0].ID)

	s.InterventionCleared("p1", "DU1")
	open, err = s.OpenInterventions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "p2", open[0].PairID)
}

func TestBlockedPairsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.db")
	ctx := context.Background()
	at := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	s, err := Open(path)
	require.NoError(t, err)
	s.ManualIntervention(domain.InterventionRequest{ID: "i1", PairID: "p1", Account: "DU1", Reason: "주문 거부", Time: at})
	s.ManualIntervention(domain.InterventionRequest{ID: "i2", PairID: "p1", Account: "DU1", Reason: "수량 불일치", Time: at.Add(time.Minute)})
	s.ManualIntervention(domain.InterventionRequest{ID: "i3", PairID: "p2", Account: "DU1", Reason: "히스토리 오류", Time: at})
	s.InterventionCleared("p2", "DU1")
	require.NoError(t, s.Close())

	s = openAt(t, path)
	blocked, err := s.BlockedPairs(ctx)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	req := blocked["p1"]
	assert.Equal(t, "수량 불일치", req.Reason)

	pair := portfolio.NewPair(domain.PairConfig{ID: "p1", Symbol1: "AAA", Symbol2: "BBB"})
	assert.False(t, RestoreBlocked(pair, "DU9", req))
	assert.False(t, pair.Runtime().Blocked)

	require.True(t, RestoreBlocked(pair, "DU1", req))
	rt := pair.Runtime()
	assert.True(t, rt.Blocked)
	assert.Equal(t, "수량 불일치", rt.BlockReason)
	assert.Equal(t, domain.StatusBlocked, rt.Status)
}
