package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/portfolio"
)

// Store는 페어 상태와 거래 기록을 SQLite에 저장합니다
type Store struct {
	db *sql.DB
}

// Open은 path의 데이터베이스를 열고 스키마를 적용합니다
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("DB 열기 실패: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("WAL 모드 설정 실패: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("스키마 적용 실패: %w", err)
	}

	return &Store{db: db}, nil
}

// Close는 데이터베이스를 닫습니다
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePairState는 페어 상태를 저장합니다
func (s *Store) SavePairState(ctx context.Context, u domain.PairStateUpdate) error {
	if u.Time.IsZero() {
		u.Time = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pair_state (pair_id, account, position, qty1, qty2,
			last_opened, last_closed, model_state, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_id) DO UPDATE SET
			account = excluded.account,
			position = excluded.position,
			qty1 = excluded.qty1,
			qty2 = excluded.qty2,
			last_opened = excluded.last_opened,
			last_closed = excluded.last_closed,
			model_state = excluded.model_state,
			updated = excluded.updated`,
		u.PairID, u.Account, string(u.Position), u.Qty1, u.Qty2,
		toMillis(u.LastOpened), toMillis(u.LastClosed), u.ModelState, toMillis(u.Time),
	)
	return err
}

// LoadPairStates는 저장된 페어 상태 전체를 페어 ID별로 반환합니다
func (s *Store) LoadPairStates(ctx context.Context) (map[string]domain.PairStateUpdate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_id, account, position, qty1, qty2, last_opened, last_closed, model_state, updated
		FROM pair_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]domain.PairStateUpdate)
	for rows.Next() {
		var u domain.PairStateUpdate
		var position string
		var opened, closed, updated int64
		if err := rows.Scan(&u.PairID, &u.Account, &position, &u.Qty1, &u.Qty2,
			&opened, &closed, &u.ModelState, &updated); err != nil {
			return nil, err
		}
		u.Position = domain.PositionSide(position)
		u.LastOpened = fromMillis(opened)
		u.LastClosed = fromMillis(closed)
		u.Time = fromMillis(updated)
		states[u.PairID] = u
	}
	return states, rows.Err()
}

// InsertTransaction은 레그 거래 기록을 추가합니다
func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (pair_id, account, symbol, side, quantity, price, quote_price,
			commission, realized_pnl, latency_ms, order_id, opening, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.PairID, tx.Account, tx.Symbol, string(tx.Side), tx.Quantity, tx.Price, tx.QuotePrice,
		tx.Commission.String(), tx.RealizedPnL.String(), tx.FillLatency.Milliseconds(),
		tx.OrderID, tx.Opening, toMillis(tx.Time),
	)
	return err
}

// Transactions는 페어의 거래 기록을 오래된 순서로 반환합니다
func (s *Store) Transactions(ctx context.Context, pairID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair_id, account, symbol, side, quantity, price, quote_price,
			commission, realized_pnl, latency_ms, order_id, opening, time
		FROM transactions WHERE pair_id = ? ORDER BY time, id`, pairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var side, commission, realized string
		var latency, at int64
		if err := rows.Scan(&tx.PairID, &tx.Account, &tx.Symbol, &side, &tx.Quantity, &tx.Price,
			&tx.QuotePrice, &commission, &realized, &latency, &tx.OrderID, &tx.Opening, &at); err != nil {
			return nil, err
		}
		tx.Side = domain.OrderSide(side)
		tx.FillLatency = time.Duration(latency) * time.Millisecond
		tx.Time = fromMillis(at)
		if tx.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, fmt.Errorf("수수료 파싱 실패: %w", err)
		}
		if tx.RealizedPnL, err = decimal.NewFromString(realized); err != nil {
			return nil, fmt.Errorf("실현손익 파싱 실패: %w", err)
		}
		results = append(results, tx)
	}
	return results, rows.Err()
}

// InsertHistory는 진입/청산 이력을 추가합니다. 같은 ID는 무시합니다
func (s *Store) InsertHistory(ctx context.Context, rec domain.HistoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO history (id, pair_id, account, symbol1, symbol2, action, position,
			zscore, pnl, pnl_pct, commission, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PairID, rec.Account, rec.Symbol1, rec.Symbol2, string(rec.Action),
		string(rec.Position), rec.ZScore, rec.PnL.String(), rec.PnLPct, rec.Commission.String(),
		rec.Reason, toMillis(rec.Time),
	)
	return err
}

// RecentHistory는 페어의 최근 이력을 최신 순서로 limit개 반환합니다
func (s *Store) RecentHistory(ctx context.Context, pairID string, limit int) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pair_id, account, symbol1, symbol2, action, position,
			zscore, pnl, pnl_pct, commission, reason, time
		FROM history WHERE pair_id = ? ORDER BY time DESC LIMIT ?`, pairID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var action, position, pnl, commission string
		var at int64
		if err := rows.Scan(&rec.ID, &rec.PairID, &rec.Account, &rec.Symbol1, &rec.Symbol2,
			&action, &position, &rec.ZScore, &pnl, &rec.PnLPct, &commission, &rec.Reason, &at); err != nil {
			return nil, err
		}
		rec.Action = domain.HistoryAction(action)
		rec.Position = domain.PositionSide(position)
		rec.Time = fromMillis(at)
		if rec.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("손익 파싱 실패: %w", err)
		}
		if rec.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, fmt.Errorf("수수료 파싱 실패: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// InsertIntervention은 수동 개입 요청을 기록합니다
func (s *Store) InsertIntervention(ctx context.Context, req domain.InterventionRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO interventions (id, pair_id, account, reason, time)
		VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.PairID, req.Account, req.Reason, toMillis(req.Time),
	)
	return err
}

// ClearInterventions는 페어의 열린 수동 개입 요청을 모두 해제합니다
func (s *Store) ClearInterventions(ctx context.Context, pairID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE interventions SET cleared = 1 WHERE pair_id = ? AND cleared = 0`, pairID)
	return err
}

// OpenInterventions는 해제되지 않은 수동 개입 요청을 오래된 순서로 반환합니다
func (s *Store) OpenInterventions(ctx context.Context) ([]domain.InterventionRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pair_id, account, reason, time
		FROM interventions WHERE cleared = 0 ORDER BY time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.InterventionRequest
	for rows.Next() {
		var req domain.InterventionRequest
		var at int64
		if err := rows.Scan(&req.ID, &req.PairID, &req.Account, &req.Reason, &at); err != nil {
			return nil, err
		}
		req.Time = fromMillis(at)
		results = append(results, req)
	}
	return results, rows.Err()
}

// RestoreRuntime은 저장된 상태를 페어 실행 상태에 반영합니다.
// 계좌가 다르면 반영하지 않고 false를 반환합니다.
func RestoreRuntime(pair *portfolio.Pair, account string, st domain.PairStateUpdate) bool {
	if st.Account != account {
		return false
	}
	pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Position = st.Position
		rt.Qty1 = st.Qty1
		rt.Qty2 = st.Qty2
		rt.LastOpened = st.LastOpened
		rt.LastClosed = st.LastClosed
		rt.ModelState = st.ModelState
	})
	return true
}

// BlockedPairs는 해제되지 않은 수동 개입 요청을 페어별로 모읍니다. 같은 페어는 최근 요청이 남습니다
func (s *Store) BlockedPairs(ctx context.Context) (map[string]domain.InterventionRequest, error) {
	open, err := s.OpenInterventions(ctx)
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]domain.InterventionRequest, len(open))
	for _, req := range open {
		blocked[req.PairID] = req
	}
	return blocked, nil
}

// RestoreBlocked는 해제되지 않은 수동 개입 요청으로 페어를 다시 막습니다.
// 계좌가 다르면 반영하지 않고 false를 반환합니다.
func RestoreBlocked(pair *portfolio.Pair, account string, req domain.InterventionRequest) bool {
	if req.Account != account {
		return false
	}
	pair.UpdateRuntime(func(rt *domain.PairRuntime) {
		rt.Blocked = true
		rt.BlockReason = req.Reason
		rt.Status = domain.StatusBlocked
	})
	return true
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
