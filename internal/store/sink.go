package store

import (
	"context"
	"log"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/notification"
)

const writeTimeout = 5 * time.Second

var _ notification.Sink = (*Store)(nil)

func (s *Store) Log(string, string) {}

func (s *Store) PnL(domain.PnLUpdate) {}

func (s *Store) Transaction(tx domain.Transaction) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.InsertTransaction(ctx, tx); err != nil {
		log.Printf("[%s] 거래 기록 저장 실패: %v", tx.PairID, err)
	}
}

func (s *Store) History(rec domain.HistoryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.InsertHistory(ctx, rec); err != nil {
		log.Printf("[%s] 이력 저장 실패: %v", rec.PairID, err)
	}
}

func (s *Store) ManualIntervention(req domain.InterventionRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.InsertIntervention(ctx, req); err != nil {
		log.Printf("[%s] 수동 개입 요청 저장 실패: %v", req.PairID, err)
	}
}

func (s *Store) InterventionCleared(pairID, _ string) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.ClearInterventions(ctx, pairID); err != nil {
		log.Printf("[%s] 수동 개입 해제 저장 실패: %v", pairID, err)
	}
}

// PairStateUpdated는 재시작 시 복원할 페어 상태를 저장합니다
func (s *Store) PairStateUpdated(u domain.PairStateUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.SavePairState(ctx, u); err != nil {
		log.Printf("[%s] 페어 상태 저장 실패: %v", u.PairID, err)
	}
}
