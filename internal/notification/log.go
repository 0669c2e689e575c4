package notification

import (
	"log"

	"github.com/assist-by/pairs/internal/domain"
)

// LogSink는 거래 관련 이벤트를 표준 로그로 남깁니다.
// 엔진 참고 로그는 엔진이 직접 출력하므로 다시 쓰지 않습니다.
type LogSink struct{}

func (LogSink) Log(string, string) {}

func (LogSink) Transaction(tx domain.Transaction) {
	log.Printf("[%s] 거래: %s %s %d @ %.4f (호가 %.4f, 수수료 %s, 실현 %s, 지연 %s)",
		tx.PairID, tx.Side, tx.Symbol, tx.Quantity, tx.Price, tx.QuotePrice,
		tx.Commission, tx.RealizedPnL, tx.FillLatency)
}

func (LogSink) History(rec domain.HistoryRecord) {
	if rec.Action == domain.ActionClosed {
		log.Printf("[%s] %s 청산: 손익 %s (%.2f%%), 수수료 %s, 사유 %s",
			rec.PairID, rec.Position, rec.PnL, rec.PnLPct, rec.Commission, rec.Reason)
		return
	}
	log.Printf("[%s] %s 진입: z=%.3f, 수수료 %s, 사유 %s",
		rec.PairID, rec.Position, rec.ZScore, rec.Commission, rec.Reason)
}

func (LogSink) PnL(domain.PnLUpdate) {}

func (LogSink) ManualIntervention(req domain.InterventionRequest) {
	log.Printf("[%s] 수동 개입 요청 (%s): %s", req.PairID, req.Account, req.Reason)
}

func (LogSink) InterventionCleared(pairID, account string) {
	log.Printf("[%s] 수동 개입 해제 (%s)", pairID, account)
}

func (LogSink) PairStateUpdated(update domain.PairStateUpdate) {
	log.Printf("[%s] 상태 저장: %s (%d / %d)", update.PairID, update.Position, update.Qty1, update.Qty2)
}
