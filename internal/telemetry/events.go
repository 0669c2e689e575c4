package telemetry

import (
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/notification"
)

var _ notification.Sink = (*Hub)(nil)

type logData struct {
	Message string `json:"message"`
}

type transactionData struct {
	Account     string  `json:"account"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	QuotePrice  float64 `json:"quote_price"`
	Slippage    float64 `json:"slippage"`
	Commission  string  `json:"commission"`
	RealizedPnL string  `json:"realized_pnl"`
	LatencyMS   int64   `json:"latency_ms"`
	OrderID     int64   `json:"order_id"`
	Opening     bool    `json:"opening"`
}

type historyData struct {
	ID         string  `json:"id"`
	Account    string  `json:"account"`
	Symbol1    string  `json:"symbol1"`
	Symbol2    string  `json:"symbol2"`
	Action     string  `json:"action"`
	Position   string  `json:"position"`
	ZScore     float64 `json:"zscore"`
	PnL        string  `json:"pnl"`
	PnLPct     float64 `json:"pnl_pct"`
	Commission string  `json:"commission"`
	Reason     string  `json:"reason"`
}

type pnlData struct {
	PnL    float64 `json:"pnl"`
	PnLPct float64 `json:"pnl_pct"`
	ZScore float64 `json:"zscore"`
}

type interventionData struct {
	ID      string `json:"id,omitempty"`
	Account string `json:"account"`
	Reason  string `json:"reason,omitempty"`
}

type stateData struct {
	Account    string    `json:"account"`
	Position   string    `json:"position"`
	Qty1       int       `json:"qty1"`
	Qty2       int       `json:"qty2"`
	LastOpened time.Time `json:"last_opened"`
	LastClosed time.Time `json:"last_closed"`
	ModelState string    `json:"model_state,omitempty"`
}

func (h *Hub) Log(pairID, message string) {
	h.publish("log", pairID, time.Time{}, logData{Message: message})
}

func (h *Hub) Transaction(tx domain.Transaction) {
	h.publish("transaction", tx.PairID, tx.Time, transactionData{
		Account:     tx.Account,
		Symbol:      tx.Symbol,
		Side:        string(tx.Side),
		Quantity:    tx.Quantity,
		Price:       tx.Price,
		QuotePrice:  tx.QuotePrice,
		Slippage:    tx.Slippage(),
		Commission:  tx.Commission.String(),
		RealizedPnL: tx.RealizedPnL.String(),
		LatencyMS:   tx.FillLatency.Milliseconds(),
		OrderID:     tx.OrderID,
		Opening:     tx.Opening,
	})
}

func (h *Hub) History(rec domain.HistoryRecord) {
	h.publish("history", rec.PairID, rec.Time, historyData{
		ID:         rec.ID,
		Account:    rec.Account,
		Symbol1:    rec.Symbol1,
		Symbol2:    rec.Symbol2,
		Action:     string(rec.Action),
		Position:   string(rec.Position),
		ZScore:     rec.ZScore,
		PnL:        rec.PnL.String(),
		PnLPct:     rec.PnLPct,
		Commission: rec.Commission.String(),
		Reason:     rec.Reason,
	})
}

func (h *Hub) PnL(update domain.PnLUpdate) {
	h.publish("pnl", update.PairID, update.Time, pnlData{PnL: update.PnL, PnLPct: update.PnLPct, ZScore: update.ZScore})
}

func (h *Hub) ManualIntervention(req domain.InterventionRequest) {
	h.publish("intervention", req.PairID, req.Time, interventionData{ID: req.ID, Account: req.Account, Reason: req.Reason})
}

func (h *Hub) InterventionCleared(pairID, account string) {
	h.publish("intervention_cleared", pairID, time.Time{}, interventionData{Account: account})
}

func (h *Hub) PairStateUpdated(update domain.PairStateUpdate) {
	h.publish("pair_state", update.PairID, update.Time, stateData{
		Account:    update.Account,
		Position:   string(update.Position),
		Qty1:       update.Qty1,
		Qty2:       update.Qty2,
		LastOpened: update.LastOpened,
		LastClosed: update.LastClosed,
		ModelState: update.ModelState,
	})
}
