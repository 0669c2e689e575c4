package discord

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/notification"
)

type capture struct {
	mu       sync.Mutex
	messages map[string][]WebhookMessage
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{messages: make(map[string][]WebhookMessage)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg WebhookMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.messages[r.URL.Path] = append(c.messages[r.URL.Path], msg)
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func (c *capture) get(path string) []WebhookMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[path]
}

func TestSendIntervention(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusNoContent)
	client := NewClient(srv.URL+"/alert", srv.URL+"/trade", WithTimeout(time.Second))

	client.ManualIntervention(domain.InterventionRequest{
		ID: "i1", PairID: "p1", Account: "DU1", Reason: "AAA 수량 불일치", Time: time.Now(),
	})

	msgs := got.get("/alert")
	require.Len(t, msgs, 1)
	embed := msgs[0].Embeds[0]
	assert.Contains(t, embed.Title, "p1")
	assert.Contains(t, embed.Description, "수량 불일치")
	assert.Equal(t, notification.ColorWarning, embed.Color)
	assert.Empty(t, got.get("/trade"))
}

func TestSendHistory(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	client := NewClient(srv.URL+"/alert", srv.URL+"/trade")

	client.History(domain.HistoryRecord{
		PairID: "p1", Symbol1: "AAA", Symbol2: "BBB",
		Action: domain.ActionClosed, Position: domain.LongPosition,
		PnL: decimal.NewFromFloat(-12.5), PnLPct: -1.2, Commission: decimal.NewFromFloat(2),
		Reason: "signal",
	})

	msgs := got.get("/trade")
	require.Len(t, msgs, 1)
	embed := msgs[0].Embeds[0]
	assert.Contains(t, embed.Title, "청산")
	assert.Equal(t, notification.ColorError, embed.Color)

	var pnl string
	for _, f := range embed.Fields {
		if f.Name == "손익" {
			pnl = f.Value
		}
	}
	assert.Equal(t, "$-12.50 (-1.20%)", pnl)
}

func TestSendToWebhookErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusTooManyRequests)
	client := NewClient(srv.URL+"/alert", "")

	err := client.SendError(errors.New("boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	// 웹훅이 없으면 보내지 않음
	assert.NoError(t, client.SendInfo("hello"))
}

func TestEmbedFieldLimits(t *testing.T) {
	embed := NewEmbed().AddInline("empty", "").AddField("long", strings.Repeat("x", 2000), false)

	assert.Equal(t, "-", embed.Fields[0].Value)
	assert.True(t, embed.Fields[0].Inline)
	assert.Len(t, embed.Fields[1].Value, maxFieldValue)
	assert.True(t, strings.HasSuffix(embed.Fields[1].Value, "..."))
}

func TestEmbedFieldTruncatesByCharacter(t *testing.T) {
	reason := strings.Repeat("주문거부", 400)
	embed := NewEmbed().AddField("사유", reason, false)

	value := embed.Fields[0].Value
	assert.True(t, utf8.ValidString(value))
	assert.Equal(t, maxFieldValue, utf8.RuneCountInString(value))
	assert.True(t, strings.HasPrefix(value, "주문거부주문거부"))
	assert.True(t, strings.HasSuffix(value, "..."))

	short := NewEmbed().AddField("사유", "주문 거부", false)
	assert.Equal(t, "주문 거부", short.Fields[0].Value)
}
