package discord

import (
	"fmt"
	"log"
	"time"

	"github.com/assist-by/pairs/internal/domain"
	"github.com/assist-by/pairs/internal/notification"
)

// Client는 notification.Sink를 구현합니다. 전송은 Bus 고루틴에서 동기로 일어납니다
var _ notification.Sink = (*Client)(nil)

func (c *Client) Log(string, string) {}

func (c *Client) Transaction(domain.Transaction) {}

func (c *Client) PnL(domain.PnLUpdate) {}

func (c *Client) PairStateUpdated(domain.PairStateUpdate) {}

// History는 페어 진입/청산 이력을 전송합니다
func (c *Client) History(rec domain.HistoryRecord) {
	if err := c.SendHistory(rec); err != nil {
		log.Printf("이력 알림 전송 실패: %v", err)
	}
}

// ManualIntervention은 수동 개입 요청을 전송합니다
func (c *Client) ManualIntervention(req domain.InterventionRequest) {
	if err := c.SendIntervention(req); err != nil {
		log.Printf("수동 개입 알림 전송 실패: %v", err)
	}
}

// InterventionCleared는 수동 개입 해제를 전송합니다
func (c *Client) InterventionCleared(pairID, account string) {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("✅ 재개: %s", pairID)).
		SetDescription(fmt.Sprintf("**계좌**: %s", account)).
		SetColor(notification.ColorSuccess).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	if err := c.sendToWebhook(c.alertWebhook, WebhookMessage{Embeds: []Embed{*embed}}); err != nil {
		log.Printf("재개 알림 전송 실패: %v", err)
	}
}

// SendIntervention은 수동 개입 요청 알림을 전송합니다
func (c *Client) SendIntervention(req domain.InterventionRequest) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("⚠️ 수동 개입 필요: %s", req.PairID)).
		SetDescription(fmt.Sprintf("```%s```", req.Reason)).
		SetColor(notification.ColorWarning).
		AddInline("계좌", req.Account).
		AddInline("요청 ID", req.ID).
		SetFooter(footerText).
		SetTimestamp(req.Time)

	return c.sendToWebhook(c.alertWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}

// SendHistory는 진입/청산 이력 알림을 전송합니다
func (c *Client) SendHistory(rec domain.HistoryRecord) error {
	var title string
	if rec.Action == domain.ActionOpened {
		title = fmt.Sprintf("🚀 %s 진입: %s / %s", rec.Position, rec.Symbol1, rec.Symbol2)
	} else {
		title = fmt.Sprintf("🏁 %s 청산: %s / %s", rec.Position, rec.Symbol1, rec.Symbol2)
	}

	embed := NewEmbed().
		SetTitle(title).
		SetColor(notification.GetColorForPosition(rec.Position)).
		AddInline("페어", rec.PairID).
		AddInline("z-score", fmt.Sprintf("%.3f", rec.ZScore)).
		AddInline("수수료", "$"+rec.Commission.StringFixed(2)).
		AddInline("사유", rec.Reason)

	if rec.Action == domain.ActionClosed {
		embed.AddInline("손익", fmt.Sprintf("$%s (%.2f%%)", rec.PnL.StringFixed(2), rec.PnLPct))
		if rec.PnL.IsNegative() {
			embed.SetColor(notification.ColorError)
		} else {
			embed.SetColor(notification.ColorSuccess)
		}
	}

	embed.SetFooter(footerText).SetTimestamp(rec.Time)
	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{Embeds: []Embed{*embed}})
}
