package email

import (
	"context"

	"omnichat_backend/platform/config"
)

// HotLeadAlert is the content of a hot lead notification.
type HotLeadAlert struct {
	LeadName      string
	Score         int
	PreviousLabel string
	Factors       map[string]float64
	LeadURL       string
}

type Sender interface {
	SendHotLeadAlertEmail(ctx context.Context, toEmail string, alert HotLeadAlert) error
}

type NoopSender struct{}

func (NoopSender) SendHotLeadAlertEmail(context.Context, string, HotLeadAlert) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
