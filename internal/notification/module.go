// Package notification reacts to score events by emailing hot lead alerts.
package notification

import (
	"context"
	"strings"

	"omnichat_backend/internal/email"
	"omnichat_backend/internal/events"
	"omnichat_backend/platform/config"
	"omnichat_backend/platform/logger"
)

// Module handles all notification-related event subscriptions.
type Module struct {
	sender email.Sender
	cfg    config.AlertConfig
	log    *logger.Logger
}

func New(sender email.Sender, cfg config.AlertConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadBecameHot{}.EventName(), m)
}

// Handle routes events to the specific handler methods.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadBecameHot:
		return m.handleLeadBecameHot(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadBecameHot(ctx context.Context, e events.LeadBecameHot) error {
	recipient := strings.TrimSpace(m.cfg.GetAlertRecipient())
	if recipient == "" {
		return nil
	}

	alert := email.HotLeadAlert{
		LeadName:      e.LeadName,
		Score:         e.Score,
		PreviousLabel: e.PreviousLabel,
		Factors:       e.Factors,
		LeadURL:       m.leadURL(e),
	}
	if err := m.sender.SendHotLeadAlertEmail(ctx, recipient, alert); err != nil {
		m.log.Error("failed to send hot lead alert", "error", err, "leadId", e.LeadID)
		return err
	}
	m.log.Info("hot lead alert sent", "leadId", e.LeadID, "score", e.Score)
	return nil
}

func (m *Module) leadURL(e events.LeadBecameHot) string {
	base := strings.TrimRight(strings.TrimSpace(m.cfg.GetAppBaseURL()), "/")
	if base == "" {
		return ""
	}
	return base + "/leads/" + e.LeadID.String()
}
