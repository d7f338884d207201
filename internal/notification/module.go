// Package notification tells operators about properties the automatic
// pipeline could not qualify. It only reacts to domain events.
package notification

import (
	"context"
	"fmt"

	"collection_portal_backend/internal/email"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"
)

type Module struct {
	sender    email.Sender
	operators []string
	log       *logger.Logger
}

// New picks the SMTP sender when mail is configured and a logging sender
// otherwise.
func New(cfg config.OperatorMailConfig, log *logger.Logger) *Module {
	var sender email.Sender = email.NewLogSender(log)
	if cfg.IsOperatorMailEnabled() {
		sender = email.NewSMTPSender(
			cfg.GetSMTPHost(),
			cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(),
			cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(),
			cfg.GetEmailFromName(),
		)
	}
	return NewWithSender(sender, cfg.GetOperatorEmails(), log)
}

func NewWithSender(sender email.Sender, operators []string, log *logger.Logger) *Module {
	return &Module{sender: sender, operators: operators, log: log}
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.PropertyNeedsReview{}.EventName(), events.HandlerFunc(m.handlePropertyNeedsReview))
}

func (m *Module) handlePropertyNeedsReview(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PropertyNeedsReview)
	if !ok {
		return nil
	}

	if len(m.operators) == 0 {
		m.log.Warn("property needs review but no operator emails are configured",
			"property_id", e.PropertyID.String(), "reason", e.Reason)
		return nil
	}

	review := email.PropertyReview{
		PropertyID: e.PropertyID.String(),
		Address:    e.Address,
		Reason:     e.Reason,
	}
	if e.ZoneID != nil {
		review.ZoneID = *e.ZoneID
	}
	if e.InsertionCostMiles != nil {
		review.InsertionMiles = fmt.Sprintf("%.2f", *e.InsertionCostMiles)
	}

	var firstErr error
	for _, to := range m.operators {
		if err := m.sender.SendPropertyReviewEmail(ctx, to, review); err != nil {
			m.log.UpstreamFailure("smtp", "send_property_review", err, "to", to, "property_id", review.PropertyID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
