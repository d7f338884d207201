// Package email delivers operator emails.
package email

import (
	"context"
	"fmt"
	"strings"

	"collection_portal_backend/platform/logger"
)

// PropertyReview is the content of a "needs review" notification.
type PropertyReview struct {
	PropertyID     string
	Address        string
	Reason         string
	ZoneID         string
	InsertionMiles string
}

type Sender interface {
	SendPropertyReviewEmail(ctx context.Context, toEmail string, review PropertyReview) error
}

func renderPropertyReview(review PropertyReview) (subject, body string, err error) {
	body, err = renderEmailTemplate("property_review.html", propertyReviewEmailData{
		baseEmailData: baseEmailData{
			Title:      "Property needs review",
			Heading:    "A property needs review",
			Subheading: "The automatic qualification could not approve this property.",
		},
		PropertyReview: review,
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectPropertyReviewFmt, strings.TrimSpace(review.Address)), body, nil
}

// LogSender writes emails to the log instead of delivering them.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendPropertyReviewEmail(_ context.Context, toEmail string, review PropertyReview) error {
	subject, _, err := renderPropertyReview(review)
	if err != nil {
		return err
	}
	s.log.Info("email not sent: smtp not configured", "to", toEmail, "subject", subject, "property_id", review.PropertyID)
	return nil
}
