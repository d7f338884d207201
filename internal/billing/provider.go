// Package billing is the boundary to the external billing provider. The
// platform creates and reads subscriptions; it never cancels or edits them.
package billing

import (
	"context"
	"errors"
)

// Metadata keys written on every subscription created by activation.
const (
	MetadataPropertyID  = "propertyId"
	MetadataSelectionID = "selectionId"
	MetadataServiceID   = "serviceId"
)

// ErrBillingDisabled is returned when no provider credentials are configured.
var ErrBillingDisabled = errors.New("billing provider not configured")

// Subscription statuses that are never reported back to customers.
const (
	StatusCanceled          = "canceled"
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
)

type Price struct {
	ID        string
	Active    bool
	Recurring bool
}

type Subscription struct {
	ID       string
	Status   string
	Metadata map[string]string
}

// IsLive reports whether the subscription is in a non-terminal state.
func (s Subscription) IsLive() bool {
	switch s.Status {
	case StatusCanceled, StatusIncomplete, StatusIncompleteExpired:
		return false
	}
	return true
}

type CreateSubscriptionParams struct {
	CustomerID     string
	PriceID        string
	Quantity       int64
	Metadata       map[string]string
	IdempotencyKey string
}

// Provider is the subset of the billing API the pipeline consumes.
type Provider interface {
	GetPrice(ctx context.Context, priceID string) (Price, error)
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
}

// DisabledProvider is used when billing is not configured.
type DisabledProvider struct{}

func (DisabledProvider) GetPrice(context.Context, string) (Price, error) {
	return Price{}, ErrBillingDisabled
}

func (DisabledProvider) CreateSubscription(context.Context, CreateSubscriptionParams) (Subscription, error) {
	return Subscription{}, ErrBillingDisabled
}

func (DisabledProvider) ListSubscriptions(context.Context, string) ([]Subscription, error) {
	return nil, ErrBillingDisabled
}
