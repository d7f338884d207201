package billing

import (
	"context"
	"fmt"

	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider talks to Stripe.
type StripeProvider struct {
	api *client.API
	log *logger.Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewProvider returns the Stripe provider, or a disabled provider when no
// secret key is configured.
func NewProvider(cfg config.BillingConfig, log *logger.Logger) Provider {
	if !cfg.IsBillingEnabled() {
		log.Warn("billing provider disabled: STRIPE_SECRET_KEY not set")
		return DisabledProvider{}
	}
	return NewStripeProvider(client.New(cfg.GetStripeSecretKey(), nil), log)
}

func NewStripeProvider(api *client.API, log *logger.Logger) *StripeProvider {
	return &StripeProvider{api: api, log: log}
}

func (p *StripeProvider) GetPrice(ctx context.Context, priceID string) (Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx

	price, err := p.api.Prices.Get(priceID, params)
	if err != nil {
		return Price{}, fmt.Errorf("get price %s: %w", priceID, err)
	}

	return Price{
		ID:        price.ID,
		Active:    price.Active,
		Recurring: price.Recurring != nil || price.Type == stripe.PriceTypeRecurring,
	}, nil
}

func (p *StripeProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (Subscription, error) {
	req := &stripe.SubscriptionParams{
		Customer: stripe.String(params.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(params.Quantity),
			},
		},
	}
	req.Context = ctx
	for key, value := range params.Metadata {
		req.AddMetadata(key, value)
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	sub, err := p.api.Subscriptions.New(req)
	if err != nil {
		return Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return toSubscription(sub), nil
}

// ListSubscriptions returns every subscription of the customer, including
// terminal ones; callers filter with IsLive.
func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	items := make([]Subscription, 0)
	it := p.api.Subscriptions.List(params)
	for it.Next() {
		items = append(items, toSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return items, nil
}

func toSubscription(sub *stripe.Subscription) Subscription {
	metadata := make(map[string]string, len(sub.Metadata))
	for k, v := range sub.Metadata {
		metadata[k] = v
	}
	return Subscription{ID: sub.ID, Status: string(sub.Status), Metadata: metadata}
}
