// Package activation turns the pending selections of an approved property
// into billing subscriptions.
package activation

import (
	"context"
	"errors"
	"fmt"

	"collection_portal_backend/internal/billing"
	"collection_portal_backend/internal/scheduler"
	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const statusApproved = "approved"

// Skip reasons reported in Result.Skipped.
const (
	SkipAlreadyRunning  = "already_running"
	SkipNotApproved     = "not_approved"
	SkipNoCustomer      = "missing_billing_customer"
	SkipNothingSelected = "no_selections"
)

// ErrPartialActivation is returned by ProcessActivation when at least one
// selection could not be billed and is left queued.
var ErrPartialActivation = errors.New("some selections were not activated")

type ActivatedSelection struct {
	SelectionID    uuid.UUID `json:"selectionId"`
	ServiceID      uuid.UUID `json:"serviceId"`
	SubscriptionID string    `json:"subscriptionId"`
	PriceID        string    `json:"priceId"`
	Quantity       int       `json:"quantity"`
}

type FailedSelection struct {
	SelectionID uuid.UUID `json:"selectionId"`
	ServiceID   uuid.UUID `json:"serviceId"`
	Reason      string    `json:"reason"`
}

type Result struct {
	PropertyID uuid.UUID            `json:"propertyId"`
	Skipped    string               `json:"skipped,omitempty"`
	Activated  []ActivatedSelection `json:"activated"`
	Failed     []FailedSelection    `json:"failed"`
}

type Engine struct {
	store   Store
	billing billing.Provider
	claimer Claimer
	log     *logger.Logger
}

var _ scheduler.ActivationProcessor = (*Engine)(nil)

func NewEngine(store Store, provider billing.Provider, claimer Claimer, log *logger.Logger) *Engine {
	if claimer == nil {
		claimer = NewLocalClaimer()
	}
	return &Engine{store: store, billing: provider, claimer: claimer, log: log}
}

// Activate bills every pending selection of an approved property. Each
// selection is billed at most once: it is billed under a row lock and
// deleted in the transaction that records its subscription, and the
// provider call carries an idempotency key derived from the selection id.
// Failed selections stay queued.
func (e *Engine) Activate(ctx context.Context, propertyID uuid.UUID) (Result, error) {
	result := Result{
		PropertyID: propertyID,
		Activated:  make([]ActivatedSelection, 0),
		Failed:     make([]FailedSelection, 0),
	}

	release, ok, err := e.claimer.TryClaim(ctx, propertyID)
	if err != nil {
		return result, fmt.Errorf("claim property: %w", err)
	}
	if !ok {
		result.Skipped = SkipAlreadyRunning
		e.log.PipelineStep(propertyID.String(), "activation", SkipAlreadyRunning)
		return result, nil
	}
	defer release()

	property, err := e.store.GetBillableProperty(ctx, propertyID)
	if err != nil {
		return result, err
	}
	if property.ServiceStatus != statusApproved {
		result.Skipped = SkipNotApproved
		e.log.PipelineStep(propertyID.String(), "activation", SkipNotApproved, "status", property.ServiceStatus)
		return result, nil
	}

	selections, err := e.store.ListPendingSelections(ctx, propertyID)
	if err != nil {
		return result, err
	}
	if len(selections) == 0 {
		result.Skipped = SkipNothingSelected
		return result, nil
	}

	if property.BillingCustomerID == nil || *property.BillingCustomerID == "" {
		result.Skipped = SkipNoCustomer
		e.log.Warn("activation skipped: owner has no billing customer",
			"property_id", propertyID.String(), "owner_id", property.OwnerID.String())
		return result, nil
	}

	for _, listed := range selections {
		activated, err := e.activateSelection(ctx, *property.BillingCustomerID, listed.ID)
		if errors.Is(err, ErrSelectionGone) {
			e.log.PipelineStep(propertyID.String(), "activation", "selection_removed", "selection_id", listed.ID.String())
			continue
		}
		if err != nil {
			e.log.BackgroundTaskFailed("activation.selection", err,
				"property_id", propertyID.String(), "selection_id", listed.ID.String())
			result.Failed = append(result.Failed, FailedSelection{
				SelectionID: listed.ID,
				ServiceID:   listed.ServiceID,
				Reason:      err.Error(),
			})
			continue
		}
		result.Activated = append(result.Activated, activated)
	}

	e.log.PipelineStep(propertyID.String(), "activation", "done",
		"activated", len(result.Activated), "failed", len(result.Failed))
	return result, nil
}

// activateSelection bills the selection as it is when its row lock is
// taken, not as it was listed.
func (e *Engine) activateSelection(ctx context.Context, customerID string, selectionID uuid.UUID) (ActivatedSelection, error) {
	done, err := e.store.BillSelection(ctx, selectionID, func(ctx context.Context, sel PendingSelection) (CompletedSelection, error) {
		return e.bill(ctx, customerID, sel)
	})
	if err != nil {
		return ActivatedSelection{}, err
	}

	return ActivatedSelection{
		SelectionID:    done.Selection.ID,
		ServiceID:      done.Selection.ServiceID,
		SubscriptionID: done.SubscriptionID,
		PriceID:        done.PriceID,
		Quantity:       done.Selection.Quantity,
	}, nil
}

func (e *Engine) bill(ctx context.Context, customerID string, sel PendingSelection) (CompletedSelection, error) {
	priceID := sel.PriceID()
	if priceID == "" {
		return CompletedSelection{}, errors.New("service has no billing price")
	}

	price, err := e.billing.GetPrice(ctx, priceID)
	if err != nil {
		return CompletedSelection{}, err
	}
	if !price.Active || !price.Recurring {
		return CompletedSelection{}, fmt.Errorf("price %s is not an active recurring price", priceID)
	}

	sub, err := e.billing.CreateSubscription(ctx, billing.CreateSubscriptionParams{
		CustomerID: customerID,
		PriceID:    priceID,
		Quantity:   int64(sel.Quantity),
		Metadata: map[string]string{
			billing.MetadataPropertyID:  sel.PropertyID.String(),
			billing.MetadataSelectionID: sel.ID.String(),
			billing.MetadataServiceID:   sel.ServiceID.String(),
		},
		IdempotencyKey: "activation:" + sel.ID.String(),
	})
	if err != nil {
		return CompletedSelection{}, err
	}

	return CompletedSelection{Selection: sel, SubscriptionID: sub.ID, PriceID: priceID}, nil
}

// ProcessActivation runs Activate for the task queue. Partial failures are
// reported as an error so the queue may retry the leftovers.
func (e *Engine) ProcessActivation(ctx context.Context, propertyID uuid.UUID) error {
	result, err := e.Activate(ctx, propertyID)
	if err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPartialActivation, len(result.Failed), len(result.Failed)+len(result.Activated))
	}
	return nil
}
