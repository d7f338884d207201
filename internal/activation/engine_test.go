package activation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"collection_portal_backend/internal/billing"
	"collection_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu            sync.Mutex
	property      BillableProperty
	selections    []PendingSelection
	subscriptions []CompletedSelection

	// rowLock is held while a selection is being billed.
	rowLock   sync.Mutex
	afterList func()
}

func (m *memoryStore) GetBillableProperty(_ context.Context, propertyID uuid.UUID) (BillableProperty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.property.ID != propertyID {
		return BillableProperty{}, errors.New("not found")
	}
	return m.property, nil
}

func (m *memoryStore) ListPendingSelections(_ context.Context, propertyID uuid.UUID) ([]PendingSelection, error) {
	m.mu.Lock()
	out := make([]PendingSelection, 0, len(m.selections))
	for _, s := range m.selections {
		if s.PropertyID == propertyID {
			out = append(out, s)
		}
	}
	m.mu.Unlock()

	if m.afterList != nil {
		m.afterList()
	}
	return out, nil
}

func (m *memoryStore) find(id uuid.UUID) (PendingSelection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.selections {
		if s.ID == id {
			return s, true
		}
	}
	return PendingSelection{}, false
}

func (m *memoryStore) BillSelection(ctx context.Context, selectionID uuid.UUID, bill BillFunc) (CompletedSelection, error) {
	m.rowLock.Lock()
	defer m.rowLock.Unlock()

	sel, ok := m.find(selectionID)
	if !ok {
		return CompletedSelection{}, ErrSelectionGone
	}

	done, err := bill(ctx, sel)
	if err != nil {
		return CompletedSelection{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, done)
	kept := m.selections[:0]
	for _, s := range m.selections {
		if s.ID != sel.ID {
			kept = append(kept, s)
		}
	}
	m.selections = kept
	return done, nil
}

// upsert mirrors the selection store's replace: it waits for a row being
// billed, then updates the service's row or queues a new one.
func (m *memoryStore) upsert(serviceID uuid.UUID, quantity int) {
	m.rowLock.Lock()
	defer m.rowLock.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.selections {
		if s.ServiceID == serviceID {
			m.selections[i].Quantity = quantity
			return
		}
	}
	m.selections = append(m.selections, PendingSelection{
		ID:             uuid.New(),
		PropertyID:     m.property.ID,
		ServiceID:      serviceID,
		Quantity:       quantity,
		BillingPriceID: "price_trash",
	})
}

func (m *memoryStore) ListApprovedPropertyIDsWithSelections(_ context.Context, after uuid.UUID, _ int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.property.ServiceStatus == statusApproved && len(m.selections) > 0 && after == uuid.Nil {
		return []uuid.UUID{m.property.ID}, nil
	}
	return nil, nil
}

func (m *memoryStore) remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selections)
}

type fakeBilling struct {
	mu       sync.Mutex
	prices   map[string]billing.Price
	failFor  map[string]bool
	created  []billing.CreateSubscriptionParams
	getCalls int
	onCreate func()
}

func newFakeBilling(prices ...string) *fakeBilling {
	f := &fakeBilling{prices: make(map[string]billing.Price), failFor: make(map[string]bool)}
	for _, id := range prices {
		f.prices[id] = billing.Price{ID: id, Active: true, Recurring: true}
	}
	return f
}

func (f *fakeBilling) GetPrice(_ context.Context, priceID string) (billing.Price, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	price, ok := f.prices[priceID]
	if !ok {
		return billing.Price{}, errors.New("no such price")
	}
	return price, nil
}

func (f *fakeBilling) CreateSubscription(_ context.Context, params billing.CreateSubscriptionParams) (billing.Subscription, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[params.PriceID] {
		return billing.Subscription{}, errors.New("card declined")
	}
	f.created = append(f.created, params)
	return billing.Subscription{
		ID:       "sub_" + params.IdempotencyKey,
		Status:   "active",
		Metadata: params.Metadata,
	}, nil
}

func (f *fakeBilling) ListSubscriptions(context.Context, string) ([]billing.Subscription, error) {
	return nil, nil
}

func (f *fakeBilling) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func approvedFixture(status string, customer *string) (*memoryStore, uuid.UUID) {
	propertyID := uuid.New()
	sticker := "price_sticker"
	store := &memoryStore{
		property: BillableProperty{
			ID:                propertyID,
			OwnerID:           uuid.New(),
			ServiceStatus:     status,
			BillingCustomerID: customer,
		},
		selections: []PendingSelection{
			{ID: uuid.New(), PropertyID: propertyID, ServiceID: uuid.New(), Quantity: 2, BillingPriceID: "price_trash"},
			{ID: uuid.New(), PropertyID: propertyID, ServiceID: uuid.New(), Quantity: 1, UseSticker: true, BillingPriceID: "price_recycle", StickerPriceID: &sticker},
		},
	}
	return store, propertyID
}

func customer() *string {
	id := "cus_123"
	return &id
}

func TestActivateCreatesOneSubscriptionPerSelection(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Len(t, result.Activated, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 0, store.remaining())

	require.Len(t, provider.created, 2)
	first := provider.created[0]
	assert.Equal(t, "cus_123", first.CustomerID)
	assert.Equal(t, "price_trash", first.PriceID)
	assert.Equal(t, int64(2), first.Quantity)
	assert.Equal(t, propertyID.String(), first.Metadata[billing.MetadataPropertyID])
	assert.Equal(t, "activation:"+first.Metadata[billing.MetadataSelectionID], first.IdempotencyKey)

	// sticker price wins when requested
	assert.Equal(t, "price_sticker", provider.created[1].PriceID)
	require.Len(t, store.subscriptions, 2)
}

func TestActivateIsIdempotent(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	_, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, SkipNothingSelected, result.Skipped)
	assert.Equal(t, 2, provider.createdCount())
}

func TestActivateRefusesUnapprovedProperty(t *testing.T) {
	for _, status := range []string{"pending_review", "denied"} {
		store, propertyID := approvedFixture(status, customer())
		provider := newFakeBilling("price_trash", "price_sticker")
		engine := NewEngine(store, provider, nil, logger.NewNop())

		result, err := engine.Activate(context.Background(), propertyID)
		require.NoError(t, err)
		assert.Equal(t, SkipNotApproved, result.Skipped)
		assert.Equal(t, 0, provider.createdCount())
		assert.Equal(t, 0, provider.getCalls)
		assert.Equal(t, 2, store.remaining())
	}
}

func TestActivateWithoutSelectionsMakesNoBillingCalls(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	store.selections = nil
	provider := newFakeBilling()
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, SkipNothingSelected, result.Skipped)
	assert.Equal(t, 0, provider.getCalls)
}

func TestActivateWithoutCustomerLeavesSelectionsQueued(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, nil)
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, SkipNoCustomer, result.Skipped)
	assert.Equal(t, 2, store.remaining())
}

func TestActivatePartialFailureKeepsFailedSelection(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	provider.failFor["price_sticker"] = true
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Len(t, result.Activated, 1)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "card declined")
	assert.Equal(t, 1, store.remaining())

	err = engine.ProcessActivation(context.Background(), propertyID)
	assert.ErrorIs(t, err, ErrPartialActivation)

	// the provider recovers; only the leftover is billed
	provider.failFor["price_sticker"] = false
	require.NoError(t, engine.ProcessActivation(context.Background(), propertyID))
	assert.Equal(t, 0, store.remaining())
	assert.Equal(t, 2, provider.createdCount())
}

func TestActivateRejectsInactivePrice(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	provider.prices["price_trash"] = billing.Price{ID: "price_trash", Active: true, Recurring: false}
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, store.remaining())
}

func TestActivateSkipsWhenClaimHeld(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	claimer := NewLocalClaimer()
	engine := NewEngine(store, provider, claimer, logger.NewNop())

	release, ok, err := claimer.TryClaim(context.Background(), propertyID)
	require.NoError(t, err)
	require.True(t, ok)

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Equal(t, SkipAlreadyRunning, result.Skipped)
	assert.Equal(t, 0, provider.createdCount())

	release()
	result, err = engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Len(t, result.Activated, 2)
}

func TestConcurrentActivationsBillOnce(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = engine.Activate(context.Background(), propertyID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, provider.createdCount())
	assert.Equal(t, 0, store.remaining())
}

func TestActivateBillsSelectionAsItIsWhenLocked(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	first := store.selections[0]
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	// the customer edits the quantity after activation listed the row
	store.afterList = func() {
		store.afterList = nil
		store.upsert(first.ServiceID, 5)
	}

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, result.Activated, 2)
	assert.Equal(t, 5, result.Activated[0].Quantity)
	assert.Equal(t, int64(5), provider.created[0].Quantity)
	assert.Equal(t, 5, store.subscriptions[0].Selection.Quantity)
	assert.Equal(t, 0, store.remaining())
}

func TestActivateKeepsEditMadeWhileBilling(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	first := store.selections[0]
	store.selections = store.selections[:1]
	provider := newFakeBilling("price_trash")

	edited := make(chan struct{})
	provider.onCreate = func() {
		provider.onCreate = nil
		go func() {
			defer close(edited)
			store.upsert(first.ServiceID, 3)
		}()
	}
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, result.Activated, 1)
	assert.Equal(t, 2, result.Activated[0].Quantity)

	<-edited
	// the edit waited for billing to settle and is queued, not lost
	pending, err := store.ListPendingSelections(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ServiceID, pending[0].ServiceID)
	assert.Equal(t, 3, pending[0].Quantity)
	assert.NotEqual(t, first.ID, pending[0].ID)
}

func TestActivateSkipsSelectionRemovedAfterListing(t *testing.T) {
	store, propertyID := approvedFixture(statusApproved, customer())
	removed := store.selections[1].ID
	store.afterList = func() {
		store.mu.Lock()
		store.selections = store.selections[:1]
		store.mu.Unlock()
	}
	provider := newFakeBilling("price_trash", "price_sticker")
	engine := NewEngine(store, provider, nil, logger.NewNop())

	result, err := engine.Activate(context.Background(), propertyID)
	require.NoError(t, err)
	assert.Len(t, result.Activated, 1)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, provider.createdCount())
	for _, done := range result.Activated {
		assert.NotEqual(t, removed, done.SelectionID)
	}
}

func TestActivateHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, propertyID := approvedFixture(statusApproved, customer())
	engine := NewEngine(store, newFakeBilling("price_trash", "price_sticker"), nil, logger.NewNop())

	router := gin.New()
	router.POST("/properties/:id/activate", NewHandler(engine).Activate)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/"+propertyID.String()+"/activate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscriptionId"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/properties/not-a-uuid/activate", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
