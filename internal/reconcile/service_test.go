package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"collection_portal_backend/internal/billing"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/platform/httpkit"
	"collection_portal_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCustomers map[uuid.UUID]string

func (s staticCustomers) BillingCustomerID(_ context.Context, userID uuid.UUID) (string, error) {
	return s[userID], nil
}

type staticOwned map[uuid.UUID][]uuid.UUID

func (s staticOwned) OwnedPropertyIDs(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	return s[ownerID], nil
}

// readOnlyBilling counts writes so tests can assert there were none.
type readOnlyBilling struct {
	subs   []billing.Subscription
	gate   chan struct{}
	calls  atomic.Int32
	writes atomic.Int32
}

func (b *readOnlyBilling) GetPrice(context.Context, string) (billing.Price, error) {
	return billing.Price{}, nil
}

func (b *readOnlyBilling) CreateSubscription(context.Context, billing.CreateSubscriptionParams) (billing.Subscription, error) {
	b.writes.Add(1)
	return billing.Subscription{}, nil
}

func (b *readOnlyBilling) ListSubscriptions(context.Context, string) ([]billing.Subscription, error) {
	b.calls.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	return b.subs, nil
}

type fixture struct {
	userID   uuid.UUID
	owned    uuid.UUID
	sold     uuid.UUID
	provider *readOnlyBilling
	svc      *Service
}

func newFixture(t *testing.T, reportCache ReportCache) *fixture {
	t.Helper()
	userID := uuid.New()
	owned := uuid.New()
	sold := uuid.New()

	provider := &readOnlyBilling{subs: []billing.Subscription{
		{ID: "sub_owned", Status: "active", Metadata: map[string]string{billing.MetadataPropertyID: owned.String()}},
		{ID: "sub_orphan", Status: "past_due", Metadata: map[string]string{billing.MetadataPropertyID: sold.String()}},
		{ID: "sub_canceled", Status: billing.StatusCanceled, Metadata: map[string]string{billing.MetadataPropertyID: sold.String()}},
		{ID: "sub_incomplete", Status: billing.StatusIncompleteExpired, Metadata: map[string]string{billing.MetadataPropertyID: sold.String()}},
		{ID: "sub_manual", Status: "active", Metadata: map[string]string{}},
	}}

	svc := NewService(
		staticCustomers{userID: "cus_1"},
		staticOwned{userID: {owned}},
		provider,
		reportCache,
		logger.NewNop(),
	)
	return &fixture{userID: userID, owned: owned, sold: sold, provider: provider, svc: svc}
}

func TestReconcileReportsOnlyLiveUnownedSubscriptions(t *testing.T) {
	f := newFixture(t, NewMemoryCache(time.Hour))

	report, err := f.svc.Reconcile(context.Background(), f.userID, "sess-1")
	require.NoError(t, err)
	require.Len(t, report.Orphaned, 1)
	assert.Equal(t, "sub_orphan", report.Orphaned[0].SubscriptionID)
	assert.Equal(t, f.sold.String(), report.Orphaned[0].PropertyID)
	assert.Equal(t, int32(0), f.provider.writes.Load())
}

func TestReconcileNeverReturnsOwnedProperties(t *testing.T) {
	f := newFixture(t, NewMemoryCache(time.Hour))

	report, err := f.svc.Reconcile(context.Background(), f.userID, "")
	require.NoError(t, err)
	for _, o := range report.Orphaned {
		assert.NotEqual(t, f.owned.String(), o.PropertyID)
	}
}

func TestReconcileWithoutCustomerSkipsProvider(t *testing.T) {
	f := newFixture(t, NewMemoryCache(time.Hour))

	report, err := f.svc.Reconcile(context.Background(), uuid.New(), "sess-x")
	require.NoError(t, err)
	assert.Empty(t, report.Orphaned)
	assert.Equal(t, int32(0), f.provider.calls.Load())
}

func TestReconcileWithBillingDisabledIsEmpty(t *testing.T) {
	userID := uuid.New()
	svc := NewService(staticCustomers{userID: "cus_1"}, staticOwned{}, billing.DisabledProvider{}, NewMemoryCache(time.Hour), logger.NewNop())

	report, err := svc.Reconcile(context.Background(), userID, "sess")
	require.NoError(t, err)
	assert.Empty(t, report.Orphaned)
}

func TestLatestUsesSessionCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, NewRedisCache(client, time.Hour))
	ctx := context.Background()

	_, err := f.svc.Reconcile(ctx, f.userID, "sess-1")
	require.NoError(t, err)
	require.True(t, mr.Exists(cacheKeyPrefix+"sess-1"))

	report, err := f.svc.Latest(ctx, f.userID, "sess-1")
	require.NoError(t, err)
	require.Len(t, report.Orphaned, 1)
	assert.Equal(t, int32(1), f.provider.calls.Load())

	// a new session recomputes
	_, err = f.svc.Latest(ctx, f.userID, "sess-2")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.provider.calls.Load())
}

func TestRedisCacheExpiresWithSession(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "sess", Report{UserID: uuid.New()}))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConcurrentReconcilesShareOneProviderCall(t *testing.T) {
	f := newFixture(t, NewMemoryCache(time.Hour))
	f.provider.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := f.svc.Reconcile(context.Background(), f.userID, "sess")
			assert.NoError(t, err)
			assert.Len(t, report.Orphaned, 1)
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(f.provider.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.provider.calls.Load())
}

func TestLoginEventTriggersReconcile(t *testing.T) {
	f := newFixture(t, NewMemoryCache(time.Hour))
	bus := events.NewInMemoryBus(logger.NewNop())
	bus.Subscribe(events.UserLoggedIn{}.EventName(), NewLoginHandler(f.svc, logger.NewNop()))

	bus.Publish(context.Background(), events.UserLoggedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    f.userID,
		SessionID: "sess-login",
	})
	bus.Wait()

	cached, err := f.svc.cache.Get(context.Background(), "sess-login")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Len(t, cached.Orphaned, 1)
}

func TestOrphanedHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, NewMemoryCache(time.Hour))
	h := NewHandler(f.svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, f.userID)
		c.Set(httpkit.ContextSessionIDKey, "sess-http")
		c.Next()
	})
	router.GET("/billing/orphaned-subscriptions", h.Orphaned)
	router.POST("/billing/reconcile", h.Reconcile)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/billing/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sub_orphan")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/orphaned-subscriptions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sub_orphan")
	assert.NotContains(t, rec.Body.String(), "sub_owned")
	assert.Equal(t, int32(1), f.provider.calls.Load())
}
