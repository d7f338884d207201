// Package reconcile reports billing subscriptions that point at properties
// the customer no longer owns. It only reads from the billing provider.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"collection_portal_backend/internal/billing"
	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type OrphanedSubscription struct {
	SubscriptionID string `json:"subscriptionId"`
	PropertyID     string `json:"propertyId"`
	Status         string `json:"status"`
}

type Report struct {
	UserID    uuid.UUID              `json:"userId"`
	Orphaned  []OrphanedSubscription `json:"orphaned"`
	CheckedAt time.Time              `json:"checkedAt"`
}

type Service struct {
	customers  CustomerLookup
	properties OwnedPropertyLister
	billing    billing.Provider
	cache      ReportCache
	group      singleflight.Group
	log        *logger.Logger
	now        func() time.Time
}

func NewService(customers CustomerLookup, properties OwnedPropertyLister, provider billing.Provider, reportCache ReportCache, log *logger.Logger) *Service {
	return &Service{
		customers:  customers,
		properties: properties,
		billing:    provider,
		cache:      reportCache,
		log:        log,
		now:        time.Now,
	}
}

// Reconcile computes a fresh report and caches it for the session.
// Concurrent runs for the same user share one provider call.
func (s *Service) Reconcile(ctx context.Context, userID uuid.UUID, sessionID string) (Report, error) {
	value, err, _ := s.group.Do(userID.String(), func() (interface{}, error) {
		return s.compute(ctx, userID)
	})
	if err != nil {
		return Report{}, err
	}

	report := value.(Report)
	if sessionID != "" {
		if err := s.cache.Set(ctx, sessionID, report); err != nil {
			s.log.Warn("failed to cache reconcile report", "user_id", userID.String(), "error", err)
		}
	}
	return report, nil
}

// Latest returns the session's cached report, computing one on a miss.
func (s *Service) Latest(ctx context.Context, userID uuid.UUID, sessionID string) (Report, error) {
	if sessionID != "" {
		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.log.Warn("failed to read reconcile report", "user_id", userID.String(), "error", err)
		}
		if cached != nil && cached.UserID == userID {
			return *cached, nil
		}
	}
	return s.Reconcile(ctx, userID, sessionID)
}

func (s *Service) compute(ctx context.Context, userID uuid.UUID) (Report, error) {
	report := Report{UserID: userID, Orphaned: make([]OrphanedSubscription, 0), CheckedAt: s.now().UTC()}

	customerID, err := s.customers.BillingCustomerID(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	if customerID == "" {
		return report, nil
	}

	subs, err := s.billing.ListSubscriptions(ctx, customerID)
	if errors.Is(err, billing.ErrBillingDisabled) {
		return report, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("list subscriptions: %w", err)
	}

	owned, err := s.properties.OwnedPropertyIDs(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	report.Orphaned = FindOrphaned(subs, owned)
	if len(report.Orphaned) > 0 {
		s.log.Info("orphaned subscriptions found", "user_id", userID.String(), "count", len(report.Orphaned))
	}
	return report, nil
}

// FindOrphaned keeps live subscriptions tagged with a property id that is
// not in owned. Untagged subscriptions were not created by activation and
// are ignored.
func FindOrphaned(subs []billing.Subscription, owned []uuid.UUID) []OrphanedSubscription {
	ownedSet := make(map[string]struct{}, len(owned))
	for _, id := range owned {
		ownedSet[id.String()] = struct{}{}
	}

	orphaned := make([]OrphanedSubscription, 0)
	for _, sub := range subs {
		if !sub.IsLive() {
			continue
		}
		propertyID := sub.Metadata[billing.MetadataPropertyID]
		if propertyID == "" {
			continue
		}
		if _, ok := ownedSet[propertyID]; ok {
			continue
		}
		orphaned = append(orphaned, OrphanedSubscription{
			SubscriptionID: sub.ID,
			PropertyID:     propertyID,
			Status:         sub.Status,
		})
	}

	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i].SubscriptionID < orphaned[j].SubscriptionID })
	return orphaned
}
