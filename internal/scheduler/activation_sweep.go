package scheduler

import (
	"context"
	"time"

	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultActivationSweepInterval = 15 * time.Minute
	activationSweepBatchSize       = 100
)

// PendingActivationLister pages through approved properties that still have
// selections waiting to be billed, in ascending id order after the cursor.
type PendingActivationLister interface {
	ListApprovedPropertyIDsWithSelections(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// ActivationSweep periodically re-queues activation for approved properties
// whose selections were left behind by a failed billing call or a crash
// between approval and activation. Each run takes the next page after the
// previous one and wraps around, so properties that keep failing cannot
// hold the whole batch.
type ActivationSweep struct {
	lister    PendingActivationLister
	queue     TaskQueue
	log       *logger.Logger
	interval  time.Duration
	batchSize int
	cursor    uuid.UUID
}

func NewActivationSweep(lister PendingActivationLister, queue TaskQueue, log *logger.Logger, interval time.Duration) *ActivationSweep {
	if interval <= 0 {
		interval = defaultActivationSweepInterval
	}

	return &ActivationSweep{
		lister:    lister,
		queue:     queue,
		log:       log,
		interval:  interval,
		batchSize: activationSweepBatchSize,
	}
}

func (s *ActivationSweep) Run(ctx context.Context) {
	if s == nil || s.lister == nil || s.queue == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ActivationSweep) sweep(ctx context.Context) int {
	ids, err := s.lister.ListApprovedPropertyIDsWithSelections(ctx, s.cursor, s.batchSize)
	if err == nil && len(ids) == 0 && s.cursor != uuid.Nil {
		s.cursor = uuid.Nil
		ids, err = s.lister.ListApprovedPropertyIDsWithSelections(ctx, s.cursor, s.batchSize)
	}
	if err != nil {
		s.log.Warn("activation sweep query failed", "error", err)
		return 0
	}

	if len(ids) < s.batchSize {
		s.cursor = uuid.Nil
	} else {
		s.cursor = ids[len(ids)-1]
	}

	queued := 0
	for _, id := range ids {
		if err := s.queue.EnqueueActivation(ctx, ActivationPayload{PropertyID: id.String(), Reason: "sweep"}); err != nil {
			s.log.Warn("activation sweep enqueue failed", "error", err, "propertyId", id)
			continue
		}
		queued++
	}

	if queued > 0 {
		s.log.Info("activation sweep queued properties", "queued", queued)
	}
	return queued
}
