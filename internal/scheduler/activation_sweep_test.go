package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"collection_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLister struct {
	ids []uuid.UUID
	err error
}

func (f fakeLister) ListApprovedPropertyIDsWithSelections(_ context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]uuid.UUID, 0, limit)
	for _, id := range f.ids {
		if bytes.Compare(id[:], after[:]) > 0 && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func sortedIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

type recordingQueue struct {
	activations []ActivationPayload
	failFor     string
}

func (q *recordingQueue) EnqueueFeasibilityCheck(context.Context, FeasibilityCheckPayload) error {
	return nil
}

func (q *recordingQueue) EnqueueActivation(_ context.Context, payload ActivationPayload) error {
	if payload.PropertyID == q.failFor {
		return errors.New("redis unavailable")
	}
	q.activations = append(q.activations, payload)
	return nil
}

func TestActivationSweepQueuesLeftovers(t *testing.T) {
	ids := sortedIDs(2)
	first, second := ids[0], ids[1]
	queue := &recordingQueue{failFor: first.String()}
	sweep := NewActivationSweep(fakeLister{ids: ids}, queue, logger.NewNop(), 0)

	if queued := sweep.sweep(context.Background()); queued != 1 {
		t.Fatalf("expected 1 queued, got %d", queued)
	}
	if len(queue.activations) != 1 || queue.activations[0].PropertyID != second.String() {
		t.Fatalf("unexpected activations %+v", queue.activations)
	}
	if queue.activations[0].Reason != "sweep" {
		t.Fatalf("unexpected reason %q", queue.activations[0].Reason)
	}
}

func TestActivationSweepListError(t *testing.T) {
	queue := &recordingQueue{}
	sweep := NewActivationSweep(fakeLister{err: errors.New("db down")}, queue, logger.NewNop(), 0)

	if queued := sweep.sweep(context.Background()); queued != 0 {
		t.Fatalf("expected nothing queued, got %d", queued)
	}
}

func TestActivationSweepRotatesPastStuckProperties(t *testing.T) {
	ids := sortedIDs(activationSweepBatchSize*2 + 50)
	queue := &recordingQueue{}
	sweep := NewActivationSweep(fakeLister{ids: ids}, queue, logger.NewNop(), 0)

	counts := []int{sweep.sweep(context.Background()), sweep.sweep(context.Background()), sweep.sweep(context.Background())}
	if counts[0] != activationSweepBatchSize || counts[1] != activationSweepBatchSize || counts[2] != 50 {
		t.Fatalf("unexpected page sizes %v", counts)
	}

	seen := make(map[string]bool, len(ids))
	for _, payload := range queue.activations {
		seen[payload.PropertyID] = true
	}
	if len(seen) != len(ids) {
		t.Fatalf("expected every property queued once per cycle, got %d of %d", len(seen), len(ids))
	}

	// the next run starts over from the lowest id
	queue.activations = nil
	if queued := sweep.sweep(context.Background()); queued != activationSweepBatchSize {
		t.Fatalf("expected a full page after wrapping, got %d", queued)
	}
	if queue.activations[0].PropertyID != ids[0].String() {
		t.Fatalf("expected wrap to first id, got %s", queue.activations[0].PropertyID)
	}
}

func TestActivationSweepWrapsWhenLastPageWasFull(t *testing.T) {
	ids := sortedIDs(activationSweepBatchSize)
	queue := &recordingQueue{}
	sweep := NewActivationSweep(fakeLister{ids: ids}, queue, logger.NewNop(), 0)

	if queued := sweep.sweep(context.Background()); queued != activationSweepBatchSize {
		t.Fatalf("expected a full page, got %d", queued)
	}
	if queued := sweep.sweep(context.Background()); queued != activationSweepBatchSize {
		t.Fatalf("expected the sweep to wrap instead of idling, got %d", queued)
	}
}
