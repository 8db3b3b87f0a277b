package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"kesef/internal/shared/logger"
)

type submitter interface {
	Submit(job Job) error
}

// Dispatcher queues reconciliation jobs on the worker pool. A trigger for
// the same user and document within the dedupe window is dropped.
type Dispatcher struct {
	pool       submitter
	reconciler Reconciler
	seen       *cache.Cache
	ttl        time.Duration
}

func NewDispatcher(pool submitter, reconciler Reconciler, dedupeTTL time.Duration) *Dispatcher {
	if dedupeTTL <= 0 {
		dedupeTTL = time.Minute
	}
	return &Dispatcher{
		pool:       pool,
		reconciler: reconciler,
		seen:       cache.New(dedupeTTL, 2*dedupeTTL),
		ttl:        dedupeTTL,
	}
}

// TriggerReconcile implements reconciliation.Trigger. It never blocks on the
// reconciliation itself.
func (d *Dispatcher) TriggerReconcile(ctx context.Context, userID int64, documentID string) {
	log := logger.FromContext(ctx).With().Int64("user_id", userID).Str("document_id", documentID).Logger()

	key := fmt.Sprintf("%d:%s", userID, documentID)
	if err := d.seen.Add(key, struct{}{}, d.ttl); err != nil {
		log.Debug().Msg("reconcile trigger deduplicated")
		return
	}

	if err := d.pool.Submit(NewReconcileJob(userID, documentID, d.reconciler)); err != nil {
		d.seen.Delete(key)
		log.Warn().Err(err).Msg("failed to queue reconciliation, the daily sweep will retry")
		return
	}
	log.Debug().Msg("reconciliation queued")
}
