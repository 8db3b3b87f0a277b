package scheduler

import (
	"context"
	"fmt"
	"strconv"

	"kesef/internal/domain/document"
	"kesef/internal/domain/reconciliation"
)

// Reconciler is the part of the orchestrator jobs need.
type Reconciler interface {
	Reconcile(ctx context.Context, userID int64, creditDocumentID string) *reconciliation.Result
}

// ReconcileJob runs the orchestrator for one credit statement.
type ReconcileJob struct {
	userID     int64
	documentID string
	reconciler Reconciler
}

func NewReconcileJob(userID int64, documentID string, reconciler Reconciler) *ReconcileJob {
	return &ReconcileJob{userID: userID, documentID: documentID, reconciler: reconciler}
}

// Execute reports an error only for failed outcomes; skipped is normal.
func (j *ReconcileJob) Execute(ctx context.Context) error {
	res := j.reconciler.Reconcile(ctx, j.userID, j.documentID)
	if res != nil && res.Outcome == reconciliation.OutcomeFailed {
		return fmt.Errorf("reconcile %s: %s", j.documentID, res.Reason)
	}
	return nil
}

func (j *ReconcileJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *ReconcileJob) Description() string {
	return fmt.Sprintf("reconcile document %s", j.documentID)
}

// SweepSource is a Reconciler that can also list pending statements.
type SweepSource interface {
	Reconciler
	Pending(ctx context.Context, userID int64) ([]document.CreditDocumentRef, error)
}

// SweepJobs returns a job provider that yields one ReconcileJob per pending
// credit statement across all users.
func SweepJobs(source SweepSource) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		refs, err := source.Pending(ctx, 0)
		if err != nil {
			return nil, err
		}
		jobs := make([]Job, 0, len(refs))
		for _, ref := range refs {
			jobs = append(jobs, NewReconcileJob(ref.UserID, ref.DocumentID, source))
		}
		return jobs, nil
	}
}
