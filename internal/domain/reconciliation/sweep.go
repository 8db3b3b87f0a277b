package reconciliation

import (
	"context"
	"fmt"

	"kesef/internal/domain/document"
	"kesef/internal/shared/logger"
)

type SweepSummary struct {
	Checked int `json:"checked"`
	Matched int `json:"matched"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Pending lists credit statements that still have unmatched rows. userID 0
// lists them for every user.
func (o *Orchestrator) Pending(ctx context.Context, userID int64) ([]document.CreditDocumentRef, error) {
	refs, err := o.documents.ListUnreconciled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled documents: %w", err)
	}
	return refs, nil
}

// Sweep retries reconciliation for every pending statement in turn. A bank
// statement uploaded after its card statement is picked up this way.
func (o *Orchestrator) Sweep(ctx context.Context, userID int64) (*SweepSummary, error) {
	refs, err := o.Pending(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &SweepSummary{}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Checked++
		switch o.Reconcile(ctx, ref.UserID, ref.DocumentID).Outcome {
		case OutcomeMatched:
			summary.Matched++
		case OutcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Int64("user_id", userID).
		Int("checked", summary.Checked).
		Int("matched", summary.Matched).
		Msg("reconciliation sweep finished")
	return summary, nil
}
