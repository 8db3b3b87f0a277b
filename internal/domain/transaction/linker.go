package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kesef/internal/shared/logger"
)

type LinkParams struct {
	ParentTransactionID  string   `json:"parentTransactionId"`
	DetailTransactionIDs []string `json:"detailTransactionIds"`
	DocumentID           *string  `json:"documentId,omitempty"`
}

type LinkResult struct {
	Parent       *Transaction `json:"parent"`
	Details      []*Detail    `json:"details"`
	DetailsTotal float64      `json:"detailsTotal"`
}

type DetailView struct {
	HasDetails bool              `json:"hasDetails"`
	Parent     *Transaction      `json:"parent"`
	Details    []*Detail         `json:"details"`
	Statistics *DetailStatistics `json:"statistics"`
}

// Linker moves transactions between the unlinked state (standalone rows) and
// the linked state (line items under a summary parent).
type Linker struct {
	repo    Repository
	details DetailRepository
}

func NewLinker(repo Repository, details DetailRepository) *Linker {
	return &Linker{repo: repo, details: details}
}

// Link absorbs the given transactions into parent as detail rows. Ids that no
// longer exist are skipped; a source that is itself a summary is ErrValidation. Once the parent has been updated the merge counts
// as done: a failure to delete the absorbed originals is logged, not returned.
func (l *Linker) Link(ctx context.Context, userID int64, params LinkParams) (*LinkResult, error) {
	log := logger.FromContext(ctx)

	if params.ParentTransactionID == "" {
		return nil, fmt.Errorf("%w: parent transaction id is required", ErrValidation)
	}
	if len(params.DetailTransactionIDs) == 0 {
		return nil, fmt.Errorf("%w: detail transaction ids are required", ErrValidation)
	}

	parent, err := l.ownedParent(ctx, userID, params.ParentTransactionID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(params.DetailTransactionIDs))
	for _, id := range params.DetailTransactionIDs {
		if id != "" && id != parent.ID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no detail transactions besides the parent", ErrValidation)
	}

	sources, err := l.repo.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load detail transactions: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: none of the detail transactions exist", ErrNotFound)
	}
	for _, t := range sources {
		// deleting a summary would cascade away its own detail rows
		if t.HasDetails {
			return nil, fmt.Errorf("%w: transaction %s already has details; unlink it first", ErrValidation, t.ID)
		}
	}
	if len(sources) < len(ids) {
		log.Warn().
			Str("parent_id", parent.ID).
			Int("requested", len(ids)).
			Int("found", len(sources)).
			Msg("some detail transactions no longer exist, linking the rest")
	}

	total := decimal.Zero
	rows := make([]CreateDetailParams, 0, len(sources))
	sourceIDs := make([]string, 0, len(sources))
	for _, t := range sources {
		total = total.Add(decimal.NewFromFloat(t.Amount))
		sourceIDs = append(sourceIDs, t.ID)
		rows = append(rows, CreateDetailParams{
			ID:                  uuid.NewString(),
			ParentTransactionID: parent.ID,
			UserID:              userID,
			Amount:              t.Amount,
			Vendor:              t.Vendor,
			Date:                t.Date,
			Notes:               t.Notes,
			Category:            t.Category,
			DetailedCategory:    t.DetailedCategory,
			ExpenseType:         t.ExpenseType,
			PaymentMethod:       t.PaymentMethod,
			Confidence:          t.Confidence,
		})
	}

	details, err := l.details.CreateDetails(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction details: %w", err)
	}

	updated, err := l.repo.Update(ctx, parent.ID, UpdateTransactionParams{
		HasDetails:       boolPtr(true),
		IsSummary:        boolPtr(true),
		LinkedDocumentID: params.DocumentID,
	})
	if err != nil || updated == nil {
		if err == nil {
			err = ErrNotFound
		}
		// undo the insert so the parent is not left with stray details
		inserted := make([]string, 0, len(rows))
		for _, r := range rows {
			inserted = append(inserted, r.ID)
		}
		if _, delErr := l.details.DeleteDetailsByIDs(ctx, inserted); delErr != nil {
			log.Error().Err(delErr).Str("parent_id", parent.ID).Msg("failed to roll back inserted details")
		}
		return nil, fmt.Errorf("failed to update parent transaction: %w", err)
	}

	if n, err := l.repo.DeleteBatch(ctx, userID, sourceIDs); err != nil {
		log.Error().
			Err(err).
			Str("parent_id", parent.ID).
			Strs("orphaned_ids", sourceIDs).
			Msg("link succeeded but absorbed transactions were not deleted")
	} else if int(n) != len(sourceIDs) {
		log.Warn().
			Str("parent_id", parent.ID).
			Int64("deleted", n).
			Int("expected", len(sourceIDs)).
			Msg("absorbed transaction count mismatch")
	}

	log.Info().
		Str("parent_id", parent.ID).
		Int("details", len(details)).
		Msg("transactions linked")

	return &LinkResult{
		Parent:       updated,
		Details:      details,
		DetailsTotal: total.Round(2).InexactFloat64(),
	}, nil
}

// Unlink restores parent's details as standalone proposed expenses and
// returns how many were restored. A parent without details is ErrNotFound,
// which makes repeated calls harmless.
func (l *Linker) Unlink(ctx context.Context, userID int64, parentID string) (int, error) {
	log := logger.FromContext(ctx)

	if parentID == "" {
		return 0, fmt.Errorf("%w: parent transaction id is required", ErrValidation)
	}

	parent, err := l.ownedParent(ctx, userID, parentID)
	if err != nil {
		return 0, err
	}

	details, err := l.details.ListDetails(ctx, parent.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load transaction details: %w", err)
	}
	if len(details) == 0 {
		return 0, fmt.Errorf("%w: transaction %s has no details", ErrNotFound, parent.ID)
	}

	rows := make([]CreateTransactionParams, 0, len(details))
	for _, d := range details {
		rows = append(rows, CreateTransactionParams{
			ID:                   uuid.NewString(),
			UserID:               userID,
			Amount:               d.Amount,
			Type:                 TypeExpense,
			Vendor:               d.Vendor,
			Date:                 d.Date,
			Currency:             parent.Currency,
			Category:             d.Category,
			DetailedCategory:     d.DetailedCategory,
			ExpenseType:          d.ExpenseType,
			PaymentMethod:        d.PaymentMethod,
			Notes:                d.Notes,
			Source:               SourceOCR,
			Confidence:           d.Confidence,
			Status:               StatusProposed,
			DocumentID:           parent.LinkedDocumentID,
			ReconciliationStatus: ReconciliationUnmatched,
		})
	}

	restored, err := l.repo.CreateBatch(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("failed to restore transactions: %w", err)
	}

	if _, err := l.details.DeleteDetails(ctx, parent.ID); err != nil {
		ids := make([]string, 0, len(restored))
		for _, t := range restored {
			ids = append(ids, t.ID)
		}
		if _, delErr := l.repo.DeleteBatch(ctx, userID, ids); delErr != nil {
			log.Error().Err(delErr).Strs("restored_ids", ids).Msg("failed to roll back restored transactions")
		}
		return 0, fmt.Errorf("failed to delete transaction details: %w", err)
	}

	// is_summary stays as it was; the row still stands for a bank charge.
	if _, err := l.repo.Update(ctx, parent.ID, UpdateTransactionParams{
		HasDetails:            boolPtr(false),
		ClearLinkedDocumentID: true,
	}); err != nil {
		log.Error().
			Err(err).
			Str("parent_id", parent.ID).
			Msg("details restored but parent flags were not reset")
	}

	log.Info().
		Str("parent_id", parent.ID).
		Int("restored", len(restored)).
		Msg("transactions unlinked")

	return len(restored), nil
}

// GetDetails returns the parent with its details and statistics. A parent
// without details yields HasDetails=false and nil statistics.
func (l *Linker) GetDetails(ctx context.Context, userID int64, parentID string) (*DetailView, error) {
	parent, err := l.ownedParent(ctx, userID, parentID)
	if err != nil {
		return nil, err
	}

	details, err := l.details.ListDetails(ctx, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction details: %w", err)
	}
	if details == nil {
		details = []*Detail{}
	}

	return &DetailView{
		HasDetails: len(details) > 0,
		Parent:     parent,
		Details:    details,
		Statistics: ComputeStatistics(parent, details),
	}, nil
}

func (l *Linker) ownedParent(ctx context.Context, userID int64, id string) (*Transaction, error) {
	parent, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent transaction: %w", err)
	}
	if parent == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if parent.UserID != userID {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, ErrForbidden)
	}
	return parent, nil
}
