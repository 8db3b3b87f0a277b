package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kesef/internal/domain/document"
)

type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*document.Document, error) {
	query := `
		SELECT id, user_id, type, file_name, storage_path, mime_type, status,
		       next_billing_date, next_billing_amount, card_last4, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	var d document.Document
	var billingDate, cardLast4 sql.NullString
	var billingAmount sql.NullFloat64

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.UserID, &d.Type, &d.FileName, &d.StoragePath, &d.MimeType, &d.Status,
		&billingDate, &billingAmount, &cardLast4, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if billingDate.Valid || billingAmount.Valid || cardLast4.Valid {
		d.Billing = &document.BillingMetadata{
			NextBillingDate:   billingDate.String,
			NextBillingAmount: billingAmount.Float64,
			CardLast4:         cardLast4.String,
		}
	}
	return &d, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return document.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) SetBillingMetadata(ctx context.Context, id string, billing *document.BillingMetadata) error {
	var date, last4 sql.NullString
	var amount sql.NullFloat64
	if billing != nil {
		date = sql.NullString{String: billing.NextBillingDate, Valid: billing.NextBillingDate != ""}
		amount = sql.NullFloat64{Float64: billing.NextBillingAmount, Valid: billing.NextBillingAmount > 0}
		last4 = sql.NullString{String: billing.CardLast4, Valid: billing.CardLast4 != ""}
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE documents
		SET next_billing_date = $2, next_billing_amount = $3, card_last4 = $4, updated_at = NOW()
		WHERE id = $1
	`, id, date, amount, last4)
	if err != nil {
		return fmt.Errorf("failed to store billing metadata: %w", err)
	}
	return nil
}

// ListUnreconciled returns credit statements with billing metadata that
// still own at least one unmatched transaction.
func (r *DocumentRepository) ListUnreconciled(ctx context.Context, userID int64) ([]document.CreditDocumentRef, error) {
	query := `
		SELECT d.user_id, d.id
		FROM documents d
		WHERE d.type = 'credit_statement'
		  AND d.status = 'extracted'
		  AND d.next_billing_date IS NOT NULL
		  AND d.next_billing_amount > 0
		  AND ($1 = 0 OR d.user_id = $1)
		  AND EXISTS (
		      SELECT 1 FROM transactions t
		      WHERE t.document_id = d.id AND t.reconciliation_status = 'unmatched'
		  )
		ORDER BY d.user_id, d.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unreconciled documents: %w", err)
	}
	defer rows.Close()

	var refs []document.CreditDocumentRef
	for rows.Next() {
		var ref document.CreditDocumentRef
		if err := rows.Scan(&ref.UserID, &ref.DocumentID); err != nil {
			return nil, fmt.Errorf("failed to scan document ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *DocumentRepository) ResolveMissingRequests(ctx context.Context, c document.ResolveCriteria) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE missing_document_requests
		SET status = 'uploaded', document_id = $4, resolved_at = NOW()
		WHERE user_id = $1
		  AND status = 'pending'
		  AND document_type = 'credit_statement'
		  AND period_month = $3
		  AND ($2 = '' OR card_last4 IS NULL OR card_last4 = $2)
	`, c.UserID, c.CardLast4, c.PeriodMonth, c.DocumentID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve missing document requests: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

var _ document.Repository = (*DocumentRepository)(nil)
