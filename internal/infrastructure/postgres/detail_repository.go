package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"kesef/internal/domain/transaction"
)

const detailColumns = `id, parent_transaction_id, user_id, amount, vendor, date, notes, category,
	detailed_category, expense_type, payment_method, confidence, created_at`

type DetailRepository struct {
	db *DB
}

func NewDetailRepository(db *DB) *DetailRepository {
	return &DetailRepository{db: db}
}

func (r *DetailRepository) CreateDetails(ctx context.Context, params []transaction.CreateDetailParams) ([]*transaction.Detail, error) {
	if len(params) == 0 {
		return nil, nil
	}

	const cols = 12
	args := make([]any, 0, len(params)*cols)
	for _, p := range params {
		args = append(args,
			p.ID, p.ParentTransactionID, p.UserID, p.Amount, p.Vendor, p.Date, p.Notes,
			p.Category, p.DetailedCategory, p.ExpenseType, p.PaymentMethod, p.Confidence,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO transaction_details (id, parent_transaction_id, user_id, amount, vendor, date,
			notes, category, detailed_category, expense_type, payment_method, confidence)
		VALUES %s
		RETURNING %s
	`, valuesPlaceholders(len(params), cols), detailColumns)

	out, err := r.queryDetails(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction details: %w", err)
	}
	return out, nil
}

func (r *DetailRepository) ListDetails(ctx context.Context, parentID string) ([]*transaction.Detail, error) {
	query := `
		SELECT ` + detailColumns + `
		FROM transaction_details
		WHERE parent_transaction_id = $1
		ORDER BY date, created_at, id
	`
	out, err := r.queryDetails(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction details: %w", err)
	}
	return out, nil
}

func (r *DetailRepository) DeleteDetails(ctx context.Context, parentID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transaction_details WHERE parent_transaction_id = $1`, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction details: %w", err)
	}
	return result.RowsAffected()
}

func (r *DetailRepository) DeleteDetailsByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM transaction_details WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction details: %w", err)
	}
	return result.RowsAffected()
}

func (r *DetailRepository) queryDetails(ctx context.Context, query string, args ...any) ([]*transaction.Detail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*transaction.Detail
	for rows.Next() {
		var d transaction.Detail
		if err := rows.Scan(
			&d.ID, &d.ParentTransactionID, &d.UserID, &d.Amount, &d.Vendor, &d.Date, &d.Notes,
			&d.Category, &d.DetailedCategory, &d.ExpenseType, &d.PaymentMethod, &d.Confidence,
			&d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

var _ transaction.DetailRepository = (*DetailRepository)(nil)
