package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"kesef/internal/domain/transaction"
)

const transactionColumns = `id, user_id, amount, type, vendor, date, currency, category, detailed_category,
	expense_type, payment_method, notes, source, confidence, status, is_summary, has_details,
	document_id, linked_document_id, reconciliation_status, created_at, updated_at`

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Vendor, &t.Date, &t.Currency,
		&t.Category, &t.DetailedCategory, &t.ExpenseType, &t.PaymentMethod, &t.Notes,
		&t.Source, &t.Confidence, &t.Status, &t.IsSummary, &t.HasDetails,
		&t.DocumentID, &t.LinkedDocumentID, &t.ReconciliationStatus,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*transaction.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	out, err := r.CreateBatch(ctx, []transaction.CreateTransactionParams{params})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// CreateBatch writes every row in one INSERT so a failure leaves nothing
// behind.
func (r *TransactionRepository) CreateBatch(ctx context.Context, params []transaction.CreateTransactionParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	const cols = 18
	args := make([]any, 0, len(params)*cols)
	for _, p := range params {
		args = append(args,
			p.ID, p.UserID, p.Amount, p.Type, p.Vendor, p.Date, p.Currency,
			p.Category, p.DetailedCategory, p.ExpenseType, p.PaymentMethod, p.Notes,
			p.Source, p.Confidence, p.Status, p.IsSummary, p.DocumentID, p.ReconciliationStatus,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO transactions (id, user_id, amount, type, vendor, date, currency, category,
			detailed_category, expense_type, payment_method, notes, source, confidence, status,
			is_summary, document_id, reconciliation_status)
		VALUES %s
		RETURNING %s
	`, valuesPlaceholders(len(params), cols), transactionColumns)

	out, err := r.queryTransactions(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions: %w", err)
	}
	return out, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByIDs(ctx context.Context, userID int64, ids []string) ([]*transaction.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND id = ANY($2)
		ORDER BY created_at, id
	`
	out, err := r.queryTransactions(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

func (r *TransactionRepository) ListByDocumentID(ctx context.Context, userID int64, documentID string) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND document_id = $2
		ORDER BY date, created_at, id
	`
	out, err := r.queryTransactions(ctx, query, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list document transactions: %w", err)
	}
	return out, nil
}

// Update builds the SET clause from the non-nil fields of params.
func (r *TransactionRepository) Update(ctx context.Context, id string, params transaction.UpdateTransactionParams) (*transaction.Transaction, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	argIndex := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if params.IsSummary != nil {
		add("is_summary", *params.IsSummary)
	}
	if params.HasDetails != nil {
		add("has_details", *params.HasDetails)
	}
	if params.ClearLinkedDocumentID {
		setClauses = append(setClauses, "linked_document_id = NULL")
	} else if params.LinkedDocumentID != nil {
		add("linked_document_id", *params.LinkedDocumentID)
	}
	if params.ReconciliationStatus != nil {
		add("reconciliation_status", *params.ReconciliationStatus)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}

	query := fmt.Sprintf(`UPDATE transactions SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIndex, transactionColumns)
	args = append(args, id)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) DeleteBatch(ctx context.Context, userID int64, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = $1 AND id = ANY($2)`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func (r *TransactionRepository) FindSummaryCandidates(ctx context.Context, c transaction.CandidateCriteria) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		  AND type = 'expense'
		  AND status <> 'rejected'
		  AND is_summary
		  AND NOT has_details
		  AND date BETWEEN $2 AND $3
		ORDER BY created_at, id
	`
	out, err := r.queryTransactions(ctx, query, c.UserID, c.DateFrom, c.DateTo)
	if err != nil {
		return nil, fmt.Errorf("failed to find summary candidates: %w", err)
	}
	return out, nil
}

func (r *TransactionRepository) FindInWindow(ctx context.Context, c transaction.WindowCriteria) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		  AND amount BETWEEN $2 AND $3
		  AND date BETWEEN $4 AND $5
		  AND ($6 = '' OR document_id IS DISTINCT FROM $6)
		ORDER BY created_at, id
	`
	out, err := r.queryTransactions(ctx, query,
		c.UserID, c.AmountMin, c.AmountMax, c.DateFrom, c.DateTo, c.ExcludeDocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to search transactions: %w", err)
	}
	return out, nil
}

func (r *TransactionRepository) MarkDocumentMatched(ctx context.Context, userID int64, documentID string, linkedDocumentID *string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET reconciliation_status = 'matched', linked_document_id = $3, updated_at = NOW()
		WHERE user_id = $1 AND document_id = $2
	`, userID, documentID, linkedDocumentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark document transactions matched: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

var _ transaction.Repository = (*TransactionRepository)(nil)
