package transaction

import (
	"context"
	"time"
)

// CandidateCriteria selects the summary pool a new transaction is scored
// against: expense rows that are summaries without details, not rejected,
// dated inside [DateFrom, DateTo].
type CandidateCriteria struct {
	UserID   int64
	DateFrom time.Time
	DateTo   time.Time
}

// WindowCriteria selects any of the user's transactions inside an amount and
// date window. Rows tagged with ExcludeDocumentID are skipped.
type WindowCriteria struct {
	UserID            int64
	AmountMin         float64
	AmountMax         float64
	DateFrom          time.Time
	DateTo            time.Time
	ExcludeDocumentID string
}

// Repository defines the interface for transaction data access. Lookups that
// find nothing return (nil, nil).
type Repository interface {
	Create(ctx context.Context, params CreateTransactionParams) (*Transaction, error)
	// CreateBatch inserts all rows in a single statement; either every row is
	// written or none is.
	CreateBatch(ctx context.Context, params []CreateTransactionParams) ([]*Transaction, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// ListByIDs returns the user's transactions among ids. Unknown ids and rows
	// owned by other users are silently absent from the result.
	ListByIDs(ctx context.Context, userID int64, ids []string) ([]*Transaction, error)
	ListByDocumentID(ctx context.Context, userID int64, documentID string) ([]*Transaction, error)
	Update(ctx context.Context, id string, params UpdateTransactionParams) (*Transaction, error)
	DeleteBatch(ctx context.Context, userID int64, ids []string) (int64, error)
	FindSummaryCandidates(ctx context.Context, criteria CandidateCriteria) ([]*Transaction, error)
	// FindInWindow returns rows in insertion order (created_at, then id).
	FindInWindow(ctx context.Context, criteria WindowCriteria) ([]*Transaction, error)
	// MarkDocumentMatched sets reconciliation_status='matched' and
	// linked_document_id on every transaction tagged with documentID.
	MarkDocumentMatched(ctx context.Context, userID int64, documentID string, linkedDocumentID *string) (int64, error)
}

// DetailRepository stores the line items of linked summaries.
type DetailRepository interface {
	// CreateDetails inserts all rows in a single statement.
	CreateDetails(ctx context.Context, params []CreateDetailParams) ([]*Detail, error)
	ListDetails(ctx context.Context, parentID string) ([]*Detail, error)
	DeleteDetails(ctx context.Context, parentID string) (int64, error)
	DeleteDetailsByIDs(ctx context.Context, ids []string) (int64, error)
}
