package document

import "context"

// CreditDocumentRef identifies a credit statement awaiting reconciliation.
type CreditDocumentRef struct {
	UserID     int64
	DocumentID string
}

type Repository interface {
	// GetByID returns (nil, nil) when the document does not exist.
	GetByID(ctx context.Context, id string) (*Document, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetBillingMetadata(ctx context.Context, id string, billing *BillingMetadata) error
	// ListUnreconciled returns credit statements that still own unmatched
	// transactions. userID 0 means every user.
	ListUnreconciled(ctx context.Context, userID int64) ([]CreditDocumentRef, error)
	// ResolveMissingRequests marks matching pending requests as uploaded and
	// returns how many changed.
	ResolveMissingRequests(ctx context.Context, criteria ResolveCriteria) (int64, error)
}
