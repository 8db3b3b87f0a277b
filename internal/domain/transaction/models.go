package transaction

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("transaction not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("transaction belongs to another user")
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

const (
	SourceManual       = "manual"
	SourceOCR          = "ocr"
	SourceBankImport   = "bank_import"
	SourceCreditImport = "credit_import"
)

const (
	StatusPending   = "pending"
	StatusProposed  = "proposed"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

const (
	ReconciliationUnmatched = "unmatched"
	ReconciliationMatched   = "matched"
)

const (
	ExpenseFixed    = "fixed"
	ExpenseVariable = "variable"
	ExpenseSpecial  = "special"
)

type Transaction struct {
	ID                   string    `json:"id"`
	UserID               int64     `json:"userId"`
	Amount               float64   `json:"amount"`
	Type                 string    `json:"type"`
	Vendor               string    `json:"vendor"`
	Date                 time.Time `json:"date"`
	Currency             string    `json:"currency"`
	Category             *string   `json:"category,omitempty"`
	DetailedCategory     *string   `json:"detailedCategory,omitempty"`
	ExpenseType          *string   `json:"expenseType,omitempty"`
	PaymentMethod        *string   `json:"paymentMethod,omitempty"`
	Notes                *string   `json:"notes,omitempty"`
	Source               string    `json:"source"`
	Confidence           float64   `json:"confidence"`
	Status               string    `json:"status"`
	IsSummary            bool      `json:"isSummary"`
	HasDetails           bool      `json:"hasDetails"`
	DocumentID           *string   `json:"documentId,omitempty"`
	LinkedDocumentID     *string   `json:"linkedDocumentId,omitempty"`
	ReconciliationStatus string    `json:"reconciliationStatus"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Detail is a line item absorbed under a summary transaction. It only exists
// while its parent is linked.
type Detail struct {
	ID                  string    `json:"id"`
	ParentTransactionID string    `json:"parentTransactionId"`
	UserID              int64     `json:"userId"`
	Amount              float64   `json:"amount"`
	Vendor              string    `json:"vendor"`
	Date                time.Time `json:"date"`
	Notes               *string   `json:"notes,omitempty"`
	Category            *string   `json:"category,omitempty"`
	DetailedCategory    *string   `json:"detailedCategory,omitempty"`
	ExpenseType         *string   `json:"expenseType,omitempty"`
	PaymentMethod       *string   `json:"paymentMethod,omitempty"`
	Confidence          float64   `json:"confidence"`
	CreatedAt           time.Time `json:"createdAt"`
}

type CreateTransactionParams struct {
	ID                   string
	UserID               int64
	Amount               float64
	Type                 string
	Vendor               string
	Date                 time.Time
	Currency             string
	Category             *string
	DetailedCategory     *string
	ExpenseType          *string
	PaymentMethod        *string
	Notes                *string
	Source               string
	Confidence           float64
	Status               string
	IsSummary            bool
	DocumentID           *string
	ReconciliationStatus string
}

type CreateDetailParams struct {
	ID                  string
	ParentTransactionID string
	UserID              int64
	Amount              float64
	Vendor              string
	Date                time.Time
	Notes               *string
	Category            *string
	DetailedCategory    *string
	ExpenseType         *string
	PaymentMethod       *string
	Confidence          float64
}

// UpdateTransactionParams carries a partial update. Nil fields are left
// untouched; ClearLinkedDocumentID sets linked_document_id to NULL.
type UpdateTransactionParams struct {
	IsSummary             *bool
	HasDetails            *bool
	LinkedDocumentID      *string
	ClearLinkedDocumentID bool
	ReconciliationStatus  *string
	Status                *string
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
