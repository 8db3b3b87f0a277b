package document

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrDocumentNotFound = errors.New("document not found")

const (
	TypeBankStatement   = "bank_statement"
	TypeCreditStatement = "credit_statement"
	TypeReceipt         = "receipt"
	TypePayslip         = "payslip"
)

const (
	StatusUploaded  = "uploaded"
	StatusExtracted = "extracted"
	StatusFailed    = "failed"
)

const (
	RequestPending  = "pending"
	RequestUploaded = "uploaded"
	RequestSkipped  = "skipped"
)

// BillingDateLayout is how statements print the next billing date.
const BillingDateLayout = "02/01/2006"

type Document struct {
	ID          string           `json:"id"`
	UserID      int64            `json:"userId"`
	Type        string           `json:"type"`
	FileName    string           `json:"fileName"`
	StoragePath string           `json:"storagePath"`
	MimeType    string           `json:"mimeType"`
	Status      string           `json:"status"`
	Billing     *BillingMetadata `json:"billing,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// BillingMetadata is read off a credit card statement and points at the bank
// charge that pays it.
type BillingMetadata struct {
	NextBillingDate   string  `json:"nextBillingDate,omitempty"`
	NextBillingAmount float64 `json:"nextBillingAmount,omitempty"`
	CardLast4         string  `json:"cardLast4,omitempty"`
}

// Usable reports whether the metadata carries enough to search for the bank
// charge.
func (b *BillingMetadata) Usable() bool {
	return b != nil && strings.TrimSpace(b.NextBillingDate) != "" && b.NextBillingAmount > 0
}

// BillingDate parses NextBillingDate (DD/MM/YYYY). ISO dates are accepted too.
func (b *BillingMetadata) BillingDate() (time.Time, error) {
	s := strings.TrimSpace(b.NextBillingDate)
	if t, err := time.Parse(BillingDateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid billing date %q", b.NextBillingDate)
}

// MissingDocumentRequest asks the user for a statement the ledger still
// needs, such as a card's statement for a given month.
type MissingDocumentRequest struct {
	ID           string     `json:"id"`
	UserID       int64      `json:"userId"`
	DocumentType string     `json:"documentType"`
	CardLast4    *string    `json:"cardLast4,omitempty"`
	PeriodMonth  time.Time  `json:"periodMonth"`
	Status       string     `json:"status"`
	ResolvedAt   *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ResolveCriteria picks the pending requests a reconciled credit statement
// satisfies. An empty CardLast4 matches requests for any card.
type ResolveCriteria struct {
	UserID      int64
	CardLast4   string
	PeriodMonth time.Time
	DocumentID  string
}
