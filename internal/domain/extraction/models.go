package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"kesef/internal/domain/document"
)

// ErrEmptyDocument is returned when extraction yields no usable transaction.
var ErrEmptyDocument = errors.New("no transactions extracted from document")

// RawTransaction is one candidate as returned by the extraction model. Any
// field may be missing or malformed.
type RawTransaction struct {
	Amount           flexFloat `json:"amount"`
	Vendor           string    `json:"vendor"`
	Date             string    `json:"date"`
	Type             string    `json:"type"`
	Currency         string    `json:"currency"`
	Category         *string   `json:"category"`
	DetailedCategory *string   `json:"detailed_category"`
	ExpenseType      *string   `json:"expense_type"`
	PaymentMethod    *string   `json:"payment_method"`
	Notes            *string   `json:"notes"`
	Confidence       flexFloat `json:"confidence"`
	IsSummary        bool      `json:"is_summary"`
}

// Extraction is everything read from one document.
type Extraction struct {
	Transactions []RawTransaction          `json:"transactions"`
	Billing      *document.BillingMetadata `json:"billing,omitempty"`
}

// Extractor turns document content into raw transaction candidates.
type Extractor interface {
	Extract(ctx context.Context, doc *document.Document, content []byte) (*Extraction, error)
}

// DocumentLoader fetches the bytes of an uploaded document.
type DocumentLoader interface {
	Load(ctx context.Context, doc *document.Document) ([]byte, error)
}

// flexFloat accepts JSON numbers, numeric strings with currency symbols or
// thousands separators, and null. Anything unparseable reads as zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(parseLooseNumber(s))
		return nil
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

func parseLooseNumber(s string) float64 {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
