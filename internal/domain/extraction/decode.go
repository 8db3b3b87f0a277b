package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"kesef/internal/domain/document"
)

// RawBilling is the billing block a model reads off a credit statement.
type RawBilling struct {
	NextBillingDate   string    `json:"next_billing_date"`
	NextBillingAmount flexFloat `json:"next_billing_amount"`
	CardLast4         string    `json:"card_last4"`
}

type modelOutput struct {
	Transactions []RawTransaction `json:"transactions"`
	Billing      *RawBilling      `json:"billing"`
}

// DecodeModelOutput parses either a bare JSON array of transactions or an
// object with "transactions" and an optional "billing" block.
func DecodeModelOutput(data []byte) (*Extraction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	if data[0] == '[' {
		var txns []RawTransaction
		if err := json.Unmarshal(data, &txns); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
		return &Extraction{Transactions: txns}, nil
	}

	var out modelOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction: %w", err)
	}
	return &Extraction{Transactions: out.Transactions, Billing: out.Billing.metadata()}, nil
}

func (b *RawBilling) metadata() *document.BillingMetadata {
	if b == nil {
		return nil
	}
	m := &document.BillingMetadata{
		NextBillingDate:   strings.TrimSpace(b.NextBillingDate),
		NextBillingAmount: float64(b.NextBillingAmount),
		CardLast4:         lastDigits(b.CardLast4, 4),
	}
	if m.NextBillingAmount < 0 {
		m.NextBillingAmount = 0
	}
	if m.NextBillingDate == "" && m.NextBillingAmount == 0 && m.CardLast4 == "" {
		return nil
	}
	return m
}

// lastDigits keeps the trailing n digits of s, or "" when s has fewer.
func lastDigits(s string, n int) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if len(digits) < n {
		return ""
	}
	return digits[len(digits)-n:]
}
