package extraction

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"kesef/internal/domain/document"
	"kesef/internal/domain/reconciliation"
	"kesef/internal/domain/transaction"
)

const (
	// ProposedConfidence is the confidence at which a candidate is proposed
	// rather than left pending review.
	ProposedConfidence = 0.8
	DefaultCurrency    = "ILS"
)

var dateLayouts = []string{
	time.DateOnly,
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"02-01-2006",
	"02/01/06",
	time.RFC3339,
}

// Normalize converts raw candidates into rows ready for insertion. Rows
// without a positive amount or a readable date are dropped and counted.
func Normalize(userID int64, doc *document.Document, raws []RawTransaction) ([]transaction.CreateTransactionParams, int) {
	source := sourceFor(doc.Type)
	docID := doc.ID

	out := make([]transaction.CreateTransactionParams, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		amount := float64(raw.Amount)
		if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
			dropped++
			continue
		}
		date, ok := parseDate(raw.Date)
		if !ok {
			dropped++
			continue
		}

		confidence := clamp(float64(raw.Confidence))
		status := transaction.StatusPending
		if confidence >= ProposedConfidence {
			status = transaction.StatusProposed
		}

		txType := transaction.TypeExpense
		if strings.EqualFold(strings.TrimSpace(raw.Type), transaction.TypeIncome) {
			txType = transaction.TypeIncome
		}

		category := transaction.NormalizeCategory(raw.Category)
		var expenseType *string
		if txType == transaction.TypeExpense {
			expenseType = normalizeExpenseType(raw.ExpenseType)
			if expenseType == nil {
				expenseType = transaction.DefaultExpenseType(category)
			}
		}

		currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
		if currency == "" {
			currency = DefaultCurrency
		}

		params := transaction.CreateTransactionParams{
			ID:                   uuid.NewString(),
			UserID:               userID,
			Amount:               amount,
			Type:                 txType,
			Vendor:               strings.TrimSpace(raw.Vendor),
			Date:                 date,
			Currency:             currency,
			Category:             category,
			DetailedCategory:     trimmed(raw.DetailedCategory),
			ExpenseType:          expenseType,
			PaymentMethod:        trimmed(raw.PaymentMethod),
			Notes:                trimmed(raw.Notes),
			Source:               source,
			Confidence:           confidence,
			Status:               status,
			DocumentID:           &docID,
			ReconciliationStatus: transaction.ReconciliationUnmatched,
		}
		params.IsSummary = raw.IsSummary || (doc.Type == document.TypeBankStatement &&
			txType == transaction.TypeExpense &&
			reconciliation.LooksLikeCardCharge(&transaction.Transaction{
				Vendor:   params.Vendor,
				Category: params.Category,
				Notes:    params.Notes,
			}, ""))
		out = append(out, params)
	}
	return out, dropped
}

func sourceFor(docType string) string {
	switch docType {
	case document.TypeCreditStatement:
		return transaction.SourceCreditImport
	case document.TypeBankStatement:
		return transaction.SourceBankImport
	default:
		return transaction.SourceOCR
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func normalizeExpenseType(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	switch v {
	case transaction.ExpenseFixed, transaction.ExpenseVariable, transaction.ExpenseSpecial:
		return &v
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
