package reconciliation

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"kesef/internal/domain/transaction"
)

// cardMarkers are brand and issuer strings that appear on the bank line of a
// monthly card charge. They are matched as substrings of folded text.
var cardMarkers = []string{
	"ויזה",
	"visa",
	"מסטרקארד",
	"מאסטרקארד",
	"mastercard",
	"ישראכרט",
	"isracard",
	"אמריקן אקספרס",
	"american express",
	"amex",
	"דיינרס",
	"diners",
	"לאומי קארד",
	"leumi card",
	"כ.א.ל",
	"מקס איט",
	"max it",
	"כרטיס אשראי",
	"כרטיסי אשראי",
	"credit card",
}

// cardTokens are short markers that only count as whole words.
var cardTokens = map[string]struct{}{
	"cal": {},
	"כאל": {},
	"max": {},
	"מקס": {},
}

// LooksLikeCardCharge reports whether a bank transaction reads like the
// aggregated charge of a credit card. When cardLast4 is set the vendor must
// also carry those digits.
func LooksLikeCardCharge(t *transaction.Transaction, cardLast4 string) bool {
	if t == nil {
		return false
	}
	fold := cases.Fold()
	vendor := fold.String(t.Vendor)

	cardLast4 = strings.TrimSpace(cardLast4)
	if cardLast4 != "" && !strings.Contains(vendor, cardLast4) {
		return false
	}

	if t.Category != nil {
		if key := transaction.NormalizeCategory(t.Category); key != nil && *key == "credit_card" {
			return true
		}
	}

	texts := []string{vendor}
	if t.Category != nil {
		texts = append(texts, fold.String(*t.Category))
	}
	if t.Notes != nil {
		texts = append(texts, fold.String(*t.Notes))
	}

	for _, text := range texts {
		if hasCardMarker(text) {
			return true
		}
	}
	return false
}

func hasCardMarker(text string) bool {
	for _, m := range cardMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := cardTokens[w]; ok {
			return true
		}
	}
	return false
}
