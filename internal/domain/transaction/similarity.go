package transaction

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

const (
	amountWeight   = 0.4
	dateWeight     = 0.3
	vendorWeight   = 0.2
	categoryWeight = 0.1

	// overlapFloor is the minimum character-overlap ratio that counts as a
	// vendor match when neither name contains the other.
	overlapFloor = 0.6
)

type Breakdown struct {
	Amount   float64 `json:"amount"`
	Date     float64 `json:"date"`
	Vendor   float64 `json:"vendor"`
	Category float64 `json:"category"`
}

type MatchScore struct {
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
	Reasons   []string  `json:"reasons"`
}

// Score rates how likely candidate and existing describe the same spend.
// It never fails: missing data contributes zero.
func Score(candidate, existing *Transaction) MatchScore {
	result := MatchScore{Reasons: []string{}}
	if candidate == nil || existing == nil {
		return result
	}

	if s, reason := amountScore(candidate.Amount, existing.Amount); s > 0 {
		result.Breakdown.Amount = s
		if reason != "" {
			result.Reasons = append(result.Reasons, reason)
		}
	}

	if s, reason := dateScore(candidate.Date, existing.Date); s > 0 {
		result.Breakdown.Date = s
		if reason != "" {
			result.Reasons = append(result.Reasons, reason)
		}
	}

	if s, reason := vendorScore(candidate.Vendor, existing.Vendor, existing.Notes); s > 0 {
		result.Breakdown.Vendor = s
		result.Reasons = append(result.Reasons, reason)
	}

	if candidate.Category != nil && existing.Category != nil && *candidate.Category == *existing.Category {
		result.Breakdown.Category = 1
		result.Reasons = append(result.Reasons, "קטגוריה זהה")
	}

	total := result.Breakdown.Amount*amountWeight +
		result.Breakdown.Date*dateWeight +
		result.Breakdown.Vendor*vendorWeight +
		result.Breakdown.Category*categoryWeight
	result.Total = round2(total)

	return result
}

// amountScore compares relative to the existing amount. A non-positive
// reference amount cannot be compared and scores zero.
func amountScore(a, b float64) (float64, string) {
	if b <= 0 || math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, ""
	}
	// decimal keeps tier edges such as 1.05 vs 1.00 at exactly 5%.
	da, db := decimal.NewFromFloat(a), decimal.NewFromFloat(b)
	diff := da.Sub(db).Abs().Mul(decimal.NewFromInt(100)).Div(db)
	pct := diff.InexactFloat64()

	switch {
	case diff.LessThanOrEqual(decimal.NewFromInt(2)):
		if da.Equal(db) {
			return 1, "סכום זהה"
		}
		return 1, fmt.Sprintf("סכום כמעט זהה (%.1f%%)", pct)
	case diff.LessThanOrEqual(decimal.NewFromInt(5)):
		return 0.8, fmt.Sprintf("סכום דומה (%.1f%%)", pct)
	case diff.LessThanOrEqual(decimal.NewFromInt(10)):
		return 0.5, fmt.Sprintf("סכום קרוב (%.1f%%)", pct)
	default:
		return 0.2, ""
	}
}

func dateScore(a, b time.Time) (float64, string) {
	if a.IsZero() || b.IsZero() {
		return 0, ""
	}
	days := DaysBetween(a, b)

	switch {
	case days == 0:
		return 1, "אותו יום"
	case days <= 1:
		return 1, "הפרש יום אחד"
	case days <= 3:
		return 0.8, fmt.Sprintf("הפרש %d ימים", days)
	case days <= 7:
		return 0.5, fmt.Sprintf("הפרש %d ימים", days)
	default:
		return 0.2, ""
	}
}

func vendorScore(candidate, existing string, existingNotes *string) (float64, string) {
	a := normalizeText(candidate)
	b := normalizeText(existing)
	if a == "" {
		return 0, ""
	}

	if b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 1, "שם ספק תואם"
	}

	if existingNotes != nil && strings.Contains(normalizeText(*existingNotes), a) {
		return 0.7, "ספק מופיע בהערות"
	}

	if b == "" {
		return 0, ""
	}
	if ratio := overlapRatio(a, b); ratio > overlapFloor {
		return round2(ratio), "שם ספק דומה"
	}
	return 0, ""
}

// overlapRatio counts the characters of the shorter string that appear
// anywhere in the longer one, divided by the longer string's length.
func overlapRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	shorter, longer := ra, rb
	if len(ra) > len(rb) {
		shorter, longer = rb, ra
	}
	if len(longer) == 0 {
		return 0
	}

	present := make(map[rune]struct{}, len(longer))
	for _, r := range longer {
		present[r] = struct{}{}
	}

	hits := 0
	for _, r := range shorter {
		if _, ok := present[r]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(longer))
}

// normalizeText folds case across scripts and trims surrounding space.
func normalizeText(s string) string {
	return strings.TrimSpace(cases.Fold().String(s))
}

// DaysBetween returns the absolute number of calendar days between a and b,
// ignoring time of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := da.Sub(db)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
