package transaction

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func txn(id string, amount float64, date, vendor string) *Transaction {
	return &Transaction{
		ID:     id,
		UserID: 1,
		Amount: amount,
		Type:   TypeExpense,
		Vendor: vendor,
		Date:   day(date),
		Status: StatusProposed,
	}
}

func TestScore_IdenticalTransactions(t *testing.T) {
	a := txn("a", 100, "2024-03-10", "Shufersal")
	a.Category = strPtr("food")
	b := txn("b", 100, "2024-03-10", "shufersal")
	b.Category = strPtr("food")

	s := Score(a, b)
	if s.Total != 1 {
		t.Errorf("Total = %v, want 1", s.Total)
	}
	want := Breakdown{Amount: 1, Date: 1, Vendor: 1, Category: 1}
	if s.Breakdown != want {
		t.Errorf("Breakdown = %+v, want %+v", s.Breakdown, want)
	}
	if len(s.Reasons) != 4 {
		t.Errorf("Reasons = %v, want 4 entries", s.Reasons)
	}
	if s.Reasons[0] != "סכום זהה" {
		t.Errorf("Reasons[0] = %q, want סכום זהה", s.Reasons[0])
	}
}

func TestScore_AmountTiers(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{100, 1},
		{101.5, 1},
		{98.5, 1},
		{104, 0.8},
		{96, 0.8},
		{108, 0.5},
		{92, 0.5},
		{115, 0.2},
		{50, 0.2},
	}

	existing := txn("e", 100, "2024-01-01", "")
	for _, tt := range tests {
		c := txn("c", tt.amount, "2024-01-01", "")
		if got := Score(c, existing).Breakdown.Amount; got != tt.want {
			t.Errorf("amount %v: sub-score = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestScore_AmountTierEdges(t *testing.T) {
	tests := []struct {
		amount float64
		want   float64
	}{
		{1.02, 1},
		{0.98, 1},
		{1.05, 0.8},
		{0.95, 0.8},
		{1.10, 0.5},
		{0.90, 0.5},
		{1.11, 0.2},
	}

	existing := txn("e", 1.00, "2024-01-01", "")
	for _, tt := range tests {
		c := txn("c", tt.amount, "2024-01-01", "")
		if got := Score(c, existing).Breakdown.Amount; got != tt.want {
			t.Errorf("amount %v vs 1.00: sub-score = %v, want %v", tt.amount, got, tt.want)
		}
	}
}

func TestScore_AmountMonotonic(t *testing.T) {
	existing := txn("e", 200, "2024-01-01", "")
	prev := 1.0
	for delta := 0.0; delta <= 60; delta += 0.5 {
		c := txn("c", 200+delta, "2024-01-01", "")
		got := Score(c, existing).Breakdown.Amount
		if got > prev {
			t.Fatalf("delta %v: sub-score %v rose above %v", delta, got, prev)
		}
		prev = got
	}
}

func TestScore_ZeroReferenceAmount(t *testing.T) {
	s := Score(txn("c", 10, "2024-01-01", ""), txn("e", 0, "2024-01-01", ""))
	if s.Breakdown.Amount != 0 {
		t.Errorf("amount sub-score = %v, want 0", s.Breakdown.Amount)
	}
}

func TestScore_DateTiers(t *testing.T) {
	tests := []struct {
		date string
		want float64
	}{
		{"2024-03-10", 1},
		{"2024-03-11", 1},
		{"2024-03-09", 1},
		{"2024-03-13", 0.8},
		{"2024-03-17", 0.5},
		{"2024-03-03", 0.5},
		{"2024-03-18", 0.2},
	}

	existing := txn("e", 100, "2024-03-10", "")
	for _, tt := range tests {
		c := txn("c", 100, tt.date, "")
		if got := Score(c, existing).Breakdown.Date; got != tt.want {
			t.Errorf("date %s: sub-score = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestScore_DateIgnoresTimeOfDay(t *testing.T) {
	c := txn("c", 100, "2024-03-10", "")
	c.Date = c.Date.Add(23 * time.Hour)
	e := txn("e", 100, "2024-03-12", "")

	if got := Score(c, e).Breakdown.Date; got != 0.8 {
		t.Errorf("sub-score = %v, want 0.8 for two calendar days", got)
	}
}

func TestScore_Vendor(t *testing.T) {
	notes := "תשלום SUPER PHARM סניף מרכז"

	tests := []struct {
		name      string
		candidate string
		existing  string
		notes     *string
		want      float64
	}{
		{"contained in existing", "SUPER PHARM", "super pharm tel aviv", nil, 1},
		{"existing contained in candidate", "paz yellow ramat gan", "  PAZ  ", nil, 1},
		{"found in notes", "super pharm", "כרטיס אשראי", &notes, 0.7},
		{"cross script", "SUPER PHARM", "סופר פארם", nil, 0},
		{"high overlap", "abcd", "abce", nil, 0.75},
		{"low overlap", "abcd", "wxyz", nil, 0},
		{"empty candidate", "", "anything", nil, 0},
		{"empty existing", "shop", "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := txn("c", 100, "2024-01-01", tt.candidate)
			e := txn("e", 100, "2024-01-01", tt.existing)
			e.Notes = tt.notes
			if got := Score(c, e).Breakdown.Vendor; got != tt.want {
				t.Errorf("vendor sub-score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_CrossScriptScenario(t *testing.T) {
	candidate := txn("new", 352, "2024-03-10", "SUPER PHARM")
	existing := txn("old", 350, "2024-03-11", "סופר פארם")
	existing.Category = strPtr("food")

	s := Score(candidate, existing)
	if s.Breakdown.Amount != 1 || s.Breakdown.Date != 1 {
		t.Errorf("Breakdown = %+v, want amount and date 1", s.Breakdown)
	}
	if s.Breakdown.Vendor != 0 || s.Breakdown.Category != 0 {
		t.Errorf("Breakdown = %+v, want vendor and category 0", s.Breakdown)
	}
	if s.Total != 0.7 {
		t.Errorf("Total = %v, want 0.7", s.Total)
	}
}

func TestScore_WeightedTotalRounded(t *testing.T) {
	c := txn("c", 104, "2024-01-01", "abcd")
	e := txn("e", 100, "2024-01-04", "abce")

	// 0.8*0.4 + 0.8*0.3 + 0.75*0.2
	if got := Score(c, e).Total; got != 0.71 {
		t.Errorf("Total = %v, want 0.71", got)
	}
}

func TestScore_Symmetry(t *testing.T) {
	a := txn("a", 300, "2024-05-01", "Rami Levy")
	a.Category = strPtr("food")
	b := txn("b", 310, "2024-05-04", "rami levy hashikma")
	b.Category = strPtr("food")

	ab, ba := Score(a, b), Score(b, a)
	if ab.Breakdown != ba.Breakdown {
		t.Errorf("Score(a,b) = %+v, Score(b,a) = %+v", ab.Breakdown, ba.Breakdown)
	}
	if ab.Total != ba.Total {
		t.Errorf("totals differ: %v vs %v", ab.Total, ba.Total)
	}
}

func TestScore_NilInputs(t *testing.T) {
	s := Score(nil, txn("e", 1, "2024-01-01", "x"))
	if s.Total != 0 || len(s.Reasons) != 0 {
		t.Errorf("Score(nil, e) = %+v, want zero", s)
	}
	s = Score(txn("c", 1, "2024-01-01", "x"), nil)
	if s.Total != 0 {
		t.Errorf("Score(c, nil) = %+v, want zero", s)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(day("2024-02-28"), day("2024-03-01")); got != 2 {
		t.Errorf("DaysBetween = %d, want 2 across leap day", got)
	}
	if got := DaysBetween(day("2024-03-01"), day("2024-02-28")); got != 2 {
		t.Errorf("DaysBetween reversed = %d, want 2", got)
	}
}
