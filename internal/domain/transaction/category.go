package transaction

import (
	"sort"
	"strings"
)

// Category is a canonical ledger category. Name is the Hebrew label shown to
// users; ExpenseType is the default classification for spend in it.
type Category struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ExpenseType string `json:"expenseType"`
}

// Categories maps canonical keys to their definition.
var Categories = map[string]Category{
	"food":          {Key: "food", Name: "מזון וצריכה", ExpenseType: ExpenseVariable},
	"restaurants":   {Key: "restaurants", Name: "מסעדות ובתי קפה", ExpenseType: ExpenseVariable},
	"housing":       {Key: "housing", Name: "דיור", ExpenseType: ExpenseFixed},
	"utilities":     {Key: "utilities", Name: "חשבונות", ExpenseType: ExpenseFixed},
	"transport":     {Key: "transport", Name: "תחבורה", ExpenseType: ExpenseVariable},
	"fuel":          {Key: "fuel", Name: "דלק", ExpenseType: ExpenseVariable},
	"health":        {Key: "health", Name: "בריאות", ExpenseType: ExpenseVariable},
	"insurance":     {Key: "insurance", Name: "ביטוחים", ExpenseType: ExpenseFixed},
	"communication": {Key: "communication", Name: "תקשורת", ExpenseType: ExpenseFixed},
	"subscriptions": {Key: "subscriptions", Name: "מנויים", ExpenseType: ExpenseFixed},
	"education":     {Key: "education", Name: "חינוך", ExpenseType: ExpenseFixed},
	"shopping":      {Key: "shopping", Name: "קניות", ExpenseType: ExpenseVariable},
	"entertainment": {Key: "entertainment", Name: "פנאי ובילוי", ExpenseType: ExpenseVariable},
	"travel":        {Key: "travel", Name: "חופשות", ExpenseType: ExpenseSpecial},
	"gifts":         {Key: "gifts", Name: "מתנות ואירועים", ExpenseType: ExpenseSpecial},
	"credit_card":   {Key: "credit_card", Name: "כרטיס אשראי", ExpenseType: ExpenseVariable},
	"salary":        {Key: "salary", Name: "משכורת", ExpenseType: ""},
	"other":         {Key: "other", Name: "אחר", ExpenseType: ExpenseVariable},
}

// categoryAliases maps the labels extraction tends to produce, in either
// language, to canonical keys.
var categoryAliases = map[string]string{
	"groceries":        "food",
	"supermarket":      "food",
	"סופרמרקט":         "food",
	"מזון":             "food",
	"restaurant":       "restaurants",
	"cafe":             "restaurants",
	"מסעדות":           "restaurants",
	"rent":             "housing",
	"mortgage":         "housing",
	"שכר דירה":         "housing",
	"משכנתא":           "housing",
	"electricity":      "utilities",
	"water":            "utilities",
	"arnona":           "utilities",
	"ארנונה":           "utilities",
	"חשמל":             "utilities",
	"מים":              "utilities",
	"public transport": "transport",
	"taxi":             "transport",
	"gas station":      "fuel",
	"תחנת דלק":         "fuel",
	"pharmacy":         "health",
	"בית מרקחת":        "health",
	"phone":            "communication",
	"internet":         "communication",
	"סלולר":            "communication",
	"streaming":        "subscriptions",
	"clothing":         "shopping",
	"ביגוד":            "shopping",
	"vacation":         "travel",
	"flights":          "travel",
	"טיסות":            "travel",
	"credit card":      "credit_card",
	"payroll":          "salary",
	"שכר":              "salary",
}

func init() {
	for key, c := range Categories {
		categoryAliases[key] = key
		categoryAliases[strings.ToLower(c.Name)] = key
	}
}

// NormalizeCategory maps a free-form category label to its canonical key.
// Unknown labels are kept as given so no information is lost; empty input
// yields nil.
func NormalizeCategory(category *string) *string {
	if category == nil {
		return nil
	}
	label := strings.ToLower(strings.TrimSpace(*category))
	if label == "" {
		return nil
	}
	if key, ok := categoryAliases[label]; ok {
		return &key
	}
	trimmed := strings.TrimSpace(*category)
	return &trimmed
}

// DefaultExpenseType returns the expense type implied by a canonical
// category, or nil when the category carries none.
func DefaultExpenseType(category *string) *string {
	if category == nil {
		return nil
	}
	c, ok := Categories[*category]
	if !ok || c.ExpenseType == "" {
		return nil
	}
	t := c.ExpenseType
	return &t
}

// SortedCategories returns the canonical categories ordered by key.
func SortedCategories() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
