package models

// MonthlyAggregate is an ordered sequence of at most 12 monthly averages
type MonthlyAggregate []float64

// SignInterpretation selects how raw values split into income and expense
type SignInterpretation int

const (
	// SignFromTypeLabel classifies by type label, falling back to numeric sign
	SignFromTypeLabel SignInterpretation = iota
	// SignFromNumeric classifies positive as income and negative as expense
	SignFromNumeric
	// SignForceIncome treats every value as income
	SignForceIncome
	// SignForceExpense treats every value as expense
	SignForceExpense
)

func (s SignInterpretation) String() string {
	switch s {
	case SignFromTypeLabel:
		return "type-label"
	case SignFromNumeric:
		return "numeric-sign"
	case SignForceIncome:
		return "force-income"
	case SignForceExpense:
		return "force-expense"
	}
	return "unknown"
}

// ParseSignInterpretation maps a UI value to a policy; empty means type-label
func ParseSignInterpretation(s string) (SignInterpretation, bool) {
	switch s {
	case "", "type-label":
		return SignFromTypeLabel, true
	case "numeric-sign":
		return SignFromNumeric, true
	case "force-income":
		return SignForceIncome, true
	case "force-expense":
		return SignForceExpense, true
	}
	return SignFromTypeLabel, false
}

// Aggregates holds the income and expense monthly aggregates of one series
type Aggregates struct {
	Income  MonthlyAggregate   `json:"income"`
	Expense MonthlyAggregate   `json:"expense"`
	Policy  SignInterpretation `json:"-"`
}
