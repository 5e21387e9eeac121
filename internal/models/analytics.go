package models

// CategoryTotal represents spending for one category
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// CashflowMonth represents monthly income and expense statistics
type CashflowMonth struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// Score represents the financial confidence score
type Score struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// NetWorth represents net worth over time
type NetWorth struct {
	Months         []string  `json:"months"`
	NetWorth       []float64 `json:"net_worth"`
	PortfolioValue []float64 `json:"portfolio_value"`
	NetSavings     []float64 `json:"net_savings"`
}

// IncomeExpenseStats represents income and expense totals
type IncomeExpenseStats struct {
	Income     float64 `json:"income"`
	Expense    float64 `json:"expense"`
	NetBalance float64 `json:"net_balance"`
}

// TrendInsight summarizes a forecast for display
type TrendInsight struct {
	Label     string  `json:"label"`
	Delta     float64 `json:"delta"`
	RangeLow  float64 `json:"range_low"`
	RangeHigh float64 `json:"range_high"`
}
