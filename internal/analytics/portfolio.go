package analytics

import (
	"strings"

	"github.com/Dan9191/finsight/internal/models"
)

// DetectPortfolio derives a portfolio snapshot from an upload preview.
//
// A file with a "date" column and at least two numeric columns is a returns
// file: each numeric column is an asset and its return is the mean of its
// numeric sample values. A file whose rows carry "asset" and "return" keys is
// read row by row. Anything else is not a portfolio.
func DetectPortfolio(res *models.UploadResult) (*models.PortfolioSnapshot, bool) {
	if res == nil || len(res.Sample) == 0 {
		return nil, false
	}

	hasDate := false
	var assets []string
	var returns []float64
	for _, c := range res.Columns {
		if strings.EqualFold(c, "date") {
			hasDate = true
			continue
		}
		var vals []float64
		for _, row := range res.Sample {
			if f, ok := models.ToFloat(row[c]); ok {
				vals = append(vals, f)
			}
		}
		if len(vals) > 0 {
			assets = append(assets, c)
			returns = append(returns, mean(vals))
		}
	}

	if hasDate && len(assets) >= 2 {
		return &models.PortfolioSnapshot{Assets: assets, Returns: returns}, true
	}

	first := res.Sample[0]
	_, hasAsset := first["asset"]
	_, hasReturn := first["return"]
	if !hasAsset || !hasReturn {
		return nil, false
	}

	snap := &models.PortfolioSnapshot{}
	for _, row := range res.Sample {
		name, ok := row["asset"].(string)
		if !ok || name == "" {
			continue
		}
		ret, ok := models.ToFloat(row["return"])
		if !ok {
			continue
		}
		snap.Assets = append(snap.Assets, name)
		snap.Returns = append(snap.Returns, ret)
	}
	if len(snap.Assets) == 0 {
		return nil, false
	}
	return snap, true
}

// CashflowTotals sums dashboard cashflow into income and expense totals
func CashflowTotals(months []models.CashflowMonth) models.IncomeExpenseStats {
	var s models.IncomeExpenseStats
	for _, m := range months {
		s.Income += m.Income
		if m.Expenses < 0 {
			s.Expense -= m.Expenses
		} else {
			s.Expense += m.Expenses
		}
	}
	s.Income = Round2(s.Income)
	s.Expense = Round2(s.Expense)
	s.NetBalance = Round2(s.Income - s.Expense)
	return s
}
