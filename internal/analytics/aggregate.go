package analytics

import (
	"math"

	"github.com/Dan9191/finsight/internal/models"
	"github.com/shopspring/decimal"
)

const (
	monthsPerYear = 12
	maxRecent     = 365
)

// Split classifies values into income and expense magnitudes. labels is used
// only when it has the same length as values.
func Split(values []float64, labels []string, policy models.SignInterpretation) (income, expense []float64) {
	hasLabels := len(labels) > 0 && len(labels) == len(values)
	for i, v := range values {
		label := ""
		if hasLabels {
			label = labels[i]
		}
		switch Classify(v, label, hasLabels, policy) {
		case BucketIncome:
			income = append(income, math.Abs(v))
		case BucketExpense:
			expense = append(expense, math.Abs(v))
		}
	}
	return income, expense
}

// Aggregate produces the income and expense monthly aggregates of a series.
//
// When numeric-sign classification finds no expenses and type labels are
// available, the series is reclassified by label. If the expense bucket is
// still empty the expense aggregate stays empty.
func Aggregate(values []float64, labels []string, policy models.SignInterpretation) models.Aggregates {
	income, expense := Split(values, labels, policy)
	used := policy

	if policy == models.SignFromNumeric && len(expense) == 0 && len(labels) > 0 && len(labels) == len(values) {
		income, expense = Split(values, labels, models.SignFromTypeLabel)
		used = models.SignFromTypeLabel
	}

	return models.Aggregates{
		Income:  Monthly(income),
		Expense: Monthly(expense),
		Policy:  used,
	}
}

// Monthly reduces a bucket to at most 12 monthly averages.
//
// Buckets of 12 or fewer values are treated as already monthly and returned
// unchanged. Longer buckets keep their most recent 365 values and are cut into
// 12 contiguous chunks of ceil(n/12) or floor(n/12) values each.
func Monthly(bucket []float64) models.MonthlyAggregate {
	if len(bucket) <= monthsPerYear {
		out := make(models.MonthlyAggregate, len(bucket))
		copy(out, bucket)
		return out
	}

	if len(bucket) > maxRecent {
		bucket = bucket[len(bucket)-maxRecent:]
	}
	n := len(bucket)

	out := make(models.MonthlyAggregate, 0, monthsPerYear)
	for i := 0; i < monthsPerYear; i++ {
		start := i * n / monthsPerYear
		end := (i + 1) * n / monthsPerYear
		out = append(out, Round2(mean(bucket[start:end])))
	}
	return out
}

// Round2 rounds to 2 decimal places, half away from zero
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
