package analytics

import (
	"strings"

	"github.com/Dan9191/finsight/internal/models"
)

// Bucket is the side of the ledger a value lands in
type Bucket int

const (
	BucketNeither Bucket = iota
	BucketIncome
	BucketExpense
)

var (
	expenseWords = []string{"expense", "debit", "withdraw"}
	incomeWords  = []string{"income", "credit", "deposit", "salary"}
)

// ClassifyLabel matches a type label against the known vocabulary.
// Expense words are checked first so "debit card credit" stays an expense.
func ClassifyLabel(label string) Bucket {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return BucketNeither
	}
	for _, w := range expenseWords {
		if strings.Contains(l, w) {
			return BucketExpense
		}
	}
	for _, w := range incomeWords {
		if strings.Contains(l, w) {
			return BucketIncome
		}
	}
	return BucketNeither
}

// ClassifySign classifies by numeric sign; zero is neither
func ClassifySign(v float64) Bucket {
	switch {
	case v > 0:
		return BucketIncome
	case v < 0:
		return BucketExpense
	}
	return BucketNeither
}

// Classify places one value under the given policy. label is ignored unless
// hasLabel is set.
func Classify(v float64, label string, hasLabel bool, policy models.SignInterpretation) Bucket {
	switch policy {
	case models.SignForceIncome:
		if v == 0 {
			return BucketNeither
		}
		return BucketIncome
	case models.SignForceExpense:
		if v == 0 {
			return BucketNeither
		}
		return BucketExpense
	case models.SignFromTypeLabel:
		if hasLabel {
			if b := ClassifyLabel(label); b != BucketNeither {
				return b
			}
		}
	}
	return ClassifySign(v)
}
