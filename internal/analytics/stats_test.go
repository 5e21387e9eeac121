package analytics

import (
	"math"
	"testing"

	"github.com/Dan9191/finsight/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogReturnStats_Increasing(t *testing.T) {
	s := LogReturnStats([]float64{100, 101, 103, 106, 110, 115}, DefaultAssumption)
	assert.False(t, s.Defaulted)
	assert.Equal(t, 5, s.Pairs)
	assert.Greater(t, s.Mean, 0.0)
	assert.Greater(t, s.Std, 0.0)
}

func TestLogReturnStats_Decreasing(t *testing.T) {
	s := LogReturnStats([]float64{120, 110, 100, 95, 80}, DefaultAssumption)
	assert.False(t, s.Defaulted)
	assert.Less(t, s.Mean, 0.0)
}

func TestLogReturnStats_KnownValues(t *testing.T) {
	prices := []float64{100, 110, 121}
	s := LogReturnStats(prices, DefaultAssumption)
	require.False(t, s.Defaulted)
	assert.InDelta(t, math.Log(1.1)*12, s.Mean, 1e-12)
	assert.InDelta(t, 0, s.Std, 1e-12)
}

func TestLogReturnStats_Fallback(t *testing.T) {
	cases := map[string][]float64{
		"empty":         nil,
		"single":        {100},
		"one pair":      {100, 105},
		"non-positive":  {100, 0, -5, 10},
		"one valid gap": {0, 10, 11, -1},
	}
	for name, prices := range cases {
		t.Run(name, func(t *testing.T) {
			s := LogReturnStats(prices, DefaultAssumption)
			assert.True(t, s.Defaulted)
			assert.Equal(t, 0.08, s.Mean)
			assert.Equal(t, 0.15, s.Std)
		})
	}
}

func TestLogReturnStats_CustomFallback(t *testing.T) {
	s := LogReturnStats(nil, Assumption{Mean: 0.05, Std: 0.1})
	assert.True(t, s.Defaulted)
	assert.Equal(t, Assumption{Mean: 0.05, Std: 0.1}, s.Assumption())
}

func TestTrend(t *testing.T) {
	tr, ok := Trend([]float64{10, 12}, []float64{11, 20})
	require.True(t, ok)
	assert.Equal(t, TrendStrongUp, tr.Label)
	assert.Equal(t, 18.0, tr.RangeLow)
	assert.Equal(t, 22.0, tr.RangeHigh)

	tr, _ = Trend([]float64{10}, []float64{10.05})
	assert.Equal(t, TrendFlat, tr.Label)

	tr, _ = Trend([]float64{10}, []float64{10.3})
	assert.Equal(t, TrendModerate, tr.Label)

	tr, _ = Trend([]float64{10}, []float64{8})
	assert.Equal(t, TrendDown, tr.Label)

	_, ok = Trend(nil, []float64{1})
	assert.False(t, ok)
}

func TestDetectPortfolio_ReturnsFile(t *testing.T) {
	res := &models.UploadResult{
		Columns: []string{"Date", "US_Stocks", "Bonds"},
		Sample: []map[string]any{
			{"Date": "2024-01", "US_Stocks": 0.02, "Bonds": "0.01"},
			{"Date": "2024-02", "US_Stocks": 0.04, "Bonds": 0.03},
		},
	}
	snap, ok := DetectPortfolio(res)
	require.True(t, ok)
	assert.Equal(t, []string{"US_Stocks", "Bonds"}, snap.Assets)
	assert.InDelta(t, 0.03, snap.Returns[0], 1e-12)
	assert.InDelta(t, 0.02, snap.Returns[1], 1e-12)
}

func TestDetectPortfolio_AssetReturnRows(t *testing.T) {
	res := &models.UploadResult{
		Columns: []string{"asset", "return"},
		Sample: []map[string]any{
			{"asset": "Gold", "return": 0.05},
			{"asset": "Cash", "return": 0.01},
		},
	}
	snap, ok := DetectPortfolio(res)
	require.True(t, ok)
	assert.Equal(t, []string{"Gold", "Cash"}, snap.Assets)
	assert.Equal(t, []float64{0.05, 0.01}, snap.Returns)
}

func TestDetectPortfolio_TransactionFile(t *testing.T) {
	res := &models.UploadResult{
		Columns: []string{"date", "amount", "type"},
		Sample: []map[string]any{
			{"date": "2024-01-01", "amount": 10, "type": "income"},
			{"date": "2024-01-02", "amount": -4, "type": "expense"},
		},
	}
	_, ok := DetectPortfolio(res)
	assert.False(t, ok)
}

func TestCashflowTotals(t *testing.T) {
	s := CashflowTotals([]models.CashflowMonth{
		{Month: "2024-01", Income: 1000, Expenses: -400},
		{Month: "2024-02", Income: 1200.5, Expenses: 300},
	})
	assert.Equal(t, 2200.5, s.Income)
	assert.Equal(t, 700.0, s.Expense)
	assert.Equal(t, 1500.5, s.NetBalance)
}
