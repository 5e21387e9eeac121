package analytics

import "github.com/Dan9191/finsight/internal/models"

// Trend labels shown next to a forecast
const (
	TrendStrongUp = "Strong Upward Trend"
	TrendModerate = "Moderate Growth"
	TrendFlat     = "Mostly Flat"
	TrendDown     = "Downward Trend"
)

// Trend compares the last prediction with the first historical value and
// gives a +-10% range around the last prediction
func Trend(history, forecast []float64) (models.TrendInsight, bool) {
	if len(history) == 0 || len(forecast) == 0 {
		return models.TrendInsight{}, false
	}
	last := forecast[len(forecast)-1]
	delta := last - history[0]

	label := TrendDown
	switch {
	case delta > 0.5:
		label = TrendStrongUp
	case delta > 0.1:
		label = TrendModerate
	case delta > -0.1:
		label = TrendFlat
	}

	return models.TrendInsight{
		Label:     label,
		Delta:     Round2(delta),
		RangeLow:  Round2(last * 0.9),
		RangeHigh: Round2(last * 1.1),
	}, true
}
