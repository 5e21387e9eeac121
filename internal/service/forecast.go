package service

import (
	"context"
	"errors"

	"github.com/Dan9191/finsight/internal/advisor"
	"github.com/Dan9191/finsight/internal/analytics"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/utils"
)

// Forecast modes
const (
	// ModeSeries forecasts the series as given
	ModeSeries = "series"
	// ModeCashflow forecasts the monthly income and expense aggregates
	ModeCashflow = "cashflow"
)

// DefaultSteps is the forecast horizon used when none is given
const DefaultSteps = 6

// ForecastInput are the forecast page controls
type ForecastInput struct {
	Steps  int    `json:"steps"`
	Values string `json:"values"` // manual input, overrides the selection
	Mode   string `json:"mode"`
	Policy string `json:"policy"`
}

// ForecastSeries is one forecast line with its history
type ForecastSeries struct {
	History  []float64            `json:"history"`
	Forecast []float64            `json:"forecast"`
	Trend    *models.TrendInsight `json:"trend,omitempty"`
}

// ForecastView is the forecast page result
type ForecastView struct {
	Mode       string            `json:"mode"`
	Series     *ForecastSeries   `json:"series,omitempty"`
	Income     *ForecastSeries   `json:"income,omitempty"`
	Expense    *ForecastSeries   `json:"expense,omitempty"`
	Aggregates models.Aggregates `json:"aggregates"`
	Policy     string            `json:"policy"`
}

// Forecast runs the forecast on manual values or the selected series. In
// cashflow mode each non-empty monthly aggregate is forecast on its own;
// an empty expense aggregate yields no expense forecast.
func (s *Service) Forecast(ctx context.Context, visitorID string, in ForecastInput) (*ForecastView, error) {
	policy, ok := models.ParseSignInterpretation(in.Policy)
	if !ok {
		return nil, invalid("policy", "unknown sign interpretation %q", in.Policy)
	}
	if in.Steps == 0 {
		in.Steps = DefaultSteps
	}
	if in.Steps < 1 {
		return nil, invalid("steps", "forecast horizon must be at least 1, got %d", in.Steps)
	}

	v, client, slot, token, err := s.begin(ctx, visitorID, ActionForecast)
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	var values []float64
	var labels []string
	if in.Values != "" {
		if values, err = utils.ParseSeries(in.Values); err != nil {
			return nil, invalid("values", "%v", err)
		}
	} else if series := v.series(); series != nil {
		values, labels = series.Values, series.Labels
	} else {
		return nil, invalid("series", "select a file and column or enter values")
	}

	mode := in.Mode
	if mode == "" {
		mode = ModeSeries
		if len(labels) == len(values) && len(labels) > 0 {
			mode = ModeCashflow
		}
	}

	view := &ForecastView{Mode: mode}
	view.Aggregates = analytics.Aggregate(values, labels, policy)
	view.Policy = view.Aggregates.Policy.String()

	switch mode {
	case ModeSeries:
		if view.Series, err = s.forecastLine(ctx, client, values, in.Steps); err != nil {
			return nil, err
		}
	case ModeCashflow:
		if len(view.Aggregates.Income) == 0 && len(view.Aggregates.Expense) == 0 {
			return nil, invalid("series", "no income or expense values to forecast")
		}
		if len(view.Aggregates.Income) > 0 {
			if view.Income, err = s.forecastLine(ctx, client, view.Aggregates.Income, in.Steps); err != nil {
				return nil, err
			}
		}
		if len(view.Aggregates.Expense) > 0 {
			if view.Expense, err = s.forecastLine(ctx, client, view.Aggregates.Expense, in.Steps); err != nil {
				return nil, err
			}
		}
	default:
		return nil, invalid("mode", "unknown forecast mode %q", mode)
	}

	if !slot.Commit(token, func() {
		v.mu.Lock()
		v.forecast = view
		delete(v.advice, ActionForecast)
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	return view, nil
}

func (s *Service) forecastLine(ctx context.Context, client *backend.Client, history []float64, steps int) (*ForecastSeries, error) {
	if err := backend.ValidateForecast(history, steps); err != nil {
		return nil, asValidation(err)
	}
	res, err := client.Forecast(ctx, history, steps)
	if err != nil {
		return nil, err
	}
	line := &ForecastSeries{History: history, Forecast: res.Forecast}
	if trend, ok := analytics.Trend(history, res.Forecast); ok {
		line.Trend = &trend
	}
	return line, nil
}

func forecastAnalysis(view *ForecastView) advisor.ForecastAnalysis {
	line := view.Series
	if line == nil {
		line = view.Income
	}
	if line == nil {
		line = view.Expense
	}
	return advisor.ForecastAnalysis{History: line.History, Forecast: line.Forecast, Trend: line.Trend}
}

// asValidation turns a client-side backend validation error into a ValidationError
func asValidation(err error) error {
	var be *backend.Error
	if errors.As(err, &be) && be.Kind == backend.KindValidation {
		return invalid(be.Field, "%s", be.Message)
	}
	return err
}
