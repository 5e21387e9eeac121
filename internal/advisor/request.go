// Package advisor asks an LLM-backed service to explain already computed
// results. Advice is always optional: callers attach it to a result they
// have already shown and degrade to a notice when it fails.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/finsight/internal/models"
)

// Op tags the kind of analysis requested
type Op string

const (
	OpSimulation   Op = "analyze-simulation"
	OpForecast     Op = "analyze-forecast"
	OpOptimization Op = "analyze-optimization"
	OpDashboard    Op = "summarize-dashboard"
	OpQuestion     Op = "ask"
)

// Request is one of SimulationAnalysis, ForecastAnalysis,
// OptimizationAnalysis, DashboardSummary or Question
type Request interface {
	Op() Op
	// payload is the structured body sent to the advisory service
	payload() any
	// task is the instruction given to a model along with the payload
	task() string
}

// SimulationAnalysis explains Monte Carlo outcomes
type SimulationAnalysis struct {
	Params         models.SimulationRequest `json:"params"`
	Worst          float64                  `json:"worst_final"`
	Median         float64                  `json:"median_final"`
	Best           float64                  `json:"best_final"`
	SuccessPercent *int                     `json:"success_percent,omitempty"`
}

// NewSimulationAnalysis summarizes a result by its final balances
func NewSimulationAnalysis(params models.SimulationRequest, res *models.SimulationResult) SimulationAnalysis {
	a := SimulationAnalysis{Params: params, Worst: last(res.Worst), Median: last(res.Median), Best: last(res.Best)}
	if pct, ok := res.SuccessPercent(); ok {
		a.SuccessPercent = &pct
	}
	return a
}

func (SimulationAnalysis) Op() Op         { return OpSimulation }
func (r SimulationAnalysis) payload() any { return r }
func (SimulationAnalysis) task() string {
	return "Explain these Monte Carlo investment outcomes and the risk between the worst and best case."
}

// ForecastAnalysis explains a forecast against its history
type ForecastAnalysis struct {
	History  []float64            `json:"history"`
	Forecast []float64            `json:"forecast"`
	Trend    *models.TrendInsight `json:"trend,omitempty"`
}

func (ForecastAnalysis) Op() Op         { return OpForecast }
func (r ForecastAnalysis) payload() any { return r }
func (ForecastAnalysis) task() string {
	return "Explain this forecast: direction of the trend, the expected range and what to watch."
}

// OptimizationAnalysis explains a suggested allocation
type OptimizationAnalysis struct {
	Goal        string              `json:"goal"`
	Allocations []models.Allocation `json:"allocations"`
}

func (OptimizationAnalysis) Op() Op         { return OpOptimization }
func (r OptimizationAnalysis) payload() any { return r }
func (OptimizationAnalysis) task() string {
	return "Explain this portfolio allocation for the stated goal, including concentration risk."
}

// DashboardSummary summarizes the dashboard charts
type DashboardSummary struct {
	Categories []models.CategoryTotal    `json:"categories"`
	Cashflow   []models.CashflowMonth    `json:"cashflow"`
	Totals     models.IncomeExpenseStats `json:"totals"`
	Score      *models.Score             `json:"score,omitempty"`
}

func (DashboardSummary) Op() Op         { return OpDashboard }
func (r DashboardSummary) payload() any { return r }
func (DashboardSummary) task() string {
	return "Summarize this spending dashboard in a few short points with one concrete suggestion."
}

// Question is a free-form question with optional context
type Question struct {
	Text    string         `json:"question"`
	Context map[string]any `json:"context,omitempty"`
}

func (Question) Op() Op         { return OpQuestion }
func (r Question) payload() any { return r }
func (Question) task() string {
	return "Answer the user's question about their finances."
}

// ErrEmptyQuestion is returned before any call when a question has no text
var ErrEmptyQuestion = errors.New("advisor: question is empty")

// Advice is the rendered answer of an advisory call
type Advice struct {
	Op       Op     `json:"op"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Source   string `json:"source"`
}

// Advisor produces advice for a request
type Advisor interface {
	Advise(ctx context.Context, req Request) (*Advice, error)
}

func validate(req Request) error {
	switch r := req.(type) {
	case SimulationAnalysis, ForecastAnalysis, OptimizationAnalysis, DashboardSummary:
		return nil
	case Question:
		if r.Text == "" {
			return ErrEmptyQuestion
		}
		return nil
	case nil:
		return fmt.Errorf("advisor: nil request")
	default:
		return fmt.Errorf("advisor: unsupported request %T", req)
	}
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
