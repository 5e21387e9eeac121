package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultPaths is the number of simulated paths requested when none is given
const DefaultPaths = 1000

// ForecastRequest is the forecast payload
type ForecastRequest struct {
	Values []float64 `json:"values"`
	Steps  int       `json:"steps"`
}

// ForecastResult holds the predicted values, one per requested step
type ForecastResult struct {
	Forecast []float64 `json:"forecast"`
}

// SimulationRequest is the Monte Carlo payload
type SimulationRequest struct {
	Initial    float64  `json:"initial"`
	Monthly    float64  `json:"monthly"`
	Mean       float64  `json:"mean"`
	Std        float64  `json:"std"`
	Years      int      `json:"years"`
	Paths      int      `json:"paths"`
	GoalTarget *float64 `json:"goal_target,omitempty"`
}

// Points is the trajectory length the backend produces for the request
func (r SimulationRequest) Points() int {
	return r.Years*12 + 1
}

// SimulationResult holds the percentile trajectories and goal probability
type SimulationResult struct {
	Worst           []float64 `json:"worst"`
	Median          []float64 `json:"median"`
	Best            []float64 `json:"best"`
	GoalProbability *float64  `json:"goal_probability"`
}

// SuccessPercent returns the goal probability as a rounded percentage in [0,100]
func (r SimulationResult) SuccessPercent() (int, bool) {
	if r.GoalProbability == nil {
		return 0, false
	}
	p := math.Max(0, math.Min(1, *r.GoalProbability))
	return int(decimal.NewFromFloat(p * 100).Round(0).IntPart()), true
}

// Optimization goals accepted by the backend
const (
	GoalBalanced = "balanced"
	GoalGrowth   = "growth"
	GoalStable   = "stable"
)

// OptimizationRequest is the portfolio optimizer payload
type OptimizationRequest struct {
	Assets  []string  `json:"assets"`
	Returns []float64 `json:"returns"`
	Goal    string    `json:"goal"`
}

// OptimizationResult holds one weight per asset
type OptimizationResult struct {
	Weights []float64 `json:"weights"`
}

// Allocation pairs an asset with its weight for display
type Allocation struct {
	Asset   string  `json:"asset"`
	Weight  float64 `json:"weight"`
	Percent float64 `json:"percent"`
}

// SavePortfolioRequest is the save-portfolio payload
type SavePortfolioRequest struct {
	Name    string    `json:"name"`
	Assets  []string  `json:"assets"`
	Returns []float64 `json:"returns"`
}

// PortfolioSnapshot is the last-derived portfolio of a visitor
type PortfolioSnapshot struct {
	Assets  []string  `json:"assets"`
	Returns []float64 `json:"returns"`
}

// Scenario is a simulation preset
type Scenario struct {
	Label   string  `json:"label"`
	Years   int     `json:"years"`
	Monthly float64 `json:"monthly"`
	Initial float64 `json:"initial"`
}

// Scenarios are the simulation presets offered on the simulation page
var Scenarios = []Scenario{
	{Label: "Buy Home", Years: 5, Monthly: 3000, Initial: 20000},
	{Label: "Education", Years: 8, Monthly: 2500, Initial: 10000},
	{Label: "Retire Early", Years: 20, Monthly: 7000, Initial: 50000},
	{Label: "Debt-Free", Years: 3, Monthly: 4000, Initial: 0},
}
