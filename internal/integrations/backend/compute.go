package backend

import (
	"context"
	"math"

	"github.com/Dan9191/finsight/internal/models"
)

// WeightTolerance is how far optimizer weights may sum from 1
const WeightTolerance = 1e-6

// ValidateForecast checks a forecast request before it is sent
func ValidateForecast(values []float64, steps int) error {
	if len(values) == 0 {
		return validationError("forecast", "values", "at least one historical value is required")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationError("forecast", "values", "value %d is not finite", i+1)
		}
	}
	if steps < 1 {
		return validationError("forecast", "steps", "forecast horizon must be at least 1, got %d", steps)
	}
	return nil
}

// Forecast predicts steps values following the series
func (c *Client) Forecast(ctx context.Context, values []float64, steps int) (*models.ForecastResult, error) {
	if err := ValidateForecast(values, steps); err != nil {
		return nil, err
	}

	var res models.ForecastResult
	if err := c.postJSON(ctx, "forecast", "/api/forecast", models.ForecastRequest{Values: values, Steps: steps}, &res); err != nil {
		return nil, err
	}
	if res.Forecast == nil {
		return nil, &Error{Kind: KindServer, Op: "forecast", Message: "response has no forecast"}
	}
	if len(res.Forecast) != steps {
		return nil, validationError("forecast", "forecast", "backend returned %d values, want %d", len(res.Forecast), steps)
	}
	return &res, nil
}

// ValidateSimulation checks a simulation request before it is sent
func ValidateSimulation(req models.SimulationRequest) error {
	switch {
	case req.Years < 1:
		return validationError("simulation", "years", "duration must be at least 1 year, got %d", req.Years)
	case req.Paths < 1:
		return validationError("simulation", "paths", "path count must be at least 1, got %d", req.Paths)
	case req.Std < 0:
		return validationError("simulation", "std", "volatility must not be negative")
	}
	for field, v := range map[string]float64{"initial": req.Initial, "monthly": req.Monthly, "mean": req.Mean, "std": req.Std} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationError("simulation", field, "%s is not finite", field)
		}
	}
	return nil
}

// simulationWire accepts the result either flat or under "simulation"
type simulationWire struct {
	models.SimulationResult
	SuccessProbability *float64                 `json:"success_probability"`
	Simulation         *models.SimulationResult `json:"simulation"`
}

// Simulate runs a Monte Carlo simulation
func (c *Client) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error) {
	if req.Paths == 0 {
		req.Paths = models.DefaultPaths
	}
	if err := ValidateSimulation(req); err != nil {
		return nil, err
	}

	var wire simulationWire
	if err := c.postJSON(ctx, "simulation", "/api/monte-carlo", req, &wire); err != nil {
		return nil, err
	}

	res := wire.SimulationResult
	if wire.Simulation != nil {
		res = *wire.Simulation
	}
	if res.GoalProbability == nil {
		res.GoalProbability = wire.SuccessProbability
	}

	want := req.Points()
	if len(res.Worst) != want || len(res.Median) != want || len(res.Best) != want {
		return nil, validationError("simulation", "trajectories",
			"trajectory lengths %d/%d/%d, want %d", len(res.Worst), len(res.Median), len(res.Best), want)
	}
	if p := res.GoalProbability; p != nil && (*p < 0 || *p > 1 || math.IsNaN(*p)) {
		return nil, validationError("simulation", "goal_probability", "probability %f outside [0,1]", *p)
	}
	return &res, nil
}

// ValidateOptimization checks assets and returns before a call is made
func ValidateOptimization(assets []string, returns []float64) error {
	if len(assets) == 0 {
		return validationError("optimize", "assets", "at least one asset is required")
	}
	if len(returns) == 0 {
		return validationError("optimize", "returns", "at least one return is required")
	}
	if len(assets) != len(returns) {
		return validationError("optimize", "returns", "%d assets but %d returns", len(assets), len(returns))
	}
	return nil
}

// Optimize asks the optimizer for one weight per asset
func (c *Client) Optimize(ctx context.Context, assets []string, returns []float64, goal string) (*models.OptimizationResult, error) {
	if err := ValidateOptimization(assets, returns); err != nil {
		return nil, err
	}
	if goal == "" {
		goal = models.GoalBalanced
	}

	var res models.OptimizationResult
	req := models.OptimizationRequest{Assets: assets, Returns: returns, Goal: goal}
	if err := c.postJSON(ctx, "optimize", "/api/optimize", req, &res); err != nil {
		return nil, err
	}

	if res.Weights == nil {
		return nil, validationError("optimize", "weights", "optimizer response has no weights")
	}
	if len(res.Weights) != len(assets) {
		return nil, validationError("optimize", "weights", "%d weights for %d assets", len(res.Weights), len(assets))
	}
	sum := 0.0
	for i, w := range res.Weights {
		if w < 0 || math.IsNaN(w) {
			return nil, validationError("optimize", "weights", "weight %d for %s is negative", i, assets[i])
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightTolerance {
		return nil, validationError("optimize", "weights", "weights sum to %f, want 1", sum)
	}
	return &res, nil
}

// SavePortfolio stores a named portfolio on the backend
func (c *Client) SavePortfolio(ctx context.Context, req models.SavePortfolioRequest) error {
	if err := ValidateOptimization(req.Assets, req.Returns); err != nil {
		return err
	}
	return c.postJSON(ctx, "save-portfolio", "/api/save-portfolio", req, nil)
}
