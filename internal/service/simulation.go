package service

import (
	"context"
	"math"

	"github.com/Dan9191/finsight/internal/analytics"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
)

// SimulationInput are the simulation page controls. Mean and Std override
// the statistics derived from the selected series.
type SimulationInput struct {
	Initial    float64  `json:"initial"`
	Monthly    float64  `json:"monthly"`
	Years      int      `json:"years"`
	Paths      int      `json:"paths"`
	GoalTarget *float64 `json:"goal_target,omitempty"`
	Mean       *float64 `json:"mean,omitempty"`
	Std        *float64 `json:"std,omitempty"`
}

// SimulationView is the simulation page result
type SimulationView struct {
	Request        models.SimulationRequest `json:"request"`
	Result         *models.SimulationResult `json:"result"`
	Stats          analytics.ReturnStats    `json:"stats"`
	SuccessPercent *int                     `json:"success_percent,omitempty"`
}

// Simulate runs a Monte Carlo simulation. Return statistics come from the
// selected series when it has enough price pairs, otherwise from the
// configured market assumption, and Stats.Defaulted tells which.
func (s *Service) Simulate(ctx context.Context, visitorID string, in SimulationInput) (*SimulationView, error) {
	if in.GoalTarget != nil && (math.IsNaN(*in.GoalTarget) || *in.GoalTarget < 0) {
		return nil, invalid("goal_target", "goal must be a non-negative amount")
	}

	v, client, slot, token, err := s.begin(ctx, visitorID, ActionSimulation)
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	stats := s.returnStats(v)
	if in.Mean != nil {
		stats.Mean, stats.Defaulted = *in.Mean, false
	}
	if in.Std != nil {
		stats.Std, stats.Defaulted = *in.Std, false
	}

	req := models.SimulationRequest{
		Initial:    in.Initial,
		Monthly:    in.Monthly,
		Mean:       stats.Mean,
		Std:        stats.Std,
		Years:      in.Years,
		Paths:      in.Paths,
		GoalTarget: in.GoalTarget,
	}
	if req.Paths == 0 {
		req.Paths = s.config.DefaultPaths
	}
	if req.Paths == 0 {
		req.Paths = models.DefaultPaths
	}
	if err := backend.ValidateSimulation(req); err != nil {
		return nil, asValidation(err)
	}

	res, err := client.Simulate(ctx, req)
	if err != nil {
		return nil, err
	}

	view := &SimulationView{Request: req, Result: res, Stats: stats}
	if pct, ok := res.SuccessPercent(); ok {
		view.SuccessPercent = &pct
	}

	if !slot.Commit(token, func() {
		v.mu.Lock()
		v.simulation = view
		delete(v.advice, ActionSimulation)
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	return view, nil
}

func (s *Service) returnStats(v *visitor) analytics.ReturnStats {
	fallback := analytics.Assumption{Mean: s.config.DefaultMean, Std: s.config.DefaultStd}
	if fallback == (analytics.Assumption{}) {
		fallback = analytics.DefaultAssumption
	}
	var prices []float64
	if series := v.series(); series != nil {
		prices = series.Values
	}
	return analytics.LogReturnStats(prices, fallback)
}

// Presets returns the simulation scenario presets
func (s *Service) Presets() []models.Scenario {
	return models.Scenarios
}
