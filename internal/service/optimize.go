package service

import (
	"context"
	"time"

	"github.com/Dan9191/finsight/internal/analytics"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
	"github.com/Dan9191/finsight/internal/store"
)

// Weights at or below this are not shown
const minShownWeight = 0.0001

// DefaultPortfolioName names saved portfolios when none is given
const DefaultPortfolioName = "Optimized Portfolio"

// OptimizeInput are the optimization page controls
type OptimizeInput struct {
	Goal string `json:"goal"`
	Name string `json:"name"`
}

// OptimizationView is the optimization page result
type OptimizationView struct {
	Goal        string                   `json:"goal"`
	Portfolio   models.PortfolioSnapshot `json:"portfolio"`
	Weights     []float64                `json:"weights"`
	Allocations []models.Allocation      `json:"allocations"`
}

// Optimize optimizes the stored portfolio snapshot. Saving the portfolio
// runs in the background and never affects the result.
func (s *Service) Optimize(ctx context.Context, visitorID string, in OptimizeInput) (*OptimizationView, error) {
	goal := in.Goal
	switch goal {
	case "":
		goal = models.GoalBalanced
	case models.GoalBalanced, models.GoalGrowth, models.GoalStable:
	default:
		return nil, invalid("goal", "unknown goal %q", goal)
	}

	var snap models.PortfolioSnapshot
	ok, err := store.GetJSON(ctx, s.store, store.Key(visitorID, store.KeyPortfolio), &snap)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("portfolio", "upload portfolio data first")
	}
	if err := backend.ValidateOptimization(snap.Assets, snap.Returns); err != nil {
		return nil, asValidation(err)
	}

	v, client, slot, token, err := s.begin(ctx, visitorID, ActionOptimization)
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	res, err := client.Optimize(ctx, snap.Assets, snap.Returns, goal)
	if err != nil {
		return nil, err
	}

	name := in.Name
	if name == "" {
		name = DefaultPortfolioName
	}
	s.savePortfolio(ctx, client, models.SavePortfolioRequest{Name: name, Assets: snap.Assets, Returns: snap.Returns})

	view := &OptimizationView{
		Goal:        goal,
		Portfolio:   snap,
		Weights:     res.Weights,
		Allocations: allocations(snap.Assets, res.Weights),
	}
	if !slot.Commit(token, func() {
		v.mu.Lock()
		v.optimization = view
		delete(v.advice, ActionOptimization)
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	return view, nil
}

func (s *Service) savePortfolio(ctx context.Context, client *backend.Client, req models.SavePortfolioRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	go func() {
		defer cancel()
		if err := client.SavePortfolio(ctx, req); err != nil {
			s.log.Warnf("Failed to save portfolio %q: %v", req.Name, err)
			return
		}
		s.log.Infof("Portfolio saved: %s", req.Name)
	}()
}

func allocations(assets []string, weights []float64) []models.Allocation {
	out := make([]models.Allocation, 0, len(assets))
	for i, w := range weights {
		if w <= minShownWeight {
			continue
		}
		out = append(out, models.Allocation{Asset: assets[i], Weight: w, Percent: analytics.Round2(w * 100)})
	}
	return out
}
