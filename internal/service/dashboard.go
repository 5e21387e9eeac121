package service

import (
	"context"
	"errors"
	"math"

	"github.com/Dan9191/finsight/internal/analytics"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/models"
)

// DashboardView is the dashboard page. Panels that failed to load are
// left empty and listed in Errors.
type DashboardView struct {
	Categories []models.CategoryTotal    `json:"categories"`
	Cashflow   []models.CashflowMonth    `json:"cashflow"`
	Totals     models.IncomeExpenseStats `json:"totals"`
	Score      *models.Score             `json:"score,omitempty"`
	NetWorth   *models.NetWorth          `json:"net_worth,omitempty"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// Dashboard loads the dashboard panels. It fails only when every panel
// failed or the backend rejected the token.
func (s *Service) Dashboard(ctx context.Context, visitorID string, initial float64) (*DashboardView, error) {
	if math.IsNaN(initial) || math.IsInf(initial, 0) {
		return nil, invalid("initial", "initial net worth must be a number")
	}

	v, client, slot, token, err := s.begin(ctx, visitorID, ActionDashboard)
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	view := &DashboardView{Errors: map[string]string{}}
	var errs []error
	record := func(panel string, err error) bool {
		if err == nil {
			return true
		}
		s.log.WithField("panel", panel).Warnf("Dashboard panel failed: %v", err)
		view.Errors[panel] = err.Error()
		errs = append(errs, err)
		return false
	}

	cats, err := client.Categories(ctx)
	if record("categories", err) {
		view.Categories = cats
	}
	cash, err := client.Cashflow(ctx)
	if record("cashflow", err) {
		view.Cashflow = cash
		view.Totals = analytics.CashflowTotals(cash)
	}
	score, err := client.Score(ctx)
	if record("score", err) {
		view.Score = score
	}
	nw, err := client.NetWorth(ctx, initial)
	if record("net_worth", err) {
		view.NetWorth = nw
	}

	for _, err := range errs {
		if backend.IsKind(err, backend.KindAuth) {
			return nil, err
		}
	}
	if len(errs) == 4 {
		return nil, errors.Join(errs...)
	}
	if len(view.Errors) == 0 {
		view.Errors = nil
	}

	if !slot.Commit(token, func() {
		v.mu.Lock()
		v.dashboard = view
		delete(v.advice, ActionDashboard)
		v.mu.Unlock()
	}) {
		return nil, ErrSuperseded
	}
	return view, nil
}
