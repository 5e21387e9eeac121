package service

import (
	"context"

	"github.com/Dan9191/finsight/internal/advisor"
)

// ActionAdvice prefixes the loading state of advice runs, one per op
const ActionAdvice = "advice"

// AdviceInput names the result to explain: forecast, simulation,
// optimization or dashboard
type AdviceInput struct {
	Op string `json:"op"`
}

// AdviceView is the AI explanation of the latest result of one page
type AdviceView struct {
	Op     string          `json:"op"`
	Advice *advisor.Advice `json:"advice,omitempty"`
	Notice string          `json:"notice,omitempty"`
}

// Advise explains the latest committed result of a page. It runs apart from
// the numeric action so a slow model never holds back the numbers. Advice
// for a result that was replaced while the model was answering is dropped.
func (s *Service) Advise(ctx context.Context, visitorID string, in AdviceInput) (*AdviceView, error) {
	switch in.Op {
	case ActionForecast, ActionSimulation, ActionOptimization, ActionDashboard:
	default:
		return nil, invalid("op", "unknown advice target %q", in.Op)
	}

	v, _, slot, token, err := s.begin(ctx, visitorID, adviceSlot(in.Op))
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	target, req := v.result(in.Op)
	if target == nil {
		return nil, invalid("op", "run the %s first", in.Op)
	}

	view := &AdviceView{Op: in.Op}
	view.Advice, view.Notice = s.advise(ctx, v, req)

	replaced := false
	if !slot.Commit(token, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if current, _ := v.resultLocked(in.Op); current != target {
			replaced = true
			return
		}
		v.advice[in.Op] = view
	}) || replaced {
		return nil, ErrSuperseded
	}
	return view, nil
}

func adviceSlot(op string) string {
	return ActionAdvice + ":" + op
}

// result returns the committed result of op and the advice request for it,
// or nil when there is none
func (v *visitor) result(op string) (any, advisor.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resultLocked(op)
}

func (v *visitor) resultLocked(op string) (any, advisor.Request) {
	switch op {
	case ActionForecast:
		if f := v.forecast; f != nil {
			return f, forecastAnalysis(f)
		}
	case ActionSimulation:
		if sim := v.simulation; sim != nil {
			return sim, advisor.NewSimulationAnalysis(sim.Request, sim.Result)
		}
	case ActionOptimization:
		if o := v.optimization; o != nil {
			return o, advisor.OptimizationAnalysis{Goal: o.Goal, Allocations: o.Allocations}
		}
	case ActionDashboard:
		if d := v.dashboard; d != nil {
			return d, advisor.DashboardSummary{
				Categories: d.Categories,
				Cashflow:   d.Cashflow,
				Totals:     d.Totals,
				Score:      d.Score,
			}
		}
	}
	return nil, nil
}

// adviceFor returns the committed advice of op. Callers hold v.mu.
func (v *visitor) adviceFor(op string) *advisor.Advice {
	if a := v.advice[op]; a != nil {
		return a.Advice
	}
	return nil
}
