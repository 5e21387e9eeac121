package service

import (
	"context"
	"strings"

	"github.com/Dan9191/finsight/internal/advisor"
)

// AskView is the answer to a free question
type AskView struct {
	Question string          `json:"question"`
	Advice   *advisor.Advice `json:"advice,omitempty"`
	Notice   string          `json:"notice,omitempty"`
}

// Ask sends a question to the AI together with the latest results of the
// visitor. A failed call degrades to a notice.
func (s *Service) Ask(ctx context.Context, visitorID, question string) (*AskView, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, invalid("question", "ask a question")
	}

	v, _, slot, token, err := s.begin(ctx, visitorID, ActionAsk)
	if err != nil {
		return nil, err
	}
	defer slot.Finish(token)

	view := &AskView{Question: question}
	view.Advice, view.Notice = s.advise(ctx, v, advisor.Question{Text: question, Context: v.askContext()})
	return view, nil
}

// askContext summarizes the latest results for a question
func (v *visitor) askContext() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx := map[string]any{}
	if f := v.forecast; f != nil {
		ctx["forecast"] = forecastAnalysis(f)
	}
	if sim := v.simulation; sim != nil {
		ctx["simulation"] = advisor.NewSimulationAnalysis(sim.Request, sim.Result)
	}
	if o := v.optimization; o != nil {
		ctx["optimization"] = advisor.OptimizationAnalysis{Goal: o.Goal, Allocations: o.Allocations}
	}
	if len(ctx) == 0 {
		return nil
	}
	return ctx
}
