package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/finsight/internal/utils/email"
)

// SendReport emails the latest results of a visitor. The report goes to
// the signed-in user unless to is given.
func (s *Service) SendReport(ctx context.Context, visitorID, to string) error {
	if s.mailer == nil || !s.mailer.Enabled() {
		return ErrMailDisabled
	}

	sess, err := s.Session(ctx, visitorID)
	if err != nil {
		return err
	}
	if to == "" && sess.User != nil {
		to = sess.User.Email
	}
	if to == "" || !strings.Contains(to, "@") {
		return invalid("to", "enter an email address")
	}

	v := s.visitorFor(visitorID, sess.Token)
	sections := v.reportSections()
	if len(sections) == 0 {
		return invalid("report", "run a forecast, simulation or optimization first")
	}

	name := ""
	if sess.User != nil {
		name = sess.User.Name
	}
	if err := s.mailer.SendReport(to, name, sections); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

func (v *visitor) reportSections() []email.Section {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []email.Section
	if f := v.forecast; f != nil {
		sec := email.Section{Title: "Forecast"}
		for _, l := range []struct {
			name string
			line *ForecastSeries
		}{{"Series", f.Series}, {"Income", f.Income}, {"Expense", f.Expense}} {
			if l.line == nil {
				continue
			}
			sec.Lines = append(sec.Lines, fmt.Sprintf("%s: next %d values %s", l.name, len(l.line.Forecast), joinFloats(l.line.Forecast)))
			if t := l.line.Trend; t != nil {
				sec.Lines = append(sec.Lines, fmt.Sprintf("%s trend: %s, expected range %.2f to %.2f", l.name, t.Label, t.RangeLow, t.RangeHigh))
			}
		}
		if a := v.adviceFor(ActionForecast); a != nil {
			sec.HTML = a.HTML
		}
		out = append(out, sec)
	}
	if sim := v.simulation; sim != nil {
		sec := email.Section{Title: "Simulation"}
		sec.Lines = append(sec.Lines, fmt.Sprintf("%d years, %.2f initial, %.2f monthly", sim.Request.Years, sim.Request.Initial, sim.Request.Monthly))
		sec.Lines = append(sec.Lines, fmt.Sprintf("Final balance: worst %.2f, median %.2f, best %.2f",
			last(sim.Result.Worst), last(sim.Result.Median), last(sim.Result.Best)))
		if sim.SuccessPercent != nil {
			sec.Lines = append(sec.Lines, fmt.Sprintf("Goal probability: %d%%", *sim.SuccessPercent))
		}
		if sim.Stats.Defaulted {
			sec.Lines = append(sec.Lines, "Returns use the default market assumption")
		}
		if a := v.adviceFor(ActionSimulation); a != nil {
			sec.HTML = a.HTML
		}
		out = append(out, sec)
	}
	if o := v.optimization; o != nil {
		sec := email.Section{Title: "Portfolio (" + o.Goal + ")"}
		for _, a := range o.Allocations {
			sec.Lines = append(sec.Lines, fmt.Sprintf("%s: %.2f%%", a.Asset, a.Percent))
		}
		if a := v.adviceFor(ActionOptimization); a != nil {
			sec.HTML = a.HTML
		}
		out = append(out, sec)
	}
	return out
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.2f", x)
	}
	return strings.Join(parts, ", ")
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
