// Package service holds the page logic of the front-end service: sessions,
// uploads, dataset selection, forecasts, simulations, optimization, AI
// advice and reports. State is kept per visitor in the state store and in
// memory for in-flight work.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dan9191/finsight/internal/advisor"
	"github.com/Dan9191/finsight/internal/config"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/selection"
	"github.com/Dan9191/finsight/internal/store"
	"github.com/Dan9191/finsight/internal/utils/email"
	"github.com/sirupsen/logrus"
)

// Page actions with their own loading state
const (
	ActionForecast     = "forecast"
	ActionSimulation   = "simulation"
	ActionOptimization = "optimization"
	ActionDashboard    = "dashboard"
	ActionAsk          = "ask"
)

// Mailer sends report emails
type Mailer interface {
	Enabled() bool
	SendReport(to, username string, sections []email.Section) error
}

// Service handles page logic
type Service struct {
	store    store.Store
	client   *backend.Client
	advisor  advisor.Advisor
	mailer   Mailer
	log      *logrus.Logger
	config   *config.Config
	tokenKey [32]byte

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewService initializes a new service. adv and mailer may be nil.
func NewService(st store.Store, client *backend.Client, adv advisor.Advisor, mailer Mailer, log *logrus.Logger, cfg *config.Config) (*Service, error) {
	key, err := cfg.TokenKeyBytes()
	if err != nil {
		return nil, fmt.Errorf("invalid token key: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:    st,
		client:   client,
		advisor:  adv,
		mailer:   mailer,
		log:      log,
		config:   cfg,
		tokenKey: key,
		ctx:      ctx,
		cancel:   cancel,
		visitors: make(map[string]*visitor),
	}, nil
}

// Close stops background work of every visitor
func (s *Service) Close() {
	s.cancel()
	s.mu.Lock()
	visitors := s.visitors
	s.visitors = make(map[string]*visitor)
	s.mu.Unlock()
	for _, v := range visitors {
		v.close()
	}
}

// visitor is the in-memory state of one visitor for one bearer token
type visitor struct {
	id        string
	token     string
	selection *selection.Controller
	stopWatch func()

	mu           sync.Mutex
	refreshed    bool
	generation   uint64
	slots        map[string]*ActionSlot
	forecast     *ForecastView
	simulation   *SimulationView
	optimization *OptimizationView
	dashboard    *DashboardView
	advice       map[string]*AdviceView
}

// visitorFor returns the state of a visitor, recreating it when the token changed
func (s *Service) visitorFor(id, token string) *visitor {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v := s.visitors[id]; v != nil {
		if v.token == token {
			return v
		}
		go v.close()
	}

	v := &visitor{
		id:        id,
		token:     token,
		selection: selection.New(s.client.WithToken(token), s.log),
		slots:     make(map[string]*ActionSlot),
		advice:    make(map[string]*AdviceView),
	}
	v.selection.OnChange(v.onSelection)
	stop, err := v.selection.Watch(s.ctx, s.store, store.Key(id, store.KeyUploadedFiles))
	if err != nil {
		s.log.Warnf("Failed to watch uploads of visitor %s: %v", id, err)
	} else {
		v.stopWatch = stop
	}
	s.visitors[id] = v
	return v
}

func (s *Service) dropVisitor(id string) {
	s.mu.Lock()
	v := s.visitors[id]
	delete(s.visitors, id)
	s.mu.Unlock()
	if v != nil {
		v.close()
	}
}

func (v *visitor) close() {
	if v.stopWatch != nil {
		v.stopWatch()
	}
	v.selection.Close()
}

func (v *visitor) slot(action string) *ActionSlot {
	v.mu.Lock()
	defer v.mu.Unlock()
	sl := v.slots[action]
	if sl == nil {
		sl = NewActionSlot()
		v.slots[action] = sl
	}
	return sl
}

// onSelection drops results derived from a previous selection. Snapshots
// of an older generation arrive late and are ignored.
func (v *visitor) onSelection(snap selection.Snapshot) {
	v.mu.Lock()
	if snap.Generation <= v.generation {
		v.mu.Unlock()
		return
	}
	v.generation = snap.Generation
	v.forecast = nil
	v.simulation = nil
	delete(v.advice, ActionForecast)
	delete(v.advice, ActionSimulation)
	var stale []*ActionSlot
	for _, name := range []string{ActionForecast, ActionSimulation} {
		if sl := v.slots[name]; sl != nil {
			stale = append(stale, sl)
		}
	}
	v.mu.Unlock()

	for _, sl := range stale {
		sl.Invalidate()
	}
}

func (v *visitor) loading() map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]bool, len(v.slots))
	for name, sl := range v.slots {
		out[name] = sl.Loading()
	}
	return out
}

// begin starts a run of action, bound to the current visitor state
func (s *Service) begin(ctx context.Context, visitorID, action string) (*visitor, *backend.Client, *ActionSlot, uint64, error) {
	sess, err := s.Session(ctx, visitorID)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	v := s.visitorFor(visitorID, sess.Token)
	sl := v.slot(action)
	return v, s.client.WithToken(sess.Token), sl, sl.Begin(), nil
}

// advise asks for advice on behalf of v and never fails: errors become a notice
func (s *Service) advise(ctx context.Context, v *visitor, req advisor.Request) (*advisor.Advice, string) {
	if s.advisor == nil {
		return nil, advisor.Notice(&advisor.Error{Kind: advisor.KindMissingConfiguration, Op: req.Op()})
	}
	adv, err := s.advisor.Advise(backend.WithBearer(ctx, v.token), req)
	if err != nil {
		s.log.WithField("op", req.Op()).Warnf("AI advice failed: %v", err)
		return nil, advisor.Notice(err)
	}
	return adv, ""
}

// Health checks that the compute backend answers
func (s *Service) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}
