package advisor

import (
	"context"
	"errors"

	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/sirupsen/logrus"
)

// AIBackend is the part of the backend client the advisor needs
type AIBackend interface {
	AskAI(ctx context.Context, path string, payload any) (*backend.AIResponse, error)
}

// BackendAdvisor delegates to the backend's AI endpoints
type BackendAdvisor struct {
	client AIBackend
	log    *logrus.Logger
}

// NewBackendAdvisor creates an advisor backed by the compute backend
func NewBackendAdvisor(client AIBackend, log *logrus.Logger) *BackendAdvisor {
	return &BackendAdvisor{client: client, log: log}
}

// Advise posts the request payload to /api/ai/{op}. A question the
// backend cannot route there is retried once on /api/ask-ai.
func (a *BackendAdvisor) Advise(ctx context.Context, req Request) (*Advice, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if a.client == nil {
		return nil, &Error{Kind: KindMissingConfiguration, Op: req.Op(), Message: "no AI backend configured"}
	}

	op := req.Op()
	res, err := a.client.AskAI(ctx, "/api/ai/"+string(op), req.payload())
	if q, ok := req.(Question); ok && isNotFound(err) {
		a.log.Debugf("AI ask endpoint missing, falling back to /api/ask-ai")
		res, err = a.client.AskAI(ctx, "/api/ask-ai", map[string]string{"question": q.Text})
	}
	if err != nil {
		return nil, fromBackend(op, err)
	}

	if !res.Success && res.Text() == "" {
		msg := res.Error
		if msg == "" {
			msg = "AI request failed"
		}
		return nil, &Error{Kind: KindUpstream, Op: op, Message: msg}
	}
	return Render(op, res.Text(), "backend")
}

func isNotFound(err error) bool {
	var be *backend.Error
	return errors.As(err, &be) && be.Status == 404
}

func fromBackend(op Op, err error) error {
	var be *backend.Error
	if errors.As(err, &be) && be.Kind == backend.KindNetwork {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}
