package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when no model is configured
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultGeminiTimeout bounds one model call
	DefaultGeminiTimeout = 60 * time.Second

	systemInstruction = "You are FinSight AI, a financial analysis assistant. " +
		`Reply with a JSON object {"analysis": "<markdown>"} and nothing else.`
)

// generateFunc sends one prompt to a model and returns the raw text
type generateFunc func(ctx context.Context, model, system, prompt string) (string, error)

// GeminiAdvisor asks a Gemini model directly
type GeminiAdvisor struct {
	model    string
	generate generateFunc
	log      *logrus.Logger
}

// NewGeminiAdvisor creates a Gemini-backed advisor. Without an API key every
// call fails with a missing-configuration error. Each call is bounded by
// timeout, DefaultGeminiTimeout when zero.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string, timeout time.Duration, log *logrus.Logger) (*GeminiAdvisor, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultGeminiTimeout
	}
	a := &GeminiAdvisor{model: model, log: log}
	if apiKey == "" {
		return a, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	a.generate = func(ctx context.Context, model, system, prompt string) (string, error) {
		config := &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.3)),
			ResponseMIMEType: "application/json",
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
		}
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", err
		}
		return result.Text(), nil
	}
	return a, nil
}

// Advise sends the request payload as JSON with a task instruction
func (a *GeminiAdvisor) Advise(ctx context.Context, req Request) (*Advice, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	op := req.Op()
	if a.generate == nil {
		return nil, &Error{Kind: KindMissingConfiguration, Op: op, Message: "Gemini API key is not set"}
	}

	data, err := json.Marshal(req.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	prompt := req.task() + "\n\nData:\n" + string(data)

	raw, err := a.generate(ctx, a.model, systemInstruction, prompt)
	if err != nil {
		a.log.Errorf("Gemini %s failed: %v", op, err)
		return nil, classify(op, err)
	}

	return Render(op, parseAnalysis(raw), "gemini")
}

type modelReply struct {
	Analysis string `json:"analysis"`
	Answer   string `json:"answer"`
}

func (r modelReply) text() string {
	if r.Analysis != "" {
		return r.Analysis
	}
	return r.Answer
}

// parseAnalysis extracts the analysis text from a model reply, repairing
// malformed JSON and accepting Hjson. Plain prose is returned as is.
func parseAnalysis(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(raw), &reply); err == nil && reply.text() != "" {
		return reply.text()
	}
	if repaired, err := jsonrepair.RepairJSON(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), &reply); err == nil && reply.text() != "" {
			return reply.text()
		}
	}
	var loose map[string]any
	if err := hjson.Unmarshal([]byte(raw), &loose); err == nil {
		for _, key := range []string{"analysis", "answer"} {
			if s, ok := loose[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return raw
}

func classify(op Op, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}
