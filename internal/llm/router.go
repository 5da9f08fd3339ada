package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"newswire/internal/config"
	"newswire/internal/logging"
	"newswire/internal/services"
)

// Capability names route requests to the provider chains in configuration.
const (
	CapabilityJudge    = "judge"
	CapabilityGenerate = "generate"
	CapabilityRevise   = "revise"
)

// Attempt records one provider call within a routed completion, including
// calls that failed before reaching the wire (missing credentials).
type Attempt struct {
	Provider      string
	Model         string
	CorrelationID string
	Latency       time.Duration
	Err           error
}

// Result is a successful routed completion. Attempts includes the failed
// providers tried before the one that answered.
type Result struct {
	Content       string
	Provider      string
	Model         string
	CorrelationID string
	Attempts      []Attempt
}

// ExhaustedError reports that every provider in a capability chain failed.
type ExhaustedError struct {
	Capability string
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	names := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		names = append(names, attempt.Provider)
	}
	return fmt.Sprintf("all %s providers failed (%s)", e.Capability, strings.Join(names, ", "))
}

// Unwrap exposes the last provider error for classification.
func (e *ExhaustedError) Unwrap() error {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if e.Attempts[i].Err != nil {
			return e.Attempts[i].Err
		}
	}
	return nil
}

type routedClient struct {
	client    *Client
	apiKeyEnv string
}

// Router dispatches completions across ordered provider chains. Each
// capability tries its providers in configured order; a provider exhausts its
// own retries before the router falls through to the next one.
type Router struct {
	logger *slog.Logger
	chains map[string][]routedClient
}

// NewRouter builds capability chains from configuration. API keys are read
// from the environment at call time so a key provisioned after startup is
// picked up without a rebuild.
func NewRouter(cfg *config.Config, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = logging.NewNop()
	}
	router := &Router{
		logger: logging.NewComponentLogger(logger, "llm"),
		chains: make(map[string][]routedClient),
	}
	if cfg == nil {
		return router
	}
	for _, capability := range []string{CapabilityJudge, CapabilityGenerate, CapabilityRevise} {
		for _, provider := range cfg.ProvidersFor(capability) {
			providerOpts := make([]Option, 0, len(opts)+2)
			if provider.MaxAttempts > 0 {
				providerOpts = append(providerOpts, WithRetryMaxAttempts(provider.MaxAttempts))
			}
			if provider.BackoffSeconds > 0 {
				backoff := time.Duration(provider.BackoffSeconds * float64(time.Second))
				providerOpts = append(providerOpts, WithRetryBackoff(backoff, defaultRetryMaxDelay))
			}
			providerOpts = append(providerOpts, opts...)
			router.chains[capability] = append(router.chains[capability], routedClient{
				client: NewClient(ClientConfig{
					Name:           provider.Name,
					BaseURL:        provider.BaseURL,
					Model:          provider.Model,
					TimeoutSeconds: provider.TimeoutSeconds,
				}, providerOpts...),
				apiKeyEnv: provider.APIKeyEnv,
			})
		}
	}
	return router
}

// Providers returns the provider names configured for a capability, in order.
func (r *Router) Providers(capability string) []string {
	chain := r.chains[capability]
	names := make([]string, 0, len(chain))
	for _, entry := range chain {
		names = append(names, entry.client.Name())
	}
	return names
}

// Complete runs a JSON completion through the capability's provider chain and
// returns the first successful payload. Every provider tried is recorded in
// the result's attempt list so callers can audit the full trail.
func (r *Router) Complete(ctx context.Context, capability, systemPrompt, userPrompt string) (*Result, error) {
	chain := r.chains[capability]
	if len(chain) == 0 {
		return nil, services.Wrap(
			services.ErrConfiguration,
			capability,
			"route",
			"no providers configured",
			nil,
		)
	}

	var attempts []Attempt
	for _, entry := range chain {
		correlationID := uuid.NewString()
		attemptCtx := services.WithRequestID(ctx, correlationID)
		client := entry.client

		apiKey := strings.TrimSpace(os.Getenv(entry.apiKeyEnv))
		if apiKey == "" {
			err := fmt.Errorf("api key env %s is not set", entry.apiKeyEnv)
			attempts = append(attempts, Attempt{
				Provider:      client.Name(),
				Model:         client.Model(),
				CorrelationID: correlationID,
				Err:           err,
			})
			r.logger.Warn("provider skipped",
				logging.String(logging.FieldProvider, client.Name()),
				logging.String(logging.FieldCorrelationID, correlationID),
				logging.String("reason", err.Error()),
			)
			continue
		}
		client = client.withAPIKey(apiKey)

		started := time.Now()
		content, err := client.CompleteJSON(attemptCtx, systemPrompt, userPrompt)
		latency := time.Since(started)
		attempt := Attempt{
			Provider:      client.Name(),
			Model:         client.Model(),
			CorrelationID: correlationID,
			Latency:       latency,
			Err:           err,
		}
		attempts = append(attempts, attempt)

		if err == nil {
			r.logger.Debug("provider answered",
				logging.String(logging.FieldProvider, client.Name()),
				logging.String(logging.FieldModel, client.Model()),
				logging.String(logging.FieldCorrelationID, correlationID),
				logging.Duration("latency", latency),
			)
			return &Result{
				Content:       content,
				Provider:      client.Name(),
				Model:         client.Model(),
				CorrelationID: correlationID,
				Attempts:      attempts,
			}, nil
		}

		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("provider failed, falling through",
			logging.String(logging.FieldProvider, client.Name()),
			logging.String(logging.FieldCorrelationID, correlationID),
			logging.Error(err),
		)
	}

	exhausted := &ExhaustedError{Capability: capability, Attempts: attempts}
	return nil, services.Wrap(
		services.ErrTransport,
		capability,
		"route",
		"provider chain exhausted",
		exhausted,
	)
}

// withAPIKey returns a shallow copy carrying the resolved credential. The
// original stays key-free so credentials never outlive a single call.
func (c *Client) withAPIKey(apiKey string) *Client {
	copied := *c
	copied.cfg.APIKey = apiKey
	return &copied
}
