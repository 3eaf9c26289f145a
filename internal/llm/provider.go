// Package llm streams model responses as plain text deltas.
package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"blockstream/internal/config"
)

// ErrNoProvider is returned by New for an unknown provider name.
var ErrNoProvider = errors.New("unknown provider")

// Request is one prompt to stream.
type Request struct {
	Model  string
	System string
	Prompt string
}

// DeltaFunc receives each text delta in arrival order.
type DeltaFunc func(delta string)

// Provider streams one response. Stream returns once the response has ended,
// the context is done, or the transport failed; it never retries.
type Provider interface {
	Name() string
	Stream(ctx context.Context, req Request, onDelta DeltaFunc) error
}

// New builds the provider selected by cfg.
func New(cfg *config.Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case config.ProviderCompat, "":
		return NewCompat(cfg.CompatURL(), cfg.APIKey, logger), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.BaseURL, logger), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoProvider, cfg.Provider)
}

// NewRequest fills a Request from cfg.
func NewRequest(cfg *config.Config, prompt string) Request {
	return Request{Model: cfg.Model, System: cfg.SystemPrompt, Prompt: prompt}
}
