package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

// Anthropic streams through the Messages API.
type Anthropic struct {
	client anthropic.Client
	log    *zap.Logger
}

// NewAnthropic builds an SDK client. baseURL may be empty for the public API.
func NewAnthropic(apiKey, baseURL string, logger *zap.Logger) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Anthropic{client: anthropic.NewClient(opts...), log: logger}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Stream(ctx context.Context, r Request, onDelta DeltaFunc) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.Model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(r.Prompt)),
		},
	}
	if r.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.System}}
	}

	p.log.Debug("stream request", zap.String("provider", "anthropic"), zap.String("model", r.Model))
	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
			onDelta(delta.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	return nil
}
