package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAI streams through the official SDK's chat completions API.
type OpenAI struct {
	client openai.Client
	log    *zap.Logger
}

// NewOpenAI builds an SDK client. baseURL may be empty for api.openai.com.
func NewOpenAI(apiKey, baseURL string, logger *zap.Logger) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: openai.NewClient(opts...), log: logger}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Stream(ctx context.Context, r Request, onDelta DeltaFunc) error {
	var messages []openai.ChatCompletionMessageParamUnion
	if r.System != "" {
		messages = append(messages, openai.SystemMessage(r.System))
	}
	messages = append(messages, openai.UserMessage(r.Prompt))

	p.log.Debug("stream request", zap.String("provider", "openai"), zap.String("model", r.Model))
	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(r.Model),
		Messages: messages,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if text := chunk.Choices[0].Delta.Content; text != "" {
			onDelta(text)
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	return nil
}
