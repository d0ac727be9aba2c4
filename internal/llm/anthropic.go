package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicSummarizer summarizes files through the Anthropic Messages API.
type AnthropicSummarizer struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicSummarizer creates a summarizer. Extra request options (base URL,
// retries, HTTP client) are passed to the SDK client.
func NewAnthropicSummarizer(apiKey, defaultModel string, opts ...option.RequestOption) *AnthropicSummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicSummarizer{
		client:       anthropic.NewClient(opts...),
		defaultModel: defaultModel,
	}
}

// Summarize asks the model for the language and goals of the file at path.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, path string, content []byte, model string) (Summary, error) {
	if model == "" {
		model = s.defaultModel
	}

	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: summaryMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildSummaryPrompt(path, content))),
		},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize %s: %w", path, err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}

	summary, err := ParseSummary(reply.String())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to parse summary of %s: %w", path, err)
	}
	return summary, nil
}
