package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when the model output cannot be parsed
// into a Summary.
var ErrMalformedResponse = errors.New("malformed summary response")

const (
	// UnknownLanguage is recorded when the model does not name a language.
	UnknownLanguage = "unknown"

	summaryMaxTokens = 1024
)

// BuildSummaryPrompt asks the model for the language and main goals of a file.
func BuildSummaryPrompt(path string, content []byte) string {
	var b strings.Builder
	b.WriteString("Please provide a list of the main goals of the following computer source code file. ")
	fmt.Fprintf(&b, "This code comes from a file called '%s'.\n\n", path)
	b.WriteString("Without any comment, return your answer in the following ECMA-404 compliant JSON format:\n")
	b.WriteString(`{"programming_language":"Rust","goals":["Authenticate users","Validate JWT payloads","Ensure strong passwords"]}`)
	b.WriteString("\n\nThe body of the file follows the delimiter \"---\".\n\n---\n")
	b.Write(content)
	b.WriteString("\n")
	return b.String()
}

// ParseSummary decodes the model's reply. A reply wrapped in a markdown code
// fence is accepted. Blank goals are dropped.
func ParseSummary(raw string) (Summary, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var payload struct {
		Language *string  `json:"programming_language"`
		Goals    []string `json:"goals"`
	}
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&payload); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Goals == nil {
		return Summary{}, fmt.Errorf("%w: missing goals", ErrMalformedResponse)
	}

	summary := Summary{Language: UnknownLanguage, Goals: make([]string, 0, len(payload.Goals))}
	if payload.Language != nil && strings.TrimSpace(*payload.Language) != "" {
		summary.Language = strings.TrimSpace(*payload.Language)
	}
	for _, goal := range payload.Goals {
		if goal = strings.TrimSpace(goal); goal != "" {
			summary.Goals = append(summary.Goals, goal)
		}
	}
	return summary, nil
}

// ChatSummarizer summarizes files through an OpenAI-compatible chat API.
type ChatSummarizer struct {
	client *Client
}

// NewChatSummarizer creates a summarizer using client. The client's model is
// used when Summarize is called without one.
func NewChatSummarizer(client *Client) *ChatSummarizer {
	return &ChatSummarizer{client: client}
}

// Summarize asks the model for the language and goals of the file at path.
func (s *ChatSummarizer) Summarize(ctx context.Context, path string, content []byte, model string) (Summary, error) {
	reply, err := s.client.Complete(ctx,
		[]Message{{Role: "user", Content: BuildSummaryPrompt(path, content)}},
		ChatParams{Model: model, MaxTokens: summaryMaxTokens},
	)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize %s: %w", path, err)
	}

	summary, err := ParseSummary(reply)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to parse summary of %s: %w", path, err)
	}
	return summary, nil
}
