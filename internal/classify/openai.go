package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/juneyoungl/jot/internal/errors"
	"github.com/juneyoungl/jot/internal/model"
	"github.com/juneyoungl/jot/internal/util"
)

const systemPrompt = `You classify short user captures into exactly one category.

Categories:
- SCHEDULE: an event at a specific time (meeting, appointment, reservation)
- TODO: an actionable task the user must do
- NOTES: information to keep (thoughts, links, references)
- TEMP: content too ambiguous to classify

Return ONLY a JSON object with these fields:
- type: "SCHEDULE" | "TODO" | "NOTES" | "TEMP"
- sub_type: for NOTES only, one of "INBOX" | "IDEA" | "BOOKMARK" (omit otherwise)
- confidence: 0.0 to 1.0
- ai_title: short title, at most 30 characters
- tags: array of lowercase topic tags
- entities: array of {entity_type, raw_value, normalized_value} facts found in the text
- todo_info: for TODO, {deadline (unix ms, optional), priority ("NONE"|"LOW"|"MEDIUM"|"HIGH"), labels}
- schedule_info: for SCHEDULE, {start_time (unix ms), end_time (unix ms), location (optional), is_all_day}

Times are relative to the provided current time. No additional text.`

// ClientConfig holds configuration for the OpenAI classifier.
type ClientConfig struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

// OpenAIClassifier calls the OpenAI chat API with retry and backoff.
type OpenAIClassifier struct {
	client     *openai.Client
	model      string
	maxRetries int
	retryDelay time.Duration
}

// NewOpenAIClassifier creates a classifier from the given configuration.
func NewOpenAIClassifier(cfg ClientConfig) (*OpenAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewInvalidRequest("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &OpenAIClassifier{
		client:     openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Classify sends the capture content to the model and parses the JSON
// result. Transient failures are retried with exponential backoff; a
// run out of attempts surfaces as a transient-network error so the
// outbox keeps the action on its own retry schedule.
func (c *OpenAIClassifier) Classify(ctx context.Context, content string) (*model.Classification, error) {
	userPrompt := fmt.Sprintf("Current time (unix ms): %d\n\nClassify this capture:\n\n%s",
		time.Now().UnixMilli(), content)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.NewTransientNetwork(ctx.Err())
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			}
		}

		actx, cancel := context.WithTimeout(ctx, 30*time.Second)
		resp, err := c.client.CreateChatCompletion(actx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		var cls model.Classification
		if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &cls); err != nil {
			lastErr = fmt.Errorf("attempt %d: parse result: %w", attempt+1, err)
			continue
		}
		if !cls.Type.Valid() {
			lastErr = fmt.Errorf("attempt %d: unknown type %q", attempt+1, cls.Type)
			continue
		}
		return &cls, nil
	}
	return nil, errors.NewTransientNetwork(
		fmt.Errorf("classification failed after %d attempts: %w", c.maxRetries+1, lastErr))
}
