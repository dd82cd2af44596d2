package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kestrel-data/nlmongo/internal/domain"
	"github.com/kestrel-data/nlmongo/internal/domain/query"
	"github.com/kestrel-data/nlmongo/internal/domain/schema"
	"github.com/kestrel-data/nlmongo/internal/inference"
	"github.com/kestrel-data/nlmongo/internal/metrics"
)

const (
	translationTemperature = 0.1
	translationMaxTokens   = 1000
)

// Translator turns questions into query proposals via an OpenAI-compatible
// chat completion API.
type Translator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// Config holds the translation provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewTranslator creates an OpenAI-compatible translation provider.
func NewTranslator(cfg *Config) *Translator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Translator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

var _ domain.Translator = (*Translator)(nil)

// Translate implements domain.Translator with transport-level metrics.
func (t *Translator) Translate(
	ctx context.Context,
	question string,
	snap schema.Snapshot,
	rels []inference.Relationship,
) (query.Proposed, error) {
	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(question, snap, rels)},
		},
		Temperature: translationTemperature,
		MaxTokens:   translationMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()

	resp, err := t.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return query.Proposed{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(t.provider, t.model, "error").Inc()
		return query.Proposed{}, fmt.Errorf("empty completion response: %w", domain.ErrTranslatorError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(t.provider, t.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(t.provider, t.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(t.provider, t.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(t.provider, t.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	proposed, err := parseTranslation(resp.Choices[0].Message.Content)
	if err != nil {
		t.logger.Warn("Model returned an unusable translation",
			zap.String("model", t.model),
			zap.Error(err),
		)
		return query.Proposed{}, err
	}
	return proposed, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (t *Translator) HealthCheck(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseTranslation decodes the model output into a query proposal. Fenced
// code blocks are tolerated; anything structurally wrong maps to
// domain.ErrInvalidTranslation.
func parseTranslation(raw string) (query.Proposed, error) {
	text := stripFences(strings.TrimSpace(raw))

	var proposed query.Proposed
	if err := json.Unmarshal([]byte(text), &proposed); err != nil {
		return query.Proposed{}, fmt.Errorf("parse model output: %v: %w", err, domain.ErrInvalidTranslation)
	}

	switch proposed.Type {
	case query.TypeFind, query.TypeAggregate:
	default:
		return query.Proposed{}, fmt.Errorf("unknown query_type %q: %w", proposed.Type, domain.ErrInvalidTranslation)
	}
	if proposed.Collection == "" {
		return query.Proposed{}, fmt.Errorf("missing collection: %w", domain.ErrInvalidTranslation)
	}
	if proposed.Query.IsZero() {
		return query.Proposed{}, fmt.Errorf("missing query: %w", domain.ErrInvalidTranslation)
	}
	return proposed, nil
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrTranslatorError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrTranslatorError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("translation API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("translation API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("translation request failed: %w", wrap)
}
