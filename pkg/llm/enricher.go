package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/tradingzbotem/sparks/pkg/config"
	"github.com/tradingzbotem/sparks/pkg/domain"
)

// Enricher assigns category/impact/sentiment/instrument metadata to raw
// headlines in batches
type Enricher struct {
	client *openai.Client
	cfg    config.LLMConfig
	schema *jsonschema.Definition
}

const enrichSystemPrompt = `You are a financial news tagger. For each headline, respond with:
- url: the headline's URL, unchanged
- category: one of macro, equities, fx, commodities, crypto, rates, other
- impact: market impact 1-5 (5 = moves broad markets)
- sentiment: positive, negative or neutral for the affected assets
- instruments: 0-4 ticker-like symbols the headline concerns (e.g. SPX, EURUSD, NVDA)

Tag every headline you are given, even low-impact ones.`

// enrichPayload is the strict output schema for a batch of enrichments
type enrichPayload struct {
	Items []struct {
		URL         string   `json:"url"`
		Category    string   `json:"category"`
		Impact      int      `json:"impact"`
		Sentiment   string   `json:"sentiment"`
		Instruments []string `json:"instruments"`
	} `json:"items"`
}

// NewEnricher creates an enricher for the configured LLM backend
func NewEnricher(cfg config.LLMConfig) (*Enricher, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	schema, err := jsonschema.GenerateSchemaForType(enrichPayload{})
	if err != nil {
		return nil, fmt.Errorf("generate enrich schema: %w", err)
	}

	return &Enricher{client: openai.NewClientWithConfig(clientConfig), cfg: cfg, schema: schema}, nil
}

// Enrich tags the given items and returns enrichments keyed by URL. Unknown
// URLs in the response are dropped, impact is clamped to 1-5 and sentiment is
// normalized. Returns ErrNoCredential when no API key is configured.
func (e *Enricher) Enrich(ctx context.Context, items []domain.NewsItem) (map[string]domain.Enrichment, error) {
	if len(items) == 0 {
		return map[string]domain.Enrichment{}, nil
	}
	if e.cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: float32(e.cfg.Temperature),
		MaxTokens:   e.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enrichSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: e.buildPrompt(items)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "headline_tags",
				Schema: e.schema,
				Strict: true,
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(reqCtx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from llm")
	}

	return e.parseResponse(resp.Choices[0].Message.Content, items)
}

// buildPrompt lists the headlines to tag
func (e *Enricher) buildPrompt(items []domain.NewsItem) string {
	var sb strings.Builder
	sb.WriteString("Tag these headlines:\n\n")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. URL: %s\n   Title: %s\n", i+1, item.URL, item.Title))
		if item.Summary != "" {
			sb.WriteString(fmt.Sprintf("   Summary: %s\n", truncate(item.Summary, 300)))
		}
	}
	sb.WriteString("\nRespond with the headline_tags JSON object.")
	return sb.String()
}

// parseResponse validates the batch against the submitted items
func (e *Enricher) parseResponse(content string, items []domain.NewsItem) (map[string]domain.Enrichment, error) {
	payload, err := decodeEnrichPayload(content)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.URL] = true
	}

	result := make(map[string]domain.Enrichment, len(payload.Items))
	for _, tag := range payload.Items {
		if !known[tag.URL] {
			continue
		}
		impact := tag.Impact
		if impact < 1 {
			impact = 1
		} else if impact > 5 {
			impact = 5
		}
		result[tag.URL] = domain.Enrichment{
			Category:    strings.ToLower(strings.TrimSpace(tag.Category)),
			Impact:      impact,
			Sentiment:   normalizeSentiment(tag.Sentiment),
			Instruments: tag.Instruments,
		}
	}
	return result, nil
}

// decodeEnrichPayload parses the LLM output, failing closed on bad JSON
func decodeEnrichPayload(content string) (*enrichPayload, error) {
	var payload enrichPayload
	if err := unmarshalStrict(content, &payload); err != nil {
		return nil, fmt.Errorf("decode enrich response: %w", err)
	}
	if payload.Items == nil {
		return nil, fmt.Errorf("enrich response missing items")
	}
	return &payload, nil
}

// unmarshalStrict decodes JSON and rejects unknown top-level fields
func unmarshalStrict(content string, v any) error {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func normalizeSentiment(s string) domain.Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return domain.SentimentPositive
	case "negative":
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
