package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/tradingzbotem/sparks/pkg/config"
	"github.com/tradingzbotem/sparks/pkg/domain"
)

// NewsReader is the store read path the synthesizer needs
type NewsReader interface {
	ListNews(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error)
}

// Synthesizer builds one structured brief per window from recent news
type Synthesizer struct {
	client   *openai.Client
	cfg      config.LLMConfig
	store    NewsReader
	maxItems int
	schema   *jsonschema.Definition
	now      func() time.Time
}

const synthesisSystemPrompt = `You are a financial news editor producing a short market brief for retail traders.
Given a digest of recent headlines, respond with a JSON object:
- window: the requested time window, unchanged
- bullets.what: 2-4 short bullets on what happened
- bullets.why: 2-4 short bullets on why it matters
- bullets.watch: 2-4 short bullets on what to monitor next
- extended: one compact paragraph expanding on the bullets
- disclaimer: a one-line informational disclaimer

Rules:
- One sentence per bullet, include names and numbers where the digest has them
- Neutral tone, no advice, no hype
- Cover only what the digest contains, never invent events
- All fields are required even when empty`

// briefPayload is the strict output schema for brief synthesis
type briefPayload struct {
	Window  string `json:"window"`
	Bullets struct {
		What  []string `json:"what"`
		Why   []string `json:"why"`
		Watch []string `json:"watch"`
	} `json:"bullets"`
	Extended   string `json:"extended"`
	Disclaimer string `json:"disclaimer"`
}

// NewSynthesizer creates a brief synthesizer. maxItems bounds the digest
// size per window.
func NewSynthesizer(cfg config.LLMConfig, store NewsReader, maxItems int) (*Synthesizer, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	schema, err := jsonschema.GenerateSchemaForType(briefPayload{})
	if err != nil {
		return nil, fmt.Errorf("generate brief schema: %w", err)
	}

	if maxItems <= 0 {
		maxItems = 60
	}

	return &Synthesizer{
		client:   openai.NewClientWithConfig(clientConfig),
		cfg:      cfg,
		store:    store,
		maxItems: maxItems,
		schema:   schema,
		now:      time.Now,
	}, nil
}

// BuildBrief synthesizes the brief for one window. An empty window yields the
// deterministic fallback brief without any backend call; a missing credential
// yields ErrNoCredential; backend or schema failures yield a SynthesisError.
func (s *Synthesizer) BuildBrief(ctx context.Context, window domain.Window) (*domain.Brief, error) {
	resp, err := s.store.ListNews(ctx, domain.ListRequest{Hours: window.Hours(), Limit: s.maxItems})
	if err != nil {
		return nil, &SynthesisError{Window: window, Err: fmt.Errorf("read window: %w", err)}
	}

	if len(resp.Items) == 0 {
		brief := domain.EmptyBrief(window, s.now().UTC())
		return &brief, nil
	}

	if s.cfg.APIKey == "" {
		return nil, ErrNoCredential
	}

	payload, err := s.complete(ctx, window, resp.Items)
	if err != nil {
		return nil, &SynthesisError{Window: window, Err: err}
	}

	generatedAt := s.now().UTC()
	brief := &domain.Brief{
		ID:          domain.NewBriefID(window, generatedAt),
		Window:      window,
		GeneratedAt: generatedAt,
		Bullets: domain.BriefBullets{
			What:  emptyIfNil(payload.Bullets.What),
			Why:   emptyIfNil(payload.Bullets.Why),
			Watch: emptyIfNil(payload.Bullets.Watch),
		},
		Extended:   payload.Extended,
		Disclaimer: domain.Disclaimer,
	}
	return brief, nil
}

// complete submits the digest and decodes the structured response
func (s *Synthesizer) complete(ctx context.Context, window domain.Window, items []domain.NewsItem) (*briefPayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: float32(s.cfg.Temperature),
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: s.buildDigest(window, items)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "market_brief",
				Schema: s.schema,
				Strict: true,
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(reqCtx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from llm")
	}

	return decodeBriefPayload(resp.Choices[0].Message.Content, window)
}

// buildDigest renders a compact digest of the window's items for the prompt
func (s *Synthesizer) buildDigest(window domain.Window, items []domain.NewsItem) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Window: %s\nHeadlines (%d, newest first):\n\n", window, len(items)))

	now := s.now()
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s", i+1, item.Source, item.Title))

		var tags []string
		if item.Category != "" {
			tags = append(tags, item.Category)
		}
		if item.Impact > 0 {
			tags = append(tags, fmt.Sprintf("impact %d/5", item.Impact))
		}
		tags = append(tags, recency(now.Sub(item.PublishedAt)))
		sb.WriteString(" (" + strings.Join(tags, ", ") + ")\n")
	}

	sb.WriteString("\nRespond with the market_brief JSON object.")
	return sb.String()
}

// decodeBriefPayload parses the LLM output and fails closed: missing required
// fields or malformed JSON surface as errors, never as partial briefs
func decodeBriefPayload(content string, window domain.Window) (*briefPayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse brief response: %w", err)
	}
	for _, field := range []string{"window", "bullets", "extended", "disclaimer"} {
		if _, ok := raw[field]; !ok {
			return nil, fmt.Errorf("brief response missing required field %q", field)
		}
	}

	var payload briefPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("decode brief response: %w", err)
	}
	if payload.Window != string(window) {
		return nil, fmt.Errorf("brief response for wrong window %q", payload.Window)
	}
	return &payload, nil
}

// recency renders a rough age marker for the digest
func recency(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "just in"
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
