package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradingzbotem/sparks/pkg/config"
	"github.com/tradingzbotem/sparks/pkg/domain"
)

// fakeReader serves canned items for any window
type fakeReader struct {
	items   []domain.NewsItem
	err     error
	lastReq domain.ListRequest
}

func (f *fakeReader) ListNews(_ context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return domain.ListResponse{}, f.err
	}
	return domain.ListResponse{Items: f.items}, nil
}

// chatServer fakes the chat completions endpoint, replying with content as the
// single choice's message
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Endpoint:    endpoint,
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   1000,
		Timeout:     5 * time.Second,
	}
}

func TestSynthesizer_BuildBrief(t *testing.T) {
	content := `{
		"window": "24h",
		"bullets": {
			"what": ["Fed held rates at 5.25%"],
			"why": ["markets expected the hold"],
			"watch": ["payrolls on friday"]
		},
		"extended": "A quiet session dominated by the Fed decision.",
		"disclaimer": "informational only"
	}`
	srv := chatServer(t, content)
	defer srv.Close()

	reader := &fakeReader{items: []domain.NewsItem{
		{Title: "Fed holds rates", URL: "https://a/1", Source: "reuters", PublishedAt: time.Now().Add(-time.Hour)},
	}}
	s, err := NewSynthesizer(testLLMConfig(srv.URL+"/v1"), reader, 60)
	require.NoError(t, err)

	brief, err := s.BuildBrief(context.Background(), domain.Window24h)
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, domain.Window24h, brief.Window)
	assert.Equal(t, []string{"Fed held rates at 5.25%"}, brief.Bullets.What)
	assert.Equal(t, "A quiet session dominated by the Fed decision.", brief.Extended)
	assert.Equal(t, domain.Disclaimer, brief.Disclaimer, "stored disclaimer is always ours")
	assert.NotEmpty(t, brief.ID)
	assert.False(t, brief.GeneratedAt.IsZero())

	assert.Equal(t, 24, reader.lastReq.Hours)
	assert.Equal(t, 60, reader.lastReq.Limit, "digest bounded by max items")
}

func TestSynthesizer_EmptyWindowFallback(t *testing.T) {
	// backend must not be called at all; any request fails the test
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected llm call for empty window")
	}))
	defer srv.Close()

	s, err := NewSynthesizer(testLLMConfig(srv.URL+"/v1"), &fakeReader{}, 60)
	require.NoError(t, err)

	brief, err := s.BuildBrief(context.Background(), domain.Window72h)
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Equal(t, domain.Window72h, brief.Window)
	assert.NotNil(t, brief.Bullets.What)
	assert.Empty(t, brief.Bullets.What)
	assert.Empty(t, brief.Bullets.Why)
	assert.Empty(t, brief.Bullets.Watch)
	assert.Equal(t, domain.Disclaimer, brief.Disclaimer)
}

func TestSynthesizer_NoCredential(t *testing.T) {
	cfg := testLLMConfig("")
	cfg.APIKey = ""

	reader := &fakeReader{items: []domain.NewsItem{{Title: "something", URL: "https://a/1"}}}
	s, err := NewSynthesizer(cfg, reader, 60)
	require.NoError(t, err)

	brief, err := s.BuildBrief(context.Background(), domain.Window24h)
	assert.Nil(t, brief)
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestSynthesizer_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"window": "24h"`},
		{"missing bullets", `{"window": "24h", "extended": "x", "disclaimer": "y"}`},
		{"missing disclaimer", `{"window": "24h", "bullets": {"what": [], "why": [], "watch": []}, "extended": "x"}`},
		{"wrong window", `{"window": "48h", "bullets": {"what": [], "why": [], "watch": []}, "extended": "x", "disclaimer": "y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.content)
			defer srv.Close()

			reader := &fakeReader{items: []domain.NewsItem{{Title: "something", URL: "https://a/1"}}}
			s, err := NewSynthesizer(testLLMConfig(srv.URL+"/v1"), reader, 60)
			require.NoError(t, err)

			brief, err := s.BuildBrief(context.Background(), domain.Window24h)
			assert.Nil(t, brief, "schema violation never yields a partial brief")

			var synthErr *SynthesisError
			require.ErrorAs(t, err, &synthErr)
			assert.Equal(t, domain.Window24h, synthErr.Window)
		})
	}
}

func TestSynthesizer_BackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	reader := &fakeReader{items: []domain.NewsItem{{Title: "something", URL: "https://a/1"}}}
	s, err := NewSynthesizer(testLLMConfig(srv.URL+"/v1"), reader, 60)
	require.NoError(t, err)

	_, err = s.BuildBrief(context.Background(), domain.Window24h)
	var synthErr *SynthesisError
	assert.ErrorAs(t, err, &synthErr)
}

func TestSynthesizer_StoreFailure(t *testing.T) {
	reader := &fakeReader{err: fmt.Errorf("disk on fire")}
	s, err := NewSynthesizer(testLLMConfig(""), reader, 60)
	require.NoError(t, err)

	_, err = s.BuildBrief(context.Background(), domain.Window24h)
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.False(t, errors.Is(err, ErrNoCredential))
}

func TestSynthesizer_ThinPayloadAccepted(t *testing.T) {
	// schema-valid but empty output is stored as-is, not rejected
	content := `{"window": "48h", "bullets": {"what": [], "why": [], "watch": []}, "extended": "", "disclaimer": ""}`
	srv := chatServer(t, content)
	defer srv.Close()

	reader := &fakeReader{items: []domain.NewsItem{{Title: "something", URL: "https://a/1"}}}
	s, err := NewSynthesizer(testLLMConfig(srv.URL+"/v1"), reader, 60)
	require.NoError(t, err)

	brief, err := s.BuildBrief(context.Background(), domain.Window48h)
	require.NoError(t, err)
	require.NotNil(t, brief)
	assert.Empty(t, brief.Bullets.What)
	assert.NotNil(t, brief.Bullets.What)
}

func TestBuildDigest(t *testing.T) {
	s, err := NewSynthesizer(testLLMConfig(""), &fakeReader{}, 60)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	items := []domain.NewsItem{
		{Title: "Fed holds rates", Source: "reuters", Category: "macro", Impact: 5,
			PublishedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
		{Title: "Oil slips", Source: "bloomberg",
			PublishedAt: time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)},
	}
	digest := s.buildDigest(domain.Window24h, items)

	assert.Contains(t, digest, "Window: 24h")
	assert.Contains(t, digest, "1. [reuters] Fed holds rates (macro, impact 5/5, 3h ago)")
	assert.Contains(t, digest, "2. [bloomberg] Oil slips (2d ago)")
}
