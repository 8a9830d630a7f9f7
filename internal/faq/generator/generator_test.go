package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railzwaylabs/shopfaq/internal/config"
	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func sampleProduct() domain.Product {
	return domain.Product{
		ID:          "gid://shopify/Product/1",
		Title:       "Trail Runner",
		Description: "<p>Light   shoe\nfor <b>trails</b></p>",
		ProductType: "Shoes",
		Vendor:      "Acme",
		Tags:        []string{"running", "outdoor"},
		Variants: []domain.Variant{
			{Title: "US 9", Price: "120.00", SKU: "TR-9", Weight: "300", InventoryQuantity: intPtr(4)},
		},
		Options:    []domain.Option{{Name: "Size", Values: []string{"9", "10"}}},
		Metafields: []domain.Metafield{{Namespace: "custom", Key: "material", Value: "mesh"}, {Namespace: "custom", Key: "empty"}},
		Reviews: []domain.Review{
			{Body: "Great grip", Rating: 5},
			{Body: "b", Rating: 4}, {Body: "c", Rating: 4}, {Body: "d", Rating: 3}, {Body: "e", Rating: 2},
			{Body: "sixth", Rating: 1},
		},
	}
}

func TestBuildPrompt_ProductContext(t *testing.T) {
	p := BuildPrompt(sampleProduct(), 7)

	assert.True(t, strings.HasPrefix(p.User, "Based on the following product data, generate exactly 7 frequently asked questions"))
	assert.Contains(t, p.User, "Product Title: Trail Runner")
	assert.Contains(t, p.User, "Description: Light shoe for trails")
	assert.Contains(t, p.User, "Tags: running, outdoor")
	assert.Contains(t, p.User, "  - US 9 | Price: $120.00 | SKU: TR-9 | Weight: 300g | Stock: 4")
	assert.Contains(t, p.User, "  Size: 9, 10")
	assert.Contains(t, p.User, "  custom.material: mesh")
	assert.NotContains(t, p.User, "custom.empty")
	assert.Contains(t, p.User, `  - "Great grip" (Rating: 5/5)`)
	assert.NotContains(t, p.User, "sixth")
	assert.Contains(t, p.System, "Always respond with valid JSON only")
}

func TestParseQAs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		count   int
		want    int
		wantErr bool
	}{
		{name: "array", content: `[{"question":"Q1?","answer":"A1"},{"question":"Q2?","answer":"A2"}]`, count: 5, want: 2},
		{name: "wrapped faqs", content: `{"faqs":[{"question":"Q1?","answer":"A1"}]}`, count: 5, want: 1},
		{name: "wrapped other key", content: `{"items":[{"question":"Q1?","answer":"A1"}]}`, count: 5, want: 1},
		{name: "embedded in prose", content: "Here you go:\n[{\"question\":\"Q1?\",\"answer\":\"A1\"}]\nThanks", count: 5, want: 1},
		{name: "truncated to count", content: `[{"question":"Q1?","answer":"A1"},{"question":"Q2?","answer":"A2"}]`, count: 1, want: 1},
		{name: "blank entries dropped", content: `[{"question":" ","answer":"A1"},{"question":"Q2?","answer":"A2"}]`, count: 5, want: 1},
		{name: "no json", content: "sorry", count: 5, wantErr: true},
		{name: "empty array", content: "[]", count: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qas, err := ParseQAs(tt.content, tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrGeneratorInvalidOutput)
				return
			}
			require.NoError(t, err)
			assert.Len(t, qas, tt.want)
		})
	}
}

type capturedRequest struct {
	Model          string          `json:"model"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat json.RawMessage `json:"response_format"`
}

func chatServer(t *testing.T, status int, body string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	raw, _ := json.Marshal(content)
	return `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + string(raw) + `},"finish_reason":"stop"}]}`
}

func TestChat_GenerateOpenAI(t *testing.T) {
	var seen capturedRequest
	srv := chatServer(t, http.StatusOK, completion(`{"faqs":[{"question":"Is it waterproof?","answer":"Not stated."}]}`), &seen)

	f := NewFactory(config.Config{AI: config.AIConfig{OpenAIBaseURL: srv.URL, RequestTimeout: time.Second}})
	gen, err := f.NewGenerator(settingsdomain.ProviderOpenAI, "sk-test", "")
	require.NoError(t, err)

	qas, err := gen.Generate(context.Background(), sampleProduct(), 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.QA{{Question: "Is it waterproof?", Answer: "Not stated."}}, qas)

	assert.Equal(t, "gpt-4o", seen.Model)
	assert.InDelta(t, 0.7, seen.Temperature, 0.001)
	assert.Equal(t, 2000, seen.MaxTokens)
	assert.Contains(t, string(seen.ResponseFormat), "json_object")
}

func TestChat_GenerateAnthropicWithoutJSONMode(t *testing.T) {
	var seen capturedRequest
	srv := chatServer(t, http.StatusOK, completion("Sure:\n[{\"question\":\"Q?\",\"answer\":\"A.\"}]"), &seen)

	f := NewFactory(config.Config{AI: config.AIConfig{AnthropicBaseURL: srv.URL, RequestTimeout: time.Second}})
	gen, err := f.NewGenerator(settingsdomain.ProviderAnthropic, "sk-test", "claude-3-5-haiku-20241022")
	require.NoError(t, err)

	qas, err := gen.Generate(context.Background(), sampleProduct(), 5)
	require.NoError(t, err)
	assert.Len(t, qas, 1)
	assert.Equal(t, "claude-3-5-haiku-20241022", seen.Model)
	assert.Empty(t, seen.ResponseFormat)
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: domain.ErrGeneratorAuth},
		{name: "rate limited", status: http.StatusTooManyRequests, want: domain.ErrGeneratorRateLimited},
		{name: "bad request", status: http.StatusBadRequest, want: domain.ErrGeneratorRequestRejected},
		{name: "server error", status: http.StatusInternalServerError, want: domain.ErrGeneratorUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, `{"error":{"message":"nope","type":"error"}}`, nil)
			gen := NewChat(ChatOptions{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o", Timeout: time.Second})

			_, err := gen.Generate(context.Background(), sampleProduct(), 3)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestChat_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gen := NewChat(ChatOptions{APIKey: "sk-test", BaseURL: url, Model: "gpt-4o", Timeout: time.Second})
	_, err := gen.Generate(context.Background(), sampleProduct(), 3)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

func TestFactory_Validation(t *testing.T) {
	f := NewFactory(config.Config{})

	_, err := f.NewGenerator(settingsdomain.ProviderOpenAI, " ", "")
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)

	_, err = f.NewGenerator(settingsdomain.AIProvider("cohere"), "sk", "")
	assert.ErrorIs(t, err, settingsdomain.ErrInvalidProvider)
}
