package guidance_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"career-agent-go/internal/config"
	"career-agent-go/internal/guidance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpAPIClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"organic_results": [
				{"title": "Salary Report 2025", "link": "https://example.com/a", "snippet": "median salary rose 5%"},
				{"title": "Job Outlook", "link": "https://example.com/b", "snippet": "demand remains strong"}
			]
		}`))
	}))
	defer server.Close()

	client, err := guidance.NewSerpAPIClient(&config.SerpAPIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxResults: 5,
	}, nil)
	require.NoError(t, err)

	text, err := client.Search(context.Background(), "data science salary")
	require.NoError(t, err)
	assert.Contains(t, text, "Salary Report 2025: median salary rose 5%")
	assert.Contains(t, text, "Job Outlook: demand remains strong")
}

func TestSerpAPIClient_MaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results": [
			{"title": "A", "snippet": "1"},
			{"title": "B", "snippet": "2"},
			{"title": "C", "snippet": "3"}
		]}`))
	}))
	defer server.Close()

	client, err := guidance.NewSerpAPIClient(&config.SerpAPIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxResults: 2,
	}, nil)
	require.NoError(t, err)

	text, err := client.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Contains(t, text, "A: 1")
	assert.Contains(t, text, "B: 2")
	assert.NotContains(t, text, "C: 3", "超出maxResults的结果应被丢弃")
}

func TestSerpAPIClient_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Invalid API key"}`))
	}))
	defer server.Close()

	client, err := guidance.NewSerpAPIClient(&config.SerpAPIConfig{
		APIKey:  "bad-key",
		BaseURL: server.URL,
	}, nil)
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestNewSerpAPIClient_RequiresKey(t *testing.T) {
	_, err := guidance.NewSerpAPIClient(&config.SerpAPIConfig{}, nil)
	require.Error(t, err, "缺少API密钥时应报错")
}
