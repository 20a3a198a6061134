package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"career-agent-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMistralEmbedder_EmbedStrings(t *testing.T) {
	var gotReq mistralEmbeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		vec1 := make([]float64, 1024)
		vec2 := make([]float64, 1024)
		vec1[0], vec2[0] = 0.1, 0.2

		// 故意乱序返回，验证按index归位
		resp := mistralEmbeddingResponse{
			Object: "list",
			Model:  "mistral-embed",
			Data: []mistralDataEntry{
				{Object: "embedding", Embedding: vec2, Index: 1},
				{Object: "embedding", Embedding: vec1, Index: 0},
			},
			Usage: mistralEmbeddingUsage{PromptTokens: 8, TotalTokens: 8},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb, err := NewMistralEmbedder("test-key", config.EmbeddingConfig{
		Model:      "mistral-embed",
		Dimensions: 1024,
		BaseURL:    server.URL,
	})
	require.NoError(t, err, "应该成功创建Embedder")

	vectors, err := emb.EmbedStrings(context.Background(), []string{"数据科学家", "product manager"})
	require.NoError(t, err, "embedding调用应成功")
	require.Len(t, vectors, 2, "应返回两个向量")

	assert.Equal(t, "mistral-embed", gotReq.Model, "请求应携带配置的模型名")
	assert.Equal(t, []string{"数据科学家", "product manager"}, gotReq.Input, "请求应携带原始文本")
	assert.InDelta(t, 0.1, vectors[0][0], 1e-9, "第一条向量应按index归位")
	assert.InDelta(t, 0.2, vectors[1][0], 1e-9, "第二条向量应按index归位")
}

func TestMistralEmbedder_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := mistralEmbeddingResponse{
			Data: []mistralDataEntry{
				{Embedding: make([]float64, 512), Index: 0},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	emb, err := NewMistralEmbedder("test-key", config.EmbeddingConfig{Dimensions: 1024, BaseURL: server.URL})
	require.NoError(t, err)

	_, err = emb.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err, "维度不匹配应报错")
	assert.Contains(t, err.Error(), "维度")
}

func TestMistralEmbedder_EmptyInput(t *testing.T) {
	emb, err := NewMistralEmbedder("test-key", config.EmbeddingConfig{})
	require.NoError(t, err)

	vectors, err := emb.EmbedStrings(context.Background(), nil)
	require.NoError(t, err, "空输入不应报错")
	assert.Empty(t, vectors, "空输入应返回空结果")
}

func TestMistralEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Unauthorized", "type": "invalid_request_error"}`))
	}))
	defer server.Close()

	emb, err := NewMistralEmbedder("bad-key", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = emb.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err, "API错误应向上传递")
	assert.Contains(t, err.Error(), "401", "错误信息应包含状态码")
}
