package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"career-agent-go/internal/config"

	"github.com/cloudwego/eino/components/embedding"
)

// MistralEmbedder 实现 cloudwego/eino 的 embedding.Embedder 接口，
// 调用 Mistral /v1/embeddings 接口生成1024维向量。
type MistralEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewMistralEmbedder 创建新的Mistral Embedder
func NewMistralEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig) (*MistralEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = "mistral-embed"
	}
	dimensions := embeddingCfg.Dimensions
	if dimensions <= 0 {
		dimensions = 1024 // mistral-embed 固定输出维度
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1/embeddings"
	}

	return &MistralEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		logger:     log.New(os.Stderr, "[MistralEmbedder] ", log.LstdFlags|log.Lshortfile),
	}, nil
}

// GetDimensions 返回嵌入器配置的维度
func (m *MistralEmbedder) GetDimensions() int {
	return m.dimensions
}

// WithHTTPClient 覆盖默认的HTTP客户端，测试时指向httptest服务器
func (m *MistralEmbedder) WithHTTPClient(client *http.Client) *MistralEmbedder {
	if client != nil {
		m.httpClient = client
	}
	return m
}

// mistralEmbeddingRequest Mistral Embedding请求结构 (OpenAI compatible)
type mistralEmbeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// mistralEmbeddingResponse Mistral Embedding响应结构 (OpenAI compatible)
type mistralEmbeddingResponse struct {
	Object string               `json:"object"`
	Data   []mistralDataEntry   `json:"data"`
	Model  string               `json:"model"`
	Usage  mistralEmbeddingUsage `json:"usage"`
	ID     string               `json:"id,omitempty"`
	Error  *mistralAPIError     `json:"error,omitempty"`
}

type mistralDataEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type mistralEmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// mistralAPIError API级别的错误，可能随 200 OK 一起返回
type mistralAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// EmbedStrings 将文本转换为向量，实现 embedding.Embedder 接口
func (m *MistralEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	options := &embedding.Options{}
	embedding.GetCommonOptions(options, opts...)

	effectiveModel := m.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	reqBody := mistralEmbeddingRequest{
		Input: texts,
		Model: effectiveModel,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiError mistralAPIError
		detailedError := fmt.Errorf("embedding API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
		if json.Unmarshal(body, &apiError) == nil && apiError.Message != "" {
			detailedError = fmt.Errorf("embedding API调用失败, 状态码: %d, 类型: %s, 错误: %s", resp.StatusCode, apiError.Type, apiError.Message)
		}
		m.logger.Printf("API call failed: %v", detailedError)
		return nil, detailedError
	}

	var parsedResp mistralEmbeddingResponse
	if err := json.Unmarshal(body, &parsedResp); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w. Body: %s", err, string(body))
	}

	if parsedResp.Error != nil && parsedResp.Error.Message != "" {
		return nil, fmt.Errorf("embedding API返回错误: 类型=%s, 消息='%s'", parsedResp.Error.Type, parsedResp.Error.Message)
	}

	if len(parsedResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding响应条数(%d)与输入条数(%d)不一致", len(parsedResp.Data), len(texts))
	}

	// API 不保证返回顺序，按 index 归位
	outputEmbeddings := make([][]float64, len(parsedResp.Data))
	for _, entry := range parsedResp.Data {
		if entry.Index < 0 || entry.Index >= len(outputEmbeddings) {
			return nil, fmt.Errorf("embedding响应包含越界的index: %d", entry.Index)
		}
		if m.dimensions > 0 && len(entry.Embedding) != m.dimensions {
			return nil, fmt.Errorf("embedding维度(%d)与配置维度(%d)不匹配", len(entry.Embedding), m.dimensions)
		}
		outputEmbeddings[entry.Index] = entry.Embedding
	}

	m.logger.Printf("Successfully embedded %d texts. Prompt tokens: %d, Total tokens: %d",
		len(texts), parsedResp.Usage.PromptTokens, parsedResp.Usage.TotalTokens)

	return outputEmbeddings, nil
}

var _ embedding.Embedder = (*MistralEmbedder)(nil)
