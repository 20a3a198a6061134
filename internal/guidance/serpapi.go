package guidance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
)

// WebSearcher 外部网页搜索能力，用于给分析提示词补充实时市场信息
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SerpAPIClient 基于SerpAPI的搜索客户端，结果经Redis缓存去重请求
type SerpAPIClient struct {
	apiKey     string
	baseURL    string
	engine     string
	maxResults int
	httpClient *http.Client
	cache      *storage.Redis
}

var _ WebSearcher = (*SerpAPIClient)(nil)

// NewSerpAPIClient 创建SerpAPI客户端。cache可以为nil，此时每次都发起真实请求。
func NewSerpAPIClient(cfg *config.SerpAPIConfig, cache *storage.Redis) (*SerpAPIClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("SerpAPI密钥未配置")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://serpapi.com/search"
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "google"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SerpAPIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		engine:     engine,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}, nil
}

// WithHTTPClient 替换底层HTTP客户端，测试时指向httptest服务
func (s *SerpAPIClient) WithHTTPClient(client *http.Client) *SerpAPIClient {
	s.httpClient = client
	return s
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

// Search 搜索并返回标题+摘要拼接的文本。
// 命中缓存时不发起请求；搜索失败不应阻断分析，由调用方降级处理。
func (s *SerpAPIClient) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("搜索查询不能为空")
	}

	if s.cache != nil {
		if cached, err := s.cache.GetSearchText(ctx, query); err == nil {
			return cached, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Msg("读取搜索缓存失败，回落到真实请求")
		}
	}

	params := url.Values{}
	params.Set("engine", s.engine)
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", fmt.Sprintf("%d", s.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("创建搜索请求失败: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("搜索请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取搜索响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("搜索请求失败，status %d: %s", resp.StatusCode, truncateForLog(string(body), 200))
	}

	var result serpAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析搜索响应失败: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("搜索服务返回错误: %s", result.Error)
	}

	var sb strings.Builder
	count := 0
	for _, item := range result.OrganicResults {
		if count >= s.maxResults {
			break
		}
		if item.Title == "" && item.Snippet == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", item.Title, item.Snippet))
		count++
	}
	text := sb.String()

	if s.cache != nil && text != "" {
		if err := s.cache.CacheSearchText(ctx, query, text); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("写入搜索缓存失败")
		}
	}
	return text, nil
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
