package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultMistralAPIURL    = "https://api.mistral.ai/v1/chat/completions"
	defaultMistralModelName = "mistral-large-latest"
)

// --- Mistral chat completions 请求/响应结构（OpenAI兼容） ---

type MistralToolFunctionParamsProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type MistralToolFunctionParams struct {
	Type       string                                       `json:"type"` // 通常为 "object"
	Properties map[string]MistralToolFunctionParamsProperty `json:"properties"`
	Required   []string                                     `json:"required,omitempty"`
}

type MistralFunction struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Parameters  MistralToolFunctionParams `json:"parameters"`
}

type MistralTool struct {
	Type     string          `json:"type"` // 必须为 "function"
	Function MistralFunction `json:"function"`
}

type MistralChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"` // eino schema.Message 的 role/content 序列化与API兼容
	Temperature *float32          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Tools       []MistralTool     `json:"tools,omitempty"`
}

type MistralMessage struct {
	Role      string                `json:"role"`
	Content   *string               `json:"content"` // 有 tool_calls 时可能为 null
	ToolCalls []MistralToolCallData `json:"tool_calls,omitempty"`
}

type MistralToolCallData struct {
	Id       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type MistralChatChoice struct {
	Index        int            `json:"index"`
	Message      MistralMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type MistralCompletionResponse struct {
	Id      string              `json:"id"`
	Object  string              `json:"object"`
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []MistralChatChoice `json:"choices"`
}

// MistralChatModel 实现了 model.ToolCallingChatModel 接口，
// 用于与 Mistral chat completions API 交互。
type MistralChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	boundTools []MistralTool
}

// NewMistralChatModel 创建一个新的 MistralChatModel 实例。
func NewMistralChatModel(apiKey string, modelName string, apiURL string) (*MistralChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultMistralModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultMistralAPIURL
	}

	log.Printf("使用 Mistral LLM 客户端，API URL: %s, 模型: %s", url, mn)

	return &MistralChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		boundTools: make([]MistralTool, 0),
	}, nil
}

// Generate 实现 model.ChatModel 接口
func (mc *MistralChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	// 从调用选项中解析温度、token上限和模型覆盖
	commonOpts := model.GetCommonOptions(&model.Options{}, options...)

	modelName := mc.modelName
	if commonOpts.Model != nil && *commonOpts.Model != "" {
		modelName = *commonOpts.Model
	}

	reqPayload := MistralChatCompletionRequest{
		Model:       modelName,
		Messages:    messages,
		Temperature: commonOpts.Temperature,
		MaxTokens:   commonOpts.MaxTokens,
	}

	if len(mc.boundTools) > 0 {
		reqPayload.Tools = mc.boundTools
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, mc.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+mc.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := mc.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		// 保留状态码，上层的限流代理依赖它识别 429 并退避重试
		return nil, fmt.Errorf("mistral API 请求失败，status %d: %s", httpResp.StatusCode, string(bodyBytes))
	}

	var apiResp MistralCompletionResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w。响应体: %s", err, string(bodyBytes))
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", string(bodyBytes))
	}

	apiMessage := apiResp.Choices[0].Message
	responseContent := ""
	if apiMessage.Content != nil {
		responseContent = *apiMessage.Content
	}

	resultMessage := &schema.Message{
		Role:    schema.RoleType(apiMessage.Role),
		Content: responseContent,
	}

	if len(apiMessage.ToolCalls) > 0 {
		resultMessage.ToolCalls = make([]schema.ToolCall, len(apiMessage.ToolCalls))
		for i, tc := range apiMessage.ToolCalls {
			resultMessage.ToolCalls[i] = schema.ToolCall{
				ID: tc.Id,
				Function: schema.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	if resultMessage.Role == "" {
		resultMessage.Role = schema.Assistant
	}

	return resultMessage, nil
}

// Stream 实现 model.ChatModel 接口。分析和邮件流水线都是整段生成，暂不需要流式输出。
func (mc *MistralChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("MistralChatModel 的 Stream 方法未实现")
}

// BindTools 实现工具绑定。
// schema.ParamsOneOf 无法从外部导出参数明细，这里只传递工具名称和描述，
// 参数 schema 统一为一个空 object。
func (mc *MistralChatModel) BindTools(tools []*schema.ToolInfo) error {
	mc.boundTools = make([]MistralTool, 0, len(tools))
	for _, toolInfo := range tools {
		if toolInfo == nil {
			continue
		}
		mc.boundTools = append(mc.boundTools, MistralTool{
			Type: "function",
			Function: MistralFunction{
				Name:        toolInfo.Name,
				Description: toolInfo.Desc,
				Parameters: MistralToolFunctionParams{
					Type:       "object",
					Properties: map[string]MistralToolFunctionParamsProperty{},
				},
			},
		})
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (mc *MistralChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := mc.BindTools(tools); err != nil {
		return nil, err
	}
	return mc, nil
}

// WithHTTPClient 覆盖默认的HTTP客户端，测试时指向httptest服务器
func (mc *MistralChatModel) WithHTTPClient(client *http.Client) *MistralChatModel {
	if client != nil {
		mc.httpClient = client
	}
	return mc
}

var _ model.ChatModel = (*MistralChatModel)(nil)
var _ model.ToolCallingChatModel = (*MistralChatModel)(nil)
