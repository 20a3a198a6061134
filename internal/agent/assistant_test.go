package agent_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/config"
	"career-agent-go/internal/types"
	pkgagent "career-agent-go/pkg/agent"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatConfig() *config.ChatConfig {
	return &config.ChatConfig{
		ModelName:        "mistral-small-latest",
		Temperature:      0.3,
		MaxTokens:        1800,
		ReplyTimeout:     "30s",
		HistoryWindow:    10,
		PromptTurns:      6,
		TurnTruncateRune: 200,
		SectionTruncate:  1500,
	}
}

func testAnalysis() *types.CareerAnalysis {
	return &types.CareerAnalysis{
		Career:           "Data Scientist",
		ExperienceLevel:  "beginner",
		Overview:         "Data scientists extract insight from data.",
		MarketAnalysis:   "Salaries range widely across industries.",
		LearningRoadmap:  "Start with Python, then statistics.",
		IndustryInsights: "Teams value curiosity and communication.",
		GeneratedAt:      time.Now(),
	}
}

func TestRouteContextSections(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     []string
	}{
		{"默认概览", "tell me more about this career", []string{"overview"}},
		{"单小节·薪资", "How much salary can I expect?", []string{"market_analysis"}},
		{"单小节·中文薪资", "这个岗位的薪资水平怎么样", []string{"market_analysis"}},
		{"多小节命中", "Is the salary good and which courses should I study?", []string{"market_analysis", "learning_roadmap"}},
		{"what同时命中概览", "What does the job market look like?", []string{"overview", "market_analysis"}},
		{"行业氛围", "工作压力大吗，加班多不多", []string{"industry_insights"}},
		{"大小写不敏感", "SALARY TRENDS?", []string{"market_analysis"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, agent.RouteContextSections(tc.question))
		})
	}
}

func TestReply_InjectsRoutedSections(t *testing.T) {
	mock := pkgagent.NewMockChatClient("Expect $90k to start in most tech hubs.", nil)
	assistant, err := agent.NewCareerAssistant(mock, nil, chatConfig())
	require.NoError(t, err)

	answer, err := assistant.Reply(context.Background(), "s1", "Data Scientist", testAnalysis(),
		"What salary should I negotiate?")
	require.NoError(t, err)
	assert.Equal(t, "Expect $90k to start in most tech hubs.", answer)

	received := mock.GetReceivedMessages()
	require.NotEmpty(t, received)
	systemPrompt := received[0].Content
	assert.Equal(t, schema.System, received[0].Role)
	assert.Contains(t, systemPrompt, "Data Scientist", "系统提示词应包含职业名")
	assert.Contains(t, systemPrompt, "Career Overview", "what应命中概览小节")
	assert.Contains(t, systemPrompt, "Market Analysis", "salary应命中市场小节")
	assert.Contains(t, systemPrompt, "Salaries range widely", "命中小节的内容应拼入提示词")
	assert.NotContains(t, systemPrompt, "Start with Python", "未命中的小节不应拼入")
}

func TestReply_SectionTruncation(t *testing.T) {
	cfg := chatConfig()
	cfg.SectionTruncate = 50
	analysis := testAnalysis()
	analysis.MarketAnalysis = strings.Repeat("x", 300)

	mock := pkgagent.NewMockChatClient("ok", nil)
	assistant, err := agent.NewCareerAssistant(mock, nil, cfg)
	require.NoError(t, err)

	_, err = assistant.Reply(context.Background(), "s1", "Data Scientist", analysis, "How is the salary?")
	require.NoError(t, err)

	systemPrompt := mock.GetReceivedMessages()[0].Content
	assert.Contains(t, systemPrompt, strings.Repeat("x", 50)+"...", "小节内容应按配置截断")
	assert.NotContains(t, systemPrompt, strings.Repeat("x", 51), "截断后不应残留超长内容")
}

func TestReply_WithoutAnalysis(t *testing.T) {
	mock := pkgagent.NewMockChatClient("Generalist answer.", nil)
	assistant, err := agent.NewCareerAssistant(mock, nil, chatConfig())
	require.NoError(t, err)

	answer, err := assistant.Reply(context.Background(), "s1", "Data Scientist", nil, "What is the salary?")
	require.NoError(t, err)
	assert.Equal(t, "Generalist answer.", answer)

	systemPrompt := mock.GetReceivedMessages()[0].Content
	assert.NotContains(t, systemPrompt, "Market Analysis", "没有分析时提示词不应有小节标题")
}

func TestReply_HistoryWindowing(t *testing.T) {
	cfg := chatConfig()
	responses := make([]pkgagent.MockResponse, 0, 8)
	for i := 0; i < 8; i++ {
		responses = append(responses, pkgagent.MockResponse{Content: fmt.Sprintf("answer %d", i)})
	}
	mock := pkgagent.NewMockChatClientSequential(responses)
	assistant, err := agent.NewCareerAssistant(mock, nil, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := assistant.Reply(ctx, "s1", "Data Scientist", nil, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	// 第8轮时历史已超过窗口：提示词 = 1条system + 最近6条历史 + 当前问题
	_, err = assistant.Reply(ctx, "s1", "Data Scientist", nil, "question 7")
	require.NoError(t, err)

	// mock记录的是所有调用的消息，取最后一条system消息之后的批次即最后一轮的提示词
	received := mock.GetReceivedMessages()
	lastSystem := -1
	for i, m := range received {
		if m.Role == schema.System {
			lastSystem = i
		}
	}
	require.GreaterOrEqual(t, lastSystem, 0)
	lastPrompt := received[lastSystem:]

	require.Len(t, lastPrompt, 1+cfg.PromptTurns+1, "提示词应为system+最近6条历史+当前问题")
	assert.Equal(t, "question 7", lastPrompt[len(lastPrompt)-1].Content)

	joined := make([]string, 0, len(lastPrompt))
	for _, m := range lastPrompt[1 : len(lastPrompt)-1] {
		joined = append(joined, m.Content)
	}
	assert.NotContains(t, joined, "question 0", "最早的消息应滑出提示词窗口")
}

func TestReply_StoredHistoryCapped(t *testing.T) {
	cfg := chatConfig()
	responses := make([]pkgagent.MockResponse, 0, 15)
	for i := 0; i < 15; i++ {
		responses = append(responses, pkgagent.MockResponse{Content: fmt.Sprintf("answer %d", i)})
	}
	mock := pkgagent.NewMockChatClientSequential(responses)
	assistant, err := agent.NewCareerAssistant(mock, nil, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 15; i++ {
		_, err := assistant.Reply(ctx, "s1", "Data Scientist", nil, fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	turns, err := assistant.History("s1")
	require.NoError(t, err)
	require.Len(t, turns, cfg.HistoryWindow, "存储的历史应收敛到historyWindow条消息")
	assert.Equal(t, "question 10", turns[0].Content, "最早的消息应被淘汰")
	assert.Equal(t, "answer 14", turns[len(turns)-1].Content)
}

func TestReply_TurnTruncation(t *testing.T) {
	cfg := chatConfig()
	cfg.TurnTruncateRune = 20
	longAnswer := strings.Repeat("y", 100)
	mock := pkgagent.NewMockChatClientSequential([]pkgagent.MockResponse{
		{Content: longAnswer},
		{Content: "short"},
	})
	assistant, err := agent.NewCareerAssistant(mock, nil, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = assistant.Reply(ctx, "s1", "Data Scientist", nil, "first question")
	require.NoError(t, err)
	_, err = assistant.Reply(ctx, "s1", "Data Scientist", nil, "second question")
	require.NoError(t, err)

	received := mock.GetReceivedMessages()
	var truncated bool
	for _, m := range received {
		if m.Role == schema.Assistant && m.Content == strings.Repeat("y", 20)+"..." {
			truncated = true
		}
	}
	assert.True(t, truncated, "拼入提示词的历史回复应被截断")
}

func TestReply_EmptyQuestion(t *testing.T) {
	assistant, err := agent.NewCareerAssistant(pkgagent.NewMockChatClient("x", nil), nil, chatConfig())
	require.NoError(t, err)

	_, err = assistant.Reply(context.Background(), "s1", "Data Scientist", nil, "   ")
	assert.Error(t, err, "空问题应直接报错")
}

func TestHistoryAndClearSession(t *testing.T) {
	mock := pkgagent.NewMockChatClient("the answer", nil)
	assistant, err := agent.NewCareerAssistant(mock, nil, chatConfig())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = assistant.Reply(ctx, "s1", "Data Scientist", nil, "the question")
	require.NoError(t, err)

	turns, err := assistant.History("s1")
	require.NoError(t, err)
	require.Len(t, turns, 2, "一问一答应产生两条历史")
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "the question", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)

	require.NoError(t, assistant.ClearSession("s1"))
	turns, err = assistant.History("s1")
	require.NoError(t, err)
	assert.Empty(t, turns, "清空后历史应为空")
}
