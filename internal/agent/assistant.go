package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// CareerAssistant 基于已生成的职业分析回答后续问题的会话助手。
// 每次回复只携带与问题最相关的分析小节，避免把整份报告塞进提示词。
type CareerAssistant struct {
	chatModel model.ToolCallingChatModel
	memory    ChatMemory
	cfg       *config.ChatConfig
}

// NewCareerAssistant 创建会话助手。
// memory 为 nil 时退化为不限长的内存实现，仅用于测试场景。
func NewCareerAssistant(chatModel model.ToolCallingChatModel, memory ChatMemory, cfg *config.ChatConfig) (*CareerAssistant, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("聊天模型不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("聊天配置不能为空")
	}
	if memory == nil {
		memory = NewInMemoryChatMemory(cfg.HistoryWindow)
	}
	return &CareerAssistant{
		chatModel: chatModel,
		memory:    memory,
		cfg:       cfg,
	}, nil
}

// Reply 回答一个关于指定职业的问题。
// analysis 可以为 nil，此时助手只依赖通用知识回答。
// 问答成功后，问题和回答都会写入会话历史。
func (a *CareerAssistant) Reply(ctx context.Context, sessionID, career string, analysis *types.CareerAnalysis, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("问题不能为空")
	}

	sections := RouteContextSections(question)
	systemPrompt := a.buildSystemPrompt(career, sections, analysis)

	history, err := a.memory.GetHistory(sessionID)
	if err != nil {
		return "", fmt.Errorf("读取会话 %s 历史失败: %w", sessionID, err)
	}

	messages := make([]*schema.Message, 0, a.cfg.PromptTurns+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))

	// 只把最近几条历史放进提示词，且每条截断，控制上下文长度
	recent := history
	if a.cfg.PromptTurns > 0 && len(recent) > a.cfg.PromptTurns {
		recent = recent[len(recent)-a.cfg.PromptTurns:]
	}
	for _, msg := range recent {
		truncated := truncateTurn(msg.Content, a.cfg.TurnTruncateRune)
		switch msg.Role {
		case schema.Assistant:
			messages = append(messages, schema.AssistantMessage(truncated, nil))
		default:
			messages = append(messages, schema.UserMessage(truncated))
		}
	}
	messages = append(messages, schema.UserMessage(question))

	replyCtx, cancel := context.WithTimeout(ctx, config.GetDuration(a.cfg.ReplyTimeout, 30*time.Second))
	defer cancel()

	temperature := float32(a.cfg.Temperature)
	opts := []model.Option{
		model.WithTemperature(temperature),
	}
	if a.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(a.cfg.MaxTokens))
	}

	start := time.Now()
	result, err := a.chatModel.Generate(replyCtx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("生成会话回复失败: %w", err)
	}
	if result == nil || strings.TrimSpace(result.Content) == "" {
		return "", fmt.Errorf("模型返回了空回复")
	}

	logger.Ctx(ctx).Debug().
		Str("session_id", sessionID).
		Str("career", career).
		Strs("context_sections", sections).
		Dur("elapsed", time.Since(start)).
		Msg("会话回复生成完成")

	// 问题和回答写入历史；窗口截断由底层memory完成
	if err := a.memory.AddMessages(sessionID, []*schema.Message{
		schema.UserMessage(question),
		schema.AssistantMessage(result.Content, nil),
	}); err != nil {
		return "", fmt.Errorf("保存会话 %s 历史失败: %w", sessionID, err)
	}

	return result.Content, nil
}

// History 返回会话历史，按时间顺序，用户消息和助手消息交替出现
func (a *CareerAssistant) History(sessionID string) ([]types.ChatTurn, error) {
	messages, err := a.memory.GetHistory(sessionID)
	if err != nil {
		return nil, err
	}
	turns := make([]types.ChatTurn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, types.ChatTurn{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return turns, nil
}

// ClearSession 清空会话历史
func (a *CareerAssistant) ClearSession(sessionID string) error {
	return a.memory.ClearHistory(sessionID)
}

// 各分析小节的触发关键词。一个问题可以命中多个小节，上下文按声明顺序拼接。
var sectionKeywords = []struct {
	section  string
	keywords []string
}{
	{constants.AnalysisSectionOverview, []string{
		"概览", "职责", "是什么", "做什么", "角色",
		"overview", "what", "role", "responsibility",
	}},
	{constants.AnalysisSectionMarket, []string{
		"薪资", "工资", "待遇", "就业", "招聘", "市场", "岗位", "需求", "趋势",
		"market", "salary", "pay", "job", "demand", "trend", "growth", "money",
	}},
	{constants.AnalysisSectionRoadmap, []string{
		"学习", "技能", "路线", "课程", "证书", "入门", "培训", "转行",
		"learn", "skill", "education", "study", "course", "training",
	}},
	{constants.AnalysisSectionInsights, []string{
		"文化", "氛围", "日常", "平衡", "环境", "压力", "加班",
		"culture", "work", "day", "balance", "environment", "life", "stress",
	}},
}

// RouteContextSections 根据问题关键词选出相关的分析小节。
// 没有命中任何关键词时只返回概览小节。
func RouteContextSections(question string) []string {
	lower := strings.ToLower(question)
	var matched []string
	for _, entry := range sectionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, entry.section)
				break
			}
		}
	}
	if len(matched) == 0 {
		matched = []string{constants.AnalysisSectionOverview}
	}
	return matched
}

// buildSystemPrompt 构造带分析上下文的系统提示词。
// 每个命中小节的内容按rune截断后拼入，避免把整份报告塞进提示词。
func (a *CareerAssistant) buildSystemPrompt(career string, sections []string, analysis *types.CareerAnalysis) string {
	var sb strings.Builder
	sb.WriteString("你是一位专业的职业规划顾问，正在帮助用户了解「")
	sb.WriteString(career)
	sb.WriteString("」这一职业。回答要具体、可执行，不要泛泛而谈。")
	sb.WriteString("如果问题超出职业规划范围，礼貌说明并引导回主题。")

	if analysis == nil {
		return sb.String()
	}
	wrote := false
	for _, section := range sections {
		content := strings.TrimSpace(analysis.Section(section))
		if content == "" {
			continue
		}
		if !wrote {
			sb.WriteString("\n\n以下是已经为用户生成的相关分析，回答时优先引用其中的内容：")
			wrote = true
		}
		sb.WriteString("\n\n## ")
		sb.WriteString(constants.AnalysisSectionTitle(section))
		sb.WriteString("\n")
		sb.WriteString(truncateTurn(content, a.cfg.SectionTruncate))
	}
	return sb.String()
}

// truncateTurn 按rune截断历史消息，避免长回复撑爆提示词
func truncateTurn(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}
