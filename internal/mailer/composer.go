package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultRecipientName = "Career Explorer"

// ComposedEmail 撰写完成的一封报告邮件
type ComposedEmail struct {
	Subject  string
	Markdown string
}

// Composer 报告邮件撰写器。
// detailed邮件由模型根据分析内容撰写，summary邮件走固定模板不调模型。
type Composer struct {
	chatModel model.ToolCallingChatModel
	cfg       *config.EmailConfig
}

// NewComposer 创建撰写器。只发summary邮件时chatModel可以为nil。
func NewComposer(chatModel model.ToolCallingChatModel, cfg *config.EmailConfig) *Composer {
	return &Composer{chatModel: chatModel, cfg: cfg}
}

// ComposeDetailed 调用模型撰写完整的报告邮件。
// 模型输出必须带SUBJECT:和CONTENT:两段，解析失败视为撰写失败。
func (c *Composer) ComposeDetailed(ctx context.Context, analysis *types.CareerAnalysis, recipientName string) (*ComposedEmail, error) {
	if c.chatModel == nil {
		return nil, fmt.Errorf("撰写模型未配置，无法生成detailed邮件")
	}
	if analysis == nil {
		return nil, fmt.Errorf("分析结果不能为空")
	}
	if recipientName == "" {
		recipientName = defaultRecipientName
	}

	prompt := buildComposePrompt(analysis, recipientName)

	composeCtx, cancel := context.WithTimeout(ctx, config.GetDuration(c.cfg.ComposeTimeout, 90*time.Second))
	defer cancel()

	opts := []model.Option{
		model.WithTemperature(float32(c.cfg.ComposeTemperature)),
	}
	if c.cfg.ComposeMaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.cfg.ComposeMaxTokens))
	}

	result, err := c.chatModel.Generate(composeCtx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return nil, fmt.Errorf("撰写报告邮件失败: %w", err)
	}
	if result == nil || strings.TrimSpace(result.Content) == "" {
		return nil, fmt.Errorf("模型返回了空的邮件内容")
	}

	email, err := ParseComposedEmail(result.Content)
	if err != nil {
		return nil, fmt.Errorf("解析模型撰写的邮件失败: %w", err)
	}
	return email, nil
}

// ComposeSummary 用固定模板生成简要总结邮件
func (c *Composer) ComposeSummary(analysis *types.CareerAnalysis, recipientName string) (*ComposedEmail, error) {
	if analysis == nil {
		return nil, fmt.Errorf("分析结果不能为空")
	}
	if recipientName == "" {
		recipientName = defaultRecipientName
	}

	subject := fmt.Sprintf("🎯 Your %s Career Analysis Report", analysis.Career)
	content := fmt.Sprintf(`# Your Personalized Career Analysis Report

Hello %s! 👋

Thank you for using our AI Career Guidance System. Here's your comprehensive analysis for the **%s** career path.

## 📊 Career Overview
%s

## 💼 Market Analysis
%s

## 📚 Learning Roadmap
%s

## 🏢 Industry Insights
%s

---

## 🚀 Next Steps

1. **Review the detailed analysis** above
2. **Start with the learning roadmap** recommendations
3. **Connect with professionals** in your target industry
4. **Build your skills** based on the identified requirements

Need more guidance? Feel free to return to our platform for additional insights and chat with our AI assistant!

Best regards,
**AI Career Guidance Team** 🎯
`,
		recipientName,
		analysis.Career,
		sectionExcerpt(analysis.Overview, "Analysis not available"),
		sectionExcerpt(analysis.MarketAnalysis, "Market data not available"),
		sectionExcerpt(analysis.LearningRoadmap, "Learning path not available"),
		sectionExcerpt(analysis.IndustryInsights, "Insights not available"),
	)

	return &ComposedEmail{Subject: subject, Markdown: content}, nil
}

// ParseComposedEmail 解析模型输出的SUBJECT:/CONTENT:两段格式
func ParseComposedEmail(raw string) (*ComposedEmail, error) {
	raw = strings.TrimSpace(raw)

	subjectIdx := strings.Index(raw, "SUBJECT:")
	contentIdx := strings.Index(raw, "CONTENT:")
	if subjectIdx < 0 || contentIdx < 0 || contentIdx < subjectIdx {
		return nil, fmt.Errorf("输出缺少SUBJECT:或CONTENT:标记")
	}

	subject := strings.TrimSpace(raw[subjectIdx+len("SUBJECT:") : contentIdx])
	content := strings.TrimSpace(raw[contentIdx+len("CONTENT:"):])
	if subject == "" {
		return nil, fmt.Errorf("邮件主题为空")
	}
	if content == "" {
		return nil, fmt.Errorf("邮件正文为空")
	}
	return &ComposedEmail{Subject: subject, Markdown: content}, nil
}

// buildComposePrompt 构造detailed邮件的撰写提示词，各小节截断到1000字符
func buildComposePrompt(analysis *types.CareerAnalysis, recipientName string) string {
	return fmt.Sprintf(`Create a comprehensive and professional email containing career analysis for %s.

Career Data to Include:
- Career Name: %s
- Career Overview: %s...
- Market Analysis: %s...
- Learning Roadmap: %s...
- Industry Insights: %s...

Requirements:
- Create an engaging subject line
- Structure the content with clear sections and headings
- Use markdown formatting for better readability
- Include key highlights and actionable insights
- Keep it professional yet personable
- Add a personalized greeting for %s
- Include next steps and recommendations

Format the response as:
SUBJECT: [Your suggested subject line]
CONTENT: [Your email content in markdown format]`,
		analysis.Career,
		analysis.Career,
		truncateRunes(analysis.Overview, 1000),
		truncateRunes(analysis.MarketAnalysis, 1000),
		truncateRunes(analysis.LearningRoadmap, 1000),
		truncateRunes(analysis.IndustryInsights, 1000),
		recipientName,
	)
}

// sectionExcerpt 取小节前500字符作为摘要，空小节用占位文案
func sectionExcerpt(content, fallback string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return fallback
	}
	return truncateRunes(content, 500) + "..."
}

func truncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
