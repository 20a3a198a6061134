package mailer_test

import (
	"context"
	"strings"
	"testing"

	"career-agent-go/internal/config"
	"career-agent-go/internal/mailer"
	"career-agent-go/internal/types"
	pkgagent "career-agent-go/pkg/agent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailConfig() *config.EmailConfig {
	return &config.EmailConfig{
		ComposeTemperature: 0.3,
		ComposeMaxTokens:   2000,
		ComposeTimeout:     "30s",
	}
}

func sampleAnalysis() *types.CareerAnalysis {
	return &types.CareerAnalysis{
		Career:           "Data Science",
		ExperienceLevel:  "beginner",
		Overview:         "# Data Science Career Analysis\n\nData scientists analyze data.",
		MarketAnalysis:   "# Data Science Market Analysis\n\nDemand is strong.",
		LearningRoadmap:  "# Data Science Learning Roadmap\n\nLearn Python and statistics.",
		IndustryInsights: "# Data Science Industry Insights\n\nRemote work is common.",
	}
}

func TestComposer_ComposeDetailed(t *testing.T) {
	mockModel := pkgagent.NewMockChatClient(
		"SUBJECT: Your Data Science Career Report\nCONTENT: # Report\n\nDetailed analysis here.", nil)
	composer := mailer.NewComposer(mockModel, emailConfig())

	email, err := composer.ComposeDetailed(context.Background(), sampleAnalysis(), "Alex")
	require.NoError(t, err)
	assert.Equal(t, "Your Data Science Career Report", email.Subject)
	assert.Contains(t, email.Markdown, "Detailed analysis here.")

	// 撰写提示词应包含四个小节和收件人称呼
	messages := mockModel.GetReceivedMessages()
	require.NotEmpty(t, messages)
	prompt := messages[len(messages)-1].Content
	assert.Contains(t, prompt, "Career Overview:")
	assert.Contains(t, prompt, "Industry Insights:")
	assert.Contains(t, prompt, "personalized greeting for Alex")
	assert.Contains(t, prompt, "SUBJECT: [Your suggested subject line]")
}

func TestComposer_ComposeDetailed_TruncatesSections(t *testing.T) {
	mockModel := pkgagent.NewMockChatClient("SUBJECT: s\nCONTENT: c", nil)
	composer := mailer.NewComposer(mockModel, emailConfig())

	analysis := sampleAnalysis()
	analysis.Overview = strings.Repeat("x", 3000)
	_, err := composer.ComposeDetailed(context.Background(), analysis, "")
	require.NoError(t, err)

	prompt := mockModel.GetReceivedMessages()[0].Content
	assert.NotContains(t, prompt, strings.Repeat("x", 1001), "小节应截断到1000字符")
	assert.Contains(t, prompt, strings.Repeat("x", 1000))
	assert.Contains(t, prompt, "personalized greeting for Career Explorer", "缺省收件人称呼")
}

func TestComposer_ComposeDetailed_UnparseableOutput(t *testing.T) {
	mockModel := pkgagent.NewMockChatClient("I cannot compose this email.", nil)
	composer := mailer.NewComposer(mockModel, emailConfig())

	_, err := composer.ComposeDetailed(context.Background(), sampleAnalysis(), "Alex")
	require.Error(t, err, "无法解析的输出应报错而不是发出坏邮件")
}

func TestComposer_ComposeSummary(t *testing.T) {
	composer := mailer.NewComposer(nil, emailConfig())

	email, err := composer.ComposeSummary(sampleAnalysis(), "Alex")
	require.NoError(t, err)
	assert.Equal(t, "🎯 Your Data Science Career Analysis Report", email.Subject)
	assert.Contains(t, email.Markdown, "Hello Alex! 👋")
	assert.Contains(t, email.Markdown, "## 📊 Career Overview")
	assert.Contains(t, email.Markdown, "## 🚀 Next Steps")
	assert.Contains(t, email.Markdown, "**AI Career Guidance Team** 🎯")
}

func TestComposer_ComposeSummary_Defaults(t *testing.T) {
	composer := mailer.NewComposer(nil, emailConfig())

	analysis := sampleAnalysis()
	analysis.MarketAnalysis = ""
	email, err := composer.ComposeSummary(analysis, "")
	require.NoError(t, err)
	assert.Contains(t, email.Markdown, "Hello Career Explorer! 👋", "无名字时用缺省称呼")
	assert.Contains(t, email.Markdown, "Market data not available", "空小节用占位文案")
}

func TestParseComposedEmail(t *testing.T) {
	email, err := mailer.ParseComposedEmail("some preamble\nSUBJECT: Hello\nCONTENT: body text\nmore body")
	require.NoError(t, err)
	assert.Equal(t, "Hello", email.Subject)
	assert.Equal(t, "body text\nmore body", email.Markdown)

	_, err = mailer.ParseComposedEmail("CONTENT: body only")
	require.Error(t, err, "缺少SUBJECT:应报错")

	_, err = mailer.ParseComposedEmail("SUBJECT: only subject")
	require.Error(t, err, "缺少CONTENT:应报错")

	_, err = mailer.ParseComposedEmail("CONTENT: x\nSUBJECT: y")
	require.Error(t, err, "标记顺序颠倒应报错")
}
