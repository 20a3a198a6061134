package mailer_test

import (
	"testing"
	"time"

	"career-agent-go/internal/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	now := time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)
	html, err := mailer.RenderHTML("# Title\n\nSome **bold** text.", now)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "🎯 AI Career Guidance Report", "应包含报告头部")
	assert.Contains(t, html, "Generated on March 14, 2025 at 3:04 PM")
	assert.Contains(t, html, "© 2025 AI Career Guidance System")
	assert.Contains(t, html, "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", "头部渐变样式应保留")
}

func TestRenderHTML_Table(t *testing.T) {
	markdown := "| Level | Salary |\n|---|---|\n| Entry | $75,000 |"
	html, err := mailer.RenderHTML(markdown, time.Now())
	require.NoError(t, err)
	assert.Contains(t, html, "<table>", "表格扩展应启用")
	assert.Contains(t, html, "<td>Entry</td>")
}
