package mailer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown渲染器，启用表格扩展以支持报告中的对比表
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

const htmlTemplate = `<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        h1, h2, h3 { color: #2c3e50; }
        .header { background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; }
        table { border-collapse: collapse; width: 100%%; margin: 10px 0; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>🎯 AI Career Guidance Report</h1>
        <p>Powered by Mistral AI</p>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>Generated on %s</p>
        <p>© 2025 AI Career Guidance System</p>
    </div>
</body>
</html>`

// RenderHTML 把markdown正文渲染成带样式的完整HTML邮件
func RenderHTML(markdown string, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("渲染markdown失败: %w", err)
	}
	generatedOn := now.Format("January 2, 2006 at 3:04 PM")
	return fmt.Sprintf(htmlTemplate, buf.String(), generatedOn), nil
}
