package mailer

import (
	"context"
	"fmt"
	"time"

	"career-agent-go/internal/config"

	"github.com/wneessen/go-mail"
)

// EmailSender 邮件投递能力，测试时用假实现替换
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, htmlBody string) error
}

// SMTPSender 基于SMTP的投递实现，STARTTLS加认证
type SMTPSender struct {
	cfg    *config.SMTPConfig
	client *mail.Client
}

var _ EmailSender = (*SMTPSender)(nil)

// NewSMTPSender 创建SMTP投递器
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, fmt.Errorf("SMTP服务器未配置")
	}
	if cfg.SenderAddress == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SMTP凭据未配置，需要设置SENDER_EMAIL和SENDER_PASSWORD")
	}

	port := cfg.Port
	if port == 0 {
		port = 587
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	username := cfg.Username
	if username == "" {
		username = cfg.SenderAddress
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("创建SMTP客户端失败: %w", err)
	}

	return &SMTPSender{cfg: cfg, client: client}, nil
}

// Send 发送一封HTML邮件
func (s *SMTPSender) Send(ctx context.Context, recipient, subject, htmlBody string) error {
	msg := mail.NewMsg()

	senderName := s.cfg.SenderName
	if senderName == "" {
		senderName = "AI Career Guidance System"
	}
	if err := msg.FromFormat(senderName, s.cfg.SenderAddress); err != nil {
		return fmt.Errorf("设置发件人失败: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("设置收件人 %s 失败: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", recipient, err)
	}
	return nil
}
