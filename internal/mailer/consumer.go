package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var mailerTracer = otel.Tracer("internal/mailer")

// DeliveryStore 投递消费者依赖的数据库能力，由storage.MySQL实现
type DeliveryStore interface {
	GetReportByID(ctx context.Context, reportID string) (*models.CareerReport, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID, status, errMsg string) error
	SetDeliverySubject(ctx context.Context, deliveryID, subject string) error
	SetDeliveryArchiveObject(ctx context.Context, deliveryID, objectKey string) error
}

var _ DeliveryStore = (*storage.MySQL)(nil)

// ReportArchiver 渲染后HTML的归档能力，由storage.MinIO实现
type ReportArchiver interface {
	ArchiveReportHTML(ctx context.Context, deliveryID string, html string) (string, error)
}

// Consumer 消费邮件投递消息：撰写、渲染、发送、归档，并推进投递状态。
// 归档失败不影响投递结果，发送失败把投递标记为FAILED。
type Consumer struct {
	composer *Composer
	sender   EmailSender
	store    DeliveryStore
	archiver ReportArchiver
	queue    *storage.RabbitMQ
	cfg      *config.RabbitMQConfig
}

// NewConsumer 创建投递消费者。archiver可以为nil，此时跳过归档；
// queue只在Start时需要。
func NewConsumer(composer *Composer, sender EmailSender, store DeliveryStore, archiver ReportArchiver, queue *storage.RabbitMQ, cfg *config.RabbitMQConfig) (*Consumer, error) {
	if composer == nil {
		return nil, fmt.Errorf("撰写器不能为空")
	}
	if sender == nil {
		return nil, fmt.Errorf("投递器不能为空")
	}
	if store == nil {
		return nil, fmt.Errorf("投递存储不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("消息队列配置不能为空")
	}
	return &Consumer{
		composer: composer,
		sender:   sender,
		store:    store,
		archiver: archiver,
		queue:    queue,
		cfg:      cfg,
	}, nil
}

// Start 启动若干个并发消费者，返回的stop函数会停掉全部消费者
func (c *Consumer) Start() (func(), error) {
	if c.queue == nil {
		return nil, fmt.Errorf("消息队列不能为空")
	}
	count := c.cfg.DeliveryConsumerCount
	if count <= 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		if _, err := c.queue.StartConsumer(c.cfg.EmailDeliveryQueue, c.cfg.PrefetchCount, c.handleMessage); err != nil {
			return nil, fmt.Errorf("启动第%d个投递消费者失败: %w", i+1, err)
		}
	}

	logger.Info().
		Int("consumers", count).
		Str("queue", c.cfg.EmailDeliveryQueue).
		Msg("邮件投递消费者已启动")

	// 消费协程随RabbitMQ连接关闭而退出，由storage.Close统一回收
	return func() {}, nil
}

// handleMessage 处理一条投递消息。返回true表示ack。
// 消息格式损坏直接丢弃；业务失败把投递标记FAILED后ack，避免坏消息无限重投。
func (c *Consumer) handleMessage(body []byte) bool {
	timeout := time.Duration(c.cfg.ComposeTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var msg storage.EmailDeliveryMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		logger.Error().Err(err).Msg("投递消息格式损坏，丢弃")
		return true
	}

	if err := c.ProcessDelivery(ctx, &msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("delivery_id", msg.DeliveryID).
			Str("recipient", msg.Recipient).
			Msg("邮件投递失败")
		if statusErr := c.store.UpdateDeliveryStatus(ctx, msg.DeliveryID, models.DeliveryStatusFailed, err.Error()); statusErr != nil {
			logger.Ctx(ctx).Error().Err(statusErr).Str("delivery_id", msg.DeliveryID).Msg("更新投递状态失败")
		}
		return true
	}
	return true
}

// ProcessDelivery 执行一次完整的投递：撰写、渲染、发送、归档
func (c *Consumer) ProcessDelivery(ctx context.Context, msg *storage.EmailDeliveryMessage) error {
	ctx, span := mailerTracer.Start(ctx, "Consumer.ProcessDelivery")
	defer span.End()
	span.SetAttributes(
		attribute.String("delivery_id", msg.DeliveryID),
		attribute.String("delivery.kind", msg.Kind),
		attribute.String("delivery.recipient", tracing.MaskPII(msg.Recipient)),
	)

	if err := c.store.UpdateDeliveryStatus(ctx, msg.DeliveryID, models.DeliveryStatusComposing, ""); err != nil {
		return fmt.Errorf("标记投递为COMPOSING失败: %w", err)
	}

	report, err := c.store.GetReportByID(ctx, msg.ReportID)
	if err != nil {
		return fmt.Errorf("读取报告 %s 失败: %w", msg.ReportID, err)
	}
	analysis := &types.CareerAnalysis{
		Career:           report.Career,
		ExperienceLevel:  report.ExperienceLevel,
		Overview:         report.Overview,
		MarketAnalysis:   report.MarketAnalysis,
		LearningRoadmap:  report.LearningRoadmap,
		IndustryInsights: report.IndustryInsights,
		GeneratedAt:      report.GeneratedAt,
	}

	var email *ComposedEmail
	if msg.Kind == constants.EmailKindDetailed {
		email, err = c.composer.ComposeDetailed(ctx, analysis, msg.UserName)
	} else {
		email, err = c.composer.ComposeSummary(analysis, msg.UserName)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	htmlBody, err := RenderHTML(email.Markdown, time.Now())
	if err != nil {
		return err
	}

	if err := c.sender.Send(ctx, msg.Recipient, email.Subject, htmlBody); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.store.SetDeliverySubject(ctx, msg.DeliveryID, email.Subject); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("delivery_id", msg.DeliveryID).Msg("记录邮件主题失败")
	}

	// 邮件已经发出，归档失败只记日志
	if c.archiver != nil {
		if objectKey, archErr := c.archiver.ArchiveReportHTML(ctx, msg.DeliveryID, htmlBody); archErr != nil {
			logger.Ctx(ctx).Warn().Err(archErr).Str("delivery_id", msg.DeliveryID).Msg("归档报告HTML失败")
		} else if err := c.store.SetDeliveryArchiveObject(ctx, msg.DeliveryID, objectKey); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("delivery_id", msg.DeliveryID).Msg("记录归档对象键失败")
		}
	}

	if err := c.store.UpdateDeliveryStatus(ctx, msg.DeliveryID, models.DeliveryStatusSent, ""); err != nil {
		return fmt.Errorf("标记投递为SENT失败: %w", err)
	}

	logger.Ctx(ctx).Info().
		Str("delivery_id", msg.DeliveryID).
		Str("recipient", msg.Recipient).
		Str("kind", msg.Kind).
		Msg("报告邮件投递完成")

	span.SetStatus(codes.Ok, "")
	return nil
}
