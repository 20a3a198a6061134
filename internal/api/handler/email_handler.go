package handler

import (
	"context"
	"errors"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// ReportMailStore 邮件投递所需的存储操作。
// 投递记录和发件箱消息在同一事务里创建，由中继进程异步发往RabbitMQ。
type ReportMailStore interface {
	GetReportByID(ctx context.Context, reportID string) (*models.CareerReport, error)
	GetLatestReport(ctx context.Context, career, experienceLevel string) (*models.CareerReport, error)
	CreateEmailDeliveryWithOutbox(ctx context.Context, delivery *models.EmailDelivery, msg *storage.EmailDeliveryMessage, exchange, routingKey string) error
	GetDeliveryByID(ctx context.Context, deliveryID string) (*models.EmailDelivery, error)
}

var _ ReportMailStore = (*storage.MySQL)(nil)

// EmailReportHandler 负责报告邮件投递请求。
type EmailReportHandler struct {
	cfg   *config.Config
	store ReportMailStore
}

// NewEmailReportHandler 创建一个新的 EmailReportHandler 实例。
func NewEmailReportHandler(cfg *config.Config, store ReportMailStore) *EmailReportHandler {
	return &EmailReportHandler{
		cfg:   cfg,
		store: store,
	}
}

// EmailReportRequest 请求把分析报告通过邮件发送给收件人。
// report_id 和 career 二选一：带report_id精确指定报告，
// 只带career时取该职业最近一次的报告。
type EmailReportRequest struct {
	Recipient       string `json:"recipient" validate:"required,email"`
	ReportID        string `json:"report_id,omitempty"`
	Career          string `json:"career,omitempty"`
	ExperienceLevel string `json:"experience_level,omitempty"`
	Kind            string `json:"kind,omitempty" validate:"omitempty,oneof=summary detailed"`
	UserName        string `json:"user_name,omitempty"`
}

// HandleSendReport 创建一条邮件投递记录并通过发件箱异步投递。
// POST /api/v1/reports/email
func (h *EmailReportHandler) HandleSendReport(ctx context.Context, c *app.RequestContext) {
	var req EmailReportRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "recipient 必须是合法的邮箱地址"})
		return
	}
	if req.ReportID == "" && req.Career == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "report_id 和 career 至少提供一个"})
		return
	}

	report, err := h.resolveReport(ctx, &req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "未找到分析报告，请先发起分析"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("查询分析报告失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询分析报告失败"})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = constants.EmailKindSummary
	}

	newUUID, err := uuid.NewV7()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "生成投递ID失败"})
		return
	}
	deliveryID := newUUID.String()

	delivery := &models.EmailDelivery{
		DeliveryID: deliveryID,
		ReportID:   report.ReportID,
		Recipient:  req.Recipient,
		Kind:       kind,
		Status:     models.DeliveryStatusPending,
	}
	msg := &storage.EmailDeliveryMessage{
		DeliveryID:  deliveryID,
		ReportID:    report.ReportID,
		Recipient:   req.Recipient,
		Kind:        kind,
		Career:      report.Career,
		UserName:    req.UserName,
		RequestedAt: time.Now(),
	}

	if err := h.store.CreateEmailDeliveryWithOutbox(ctx, delivery, msg,
		h.cfg.RabbitMQ.EmailEventsExchange, h.cfg.RabbitMQ.EmailRequestedKey); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("delivery_id", deliveryID).Msg("创建邮件投递记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "创建邮件投递记录失败"})
		return
	}

	c.JSON(consts.StatusAccepted, utils.H{
		"delivery_id": deliveryID,
		"report_id":   report.ReportID,
		"status":      models.DeliveryStatusPending,
	})
}

// HandleDeliveryStatus 查询一次邮件投递的当前状态，用于观察202之后的异步进展。
// GET /api/v1/reports/email/:delivery_id
func (h *EmailReportHandler) HandleDeliveryStatus(ctx context.Context, c *app.RequestContext) {
	deliveryID := c.Param("delivery_id")

	delivery, err := h.store.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "投递记录不存在"})
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("delivery_id", deliveryID).Msg("查询邮件投递记录失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询邮件投递记录失败"})
		return
	}

	resp := utils.H{
		"delivery_id":   delivery.DeliveryID,
		"report_id":     delivery.ReportID,
		"status":        delivery.Status,
		"kind":          delivery.Kind,
		"attempt_count": delivery.AttemptCount,
	}
	if delivery.Subject != "" {
		resp["subject"] = delivery.Subject
	}
	if delivery.ErrorMessage != "" {
		resp["error_message"] = delivery.ErrorMessage
	}
	if delivery.DeliveredAt != nil {
		resp["delivered_at"] = delivery.DeliveredAt
	}
	c.JSON(consts.StatusOK, resp)
}

func (h *EmailReportHandler) resolveReport(ctx context.Context, req *EmailReportRequest) (*models.CareerReport, error) {
	if req.ReportID != "" {
		return h.store.GetReportByID(ctx, req.ReportID)
	}
	level := req.ExperienceLevel
	if level == "" {
		level = constants.ExperienceLevelBeginner
	}
	return h.store.GetLatestReport(ctx, req.Career, level)
}
