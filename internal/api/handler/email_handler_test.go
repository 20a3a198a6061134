package handler_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/config"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMailStore struct {
	reports     map[string]*models.CareerReport
	latest      *models.CareerReport
	deliveries  map[string]*models.EmailDelivery
	gotDelivery *models.EmailDelivery
	gotMessage  *storage.EmailDeliveryMessage
	gotExchange string
	gotKey      string
}

func (f *fakeMailStore) GetReportByID(ctx context.Context, reportID string) (*models.CareerReport, error) {
	if r, ok := f.reports[reportID]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMailStore) GetLatestReport(ctx context.Context, career, experienceLevel string) (*models.CareerReport, error) {
	if f.latest != nil && f.latest.Career == career {
		return f.latest, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMailStore) CreateEmailDeliveryWithOutbox(ctx context.Context, delivery *models.EmailDelivery, msg *storage.EmailDeliveryMessage, exchange, routingKey string) error {
	f.gotDelivery = delivery
	f.gotMessage = msg
	f.gotExchange = exchange
	f.gotKey = routingKey
	return nil
}

func (f *fakeMailStore) GetDeliveryByID(ctx context.Context, deliveryID string) (*models.EmailDelivery, error) {
	if d, ok := f.deliveries[deliveryID]; ok {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func emailTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RabbitMQ.EmailEventsExchange = "email.events.exchange"
	cfg.RabbitMQ.EmailRequestedKey = "email.report.requested"
	return cfg
}

func newEmailTestEngine(t *testing.T, store *fakeMailStore) *server.Hertz {
	t.Helper()
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	emails := handler.NewEmailReportHandler(emailTestConfig(), store)
	rg := h.Group("/api/v1")
	rg.POST("/reports/email", emails.HandleSendReport)
	rg.GET("/reports/email/:delivery_id", emails.HandleDeliveryStatus)
	return h
}

func sampleReport() *models.CareerReport {
	return &models.CareerReport{
		ReportID:        "report-001",
		Career:          "Data Scientist",
		ExperienceLevel: "beginner",
		Overview:        "overview body",
	}
}

func TestHandleSendReport_LatestByCareer(t *testing.T) {
	store := &fakeMailStore{latest: sampleReport()}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "alex@example.com",
		"career":    "Data Scientist",
		"user_name": "Alex",
	})
	require.Equal(t, consts.StatusAccepted, resp.Code)

	var got struct {
		DeliveryID string `json:"delivery_id"`
		ReportID   string `json:"report_id"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.NotEmpty(t, got.DeliveryID)
	assert.Equal(t, "report-001", got.ReportID)
	assert.Equal(t, models.DeliveryStatusPending, got.Status)

	require.NotNil(t, store.gotDelivery, "应创建投递记录")
	assert.Equal(t, "alex@example.com", store.gotDelivery.Recipient)
	assert.Equal(t, "summary", store.gotDelivery.Kind, "kind缺省为summary")
	assert.Equal(t, models.DeliveryStatusPending, store.gotDelivery.Status)

	require.NotNil(t, store.gotMessage, "应同事务写入发件箱消息")
	assert.Equal(t, got.DeliveryID, store.gotMessage.DeliveryID)
	assert.Equal(t, "Data Scientist", store.gotMessage.Career)
	assert.Equal(t, "Alex", store.gotMessage.UserName)
	assert.Equal(t, "email.events.exchange", store.gotExchange)
	assert.Equal(t, "email.report.requested", store.gotKey)
}

func TestHandleSendReport_ByReportID(t *testing.T) {
	store := &fakeMailStore{reports: map[string]*models.CareerReport{"report-001": sampleReport()}}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "alex@example.com",
		"report_id": "report-001",
		"kind":      "detailed",
	})
	require.Equal(t, consts.StatusAccepted, resp.Code)
	assert.Equal(t, "detailed", store.gotDelivery.Kind)
}

func TestHandleSendReport_InvalidRecipient(t *testing.T) {
	store := &fakeMailStore{latest: sampleReport()}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "not-an-email",
		"career":    "Data Scientist",
	})
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "非法邮箱应返回400")
	assert.Nil(t, store.gotDelivery, "校验失败不应创建投递记录")
}

func TestHandleSendReport_MissingTarget(t *testing.T) {
	h := newEmailTestEngine(t, &fakeMailStore{})

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "alex@example.com",
	})
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "report_id和career都缺失应返回400")
}

func TestHandleSendReport_ReportNotFound(t *testing.T) {
	h := newEmailTestEngine(t, &fakeMailStore{})

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "alex@example.com",
		"career":    "Astronaut",
	})
	assert.Equal(t, consts.StatusNotFound, resp.Code, "没有报告时应返回404")
}

func TestHandleSendReport_InvalidKind(t *testing.T) {
	store := &fakeMailStore{latest: sampleReport()}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "POST", "/api/v1/reports/email", map[string]interface{}{
		"recipient": "alex@example.com",
		"career":    "Data Scientist",
		"kind":      "weekly",
	})
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "未知的kind应返回400")
}

func TestHandleDeliveryStatus_Sent(t *testing.T) {
	deliveredAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeMailStore{deliveries: map[string]*models.EmailDelivery{
		"delivery-001": {
			DeliveryID:   "delivery-001",
			ReportID:     "report-001",
			Kind:         "summary",
			Subject:      "你的 Data Scientist 职业分析报告",
			Status:       models.DeliveryStatusSent,
			AttemptCount: 1,
			DeliveredAt:  &deliveredAt,
		},
	}}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "GET", "/api/v1/reports/email/delivery-001", nil)
	require.Equal(t, consts.StatusOK, resp.Code)

	var got struct {
		DeliveryID   string `json:"delivery_id"`
		ReportID     string `json:"report_id"`
		Status       string `json:"status"`
		Kind         string `json:"kind"`
		Subject      string `json:"subject"`
		AttemptCount int    `json:"attempt_count"`
		DeliveredAt  string `json:"delivered_at"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "delivery-001", got.DeliveryID)
	assert.Equal(t, "report-001", got.ReportID)
	assert.Equal(t, models.DeliveryStatusSent, got.Status)
	assert.Equal(t, "summary", got.Kind)
	assert.Equal(t, "你的 Data Scientist 职业分析报告", got.Subject)
	assert.Equal(t, 1, got.AttemptCount)
	assert.NotEmpty(t, got.DeliveredAt, "已送达的投递应带delivered_at")
}

func TestHandleDeliveryStatus_Failed(t *testing.T) {
	store := &fakeMailStore{deliveries: map[string]*models.EmailDelivery{
		"delivery-002": {
			DeliveryID:   "delivery-002",
			ReportID:     "report-001",
			Kind:         "detailed",
			Status:       models.DeliveryStatusFailed,
			ErrorMessage: "SMTP连接超时",
			AttemptCount: 3,
		},
	}}
	h := newEmailTestEngine(t, store)

	resp := performJSON(t, h, "GET", "/api/v1/reports/email/delivery-002", nil)
	require.Equal(t, consts.StatusOK, resp.Code)

	var got struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, models.DeliveryStatusFailed, got.Status)
	assert.Equal(t, "SMTP连接超时", got.ErrorMessage, "失败原因应随状态返回")
}

func TestHandleDeliveryStatus_NotFound(t *testing.T) {
	h := newEmailTestEngine(t, &fakeMailStore{})

	resp := performJSON(t, h, "GET", "/api/v1/reports/email/no-such-delivery", nil)
	assert.Equal(t, consts.StatusNotFound, resp.Code, "不存在的投递ID应返回404")
}
