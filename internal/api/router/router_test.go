package router_test

import (
	"testing"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/api/router"
	"career-agent-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, apiKey string) *server.Hertz {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.APIKey = apiKey

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	router.RegisterRoutes(h, cfg,
		handler.NewCareerHandler(cfg, nil),
		handler.NewChatHandler(cfg, nil, nil, nil),
		handler.NewProfileHandler(nil),
		handler.NewEmailReportHandler(cfg, nil),
	)
	return h
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/health", nil)
	require.Equal(t, consts.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
}

func TestKeyAuth_ProtectsRoutes(t *testing.T) {
	h := newTestServer(t, "secret-key")

	// 无鉴权头
	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/options", nil)
	assert.NotEqual(t, consts.StatusOK, resp.Code, "缺少API Key的请求不应放行")

	// 错误的key
	resp = ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/options", nil,
		ut.Header{Key: "Authorization", Value: "Bearer wrong-key"})
	assert.NotEqual(t, consts.StatusOK, resp.Code, "错误的API Key不应放行")

	// 正确的key
	resp = ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/options", nil,
		ut.Header{Key: "Authorization", Value: "Bearer secret-key"})
	assert.Equal(t, consts.StatusOK, resp.Code, "正确的API Key应放行")
}

func TestKeyAuth_HealthStaysOpen(t *testing.T) {
	h := newTestServer(t, "secret-key")

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/health", nil)
	assert.Equal(t, consts.StatusOK, resp.Code, "健康检查不应要求鉴权")
}

func TestKeyAuth_DisabledWithoutKey(t *testing.T) {
	h := newTestServer(t, "")

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/options", nil)
	assert.Equal(t, consts.StatusOK, resp.Code, "未配置API Key时所有路由放行")
}
