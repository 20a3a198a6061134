package router

import (
	"context"
	"crypto/subtle"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由。
// cfg.Server.APIKey 非空时，除健康检查外的所有路由都要求
// Authorization: Bearer <key> 鉴权。
func RegisterRoutes(
	h *server.Hertz,
	cfg *config.Config,
	careers *handler.CareerHandler,
	chat *handler.ChatHandler,
	profiles *handler.ProfileHandler,
	emails *handler.EmailReportHandler,
) {
	api := h.Group("/api/v1")

	// 健康检查不走鉴权
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if cfg.Server.APIKey != "" {
		apiKey := cfg.Server.APIKey
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
			}),
		))
	}

	// 职业分析
	api.POST("/careers/analyze", careers.HandleAnalyze)
	api.GET("/careers/options", careers.HandleOptions)
	api.GET("/careers/:career/insights", careers.HandleInsights)

	// 问答会话
	api.POST("/chat", chat.HandleChat)
	api.GET("/chat/:session_id/history", chat.HandleHistory)
	api.DELETE("/chat/:session_id", chat.HandleClearSession)

	// 用户画像
	api.POST("/profiles", profiles.HandleSaveProfile)
	api.GET("/profiles/:profile_id", profiles.HandleGetProfile)

	// 报告邮件投递
	api.POST("/reports/email", emails.HandleSendReport)
	api.GET("/reports/email/:delivery_id", emails.HandleDeliveryStatus)
}
