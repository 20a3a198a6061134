package handler

import (
	"context"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// ChatReplier 会话助手的最小接口。
type ChatReplier interface {
	Reply(ctx context.Context, sessionID, career string, analysis *types.CareerAnalysis, question string) (string, error)
	History(sessionID string) ([]types.ChatTurn, error)
	ClearSession(sessionID string) error
}

var _ ChatReplier = (*agent.CareerAssistant)(nil)

// SessionToucher 会话元数据落库的最小接口。
type SessionToucher interface {
	TouchChatSession(ctx context.Context, sessionID, career string, profileID *string) error
}

var _ SessionToucher = (*storage.MySQL)(nil)

// ChatHandler 负责职业问答会话的HTTP请求。
type ChatHandler struct {
	cfg       *config.Config
	assistant ChatReplier
	system    CareerAnalyzer
	sessions  SessionToucher // 可为nil，此时不落库会话元数据
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(cfg *config.Config, assistant ChatReplier, system CareerAnalyzer, sessions SessionToucher) *ChatHandler {
	return &ChatHandler{
		cfg:       cfg,
		assistant: assistant,
		system:    system,
		sessions:  sessions,
	}
}

// ChatRequest 一轮问答的请求体
type ChatRequest struct {
	SessionID       string  `json:"session_id,omitempty"` // 为空时开启新会话
	Career          string  `json:"career" validate:"required"`
	ExperienceLevel string  `json:"experience_level,omitempty"`
	Question        string  `json:"question" validate:"required"`
	ProfileID       *string `json:"profile_id,omitempty"`
}

// ChatResponse 一轮问答的响应体
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// HandleChat 处理一轮职业问答。
// POST /api/v1/chat
func (h *ChatHandler) HandleChat(ctx context.Context, c *app.RequestContext) {
	var req ChatRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "career 和 question 不能为空"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "生成会话ID失败"})
			return
		}
		sessionID = newUUID.String()
	}

	level := req.ExperienceLevel
	if level == "" {
		level = constants.ExperienceLevelBeginner
	}

	// 有缓存的分析就作为回答上下文，没有也照常回答
	analysis := h.system.CachedAnalysis(ctx, req.Career, level)

	answer, err := h.assistant.Reply(ctx, sessionID, req.Career, analysis, req.Question)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("生成会话回复失败")
		// 上游模型的错误信息原样返回，便于调用方区分限流、超时等场景
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	// 会话元数据落库失败不影响回答
	if h.sessions != nil {
		if err := h.sessions.TouchChatSession(ctx, sessionID, req.Career, req.ProfileID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("更新会话元数据失败")
		}
	}

	c.JSON(consts.StatusOK, &ChatResponse{SessionID: sessionID, Answer: answer})
}

// HandleHistory 返回会话的完整历史。
// GET /api/v1/chat/:session_id/history
func (h *ChatHandler) HandleHistory(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "session_id 不能为空"})
		return
	}

	turns, err := h.assistant.History(sessionID)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("读取会话历史失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取会话历史失败"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"session_id": sessionID, "messages": turns})
}

// HandleClearSession 清空会话历史。
// DELETE /api/v1/chat/:session_id
func (h *ChatHandler) HandleClearSession(ctx context.Context, c *app.RequestContext) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "session_id 不能为空"})
		return
	}

	if err := h.assistant.ClearSession(sessionID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("清空会话历史失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "清空会话历史失败"})
		return
	}

	c.JSON(consts.StatusOK, utils.H{"session_id": sessionID, "status": "cleared"})
}
