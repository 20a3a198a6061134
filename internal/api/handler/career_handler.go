package handler

import (
	"context"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/guidance"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/go-playground/validator/v10"
)

// validate 供本包所有handler复用的请求校验器
var validate = validator.New()

// CareerAnalyzer 职业分析编排器的最小接口，便于handler测试时注入mock。
type CareerAnalyzer interface {
	ComprehensiveCareerAnalysis(ctx context.Context, career string, profile *types.UserProfile) (*types.CareerAnalysis, error)
	CachedAnalysis(ctx context.Context, career, level string) *types.CareerAnalysis
}

var _ CareerAnalyzer = (*guidance.System)(nil)

// CareerHandler 负责职业分析相关的HTTP请求。
type CareerHandler struct {
	cfg    *config.Config
	system CareerAnalyzer
}

// NewCareerHandler 创建一个新的 CareerHandler 实例。
func NewCareerHandler(cfg *config.Config, system CareerAnalyzer) *CareerHandler {
	return &CareerHandler{
		cfg:    cfg,
		system: system,
	}
}

// AnalyzeRequest 发起综合分析的请求体
type AnalyzeRequest struct {
	Career  string             `json:"career" validate:"required"`
	Profile *types.UserProfile `json:"profile,omitempty"`
}

// HandleAnalyze 处理综合职业分析请求。
// POST /api/v1/careers/analyze
func (h *CareerHandler) HandleAnalyze(ctx context.Context, c *app.RequestContext) {
	var req AnalyzeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "career 不能为空"})
		return
	}

	analysis, err := h.system.ComprehensiveCareerAnalysis(ctx, req.Career, req.Profile)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("career", req.Career).Msg("生成职业分析失败")
		// 上游模型的错误信息原样返回，便于调用方区分限流、超时等场景
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	c.JSON(consts.StatusOK, analysis)
}

// HandleOptions 返回职业类别目录，供前端选择。
// GET /api/v1/careers/options
func (h *CareerHandler) HandleOptions(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{"categories": guidance.Catalog()})
}

// HandleInsights 返回某职业最近一次分析推导出的图表数据。
// GET /api/v1/careers/:career/insights
func (h *CareerHandler) HandleInsights(ctx context.Context, c *app.RequestContext) {
	career := c.Param("career")
	if career == "" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "career 不能为空"})
		return
	}
	level := c.Query("experience_level")
	if level == "" {
		level = constants.ExperienceLevelBeginner
	}

	analysis := h.system.CachedAnalysis(ctx, career, level)
	if analysis == nil {
		c.JSON(consts.StatusNotFound, utils.H{"error": "该职业暂无分析结果，请先发起分析"})
		return
	}

	c.JSON(consts.StatusOK, guidance.BuildInsights(analysis))
}
