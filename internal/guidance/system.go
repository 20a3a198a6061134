package guidance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/constants"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/storage/models"
	"career-agent-go/internal/tracing"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
)

var guidanceTracer = otel.Tracer("internal/guidance")

// ReportStore 分析结果的持久化能力，由storage.MySQL实现
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.CareerReport) error
	GetLatestReport(ctx context.Context, career, experienceLevel string) (*models.CareerReport, error)
}

var _ ReportStore = (*storage.MySQL)(nil)

// System 职业分析的编排器。
// 每个小节独立走缓存和生成，检索语料和网页搜索结果拼入提示词上下文。
type System struct {
	chatModel model.ToolCallingChatModel
	retriever *Retriever
	searcher  WebSearcher
	cache     *storage.Redis
	reports   ReportStore
	cfg       *config.AnalysisConfig
}

// SystemOption 编排器的可选依赖
type SystemOption func(*System)

// WithRetriever 启用RAG检索上下文
func WithRetriever(r *Retriever) SystemOption {
	return func(s *System) { s.retriever = r }
}

// WithWebSearcher 启用网页搜索补充市场信息
func WithWebSearcher(w WebSearcher) SystemOption {
	return func(s *System) { s.searcher = w }
}

// WithReportStore 启用分析结果落库
func WithReportStore(store ReportStore) SystemOption {
	return func(s *System) { s.reports = store }
}

// NewSystem 创建分析编排器。chatModel应当已经包好限流代理。
// cache为nil时不做缓存，每次都重新生成。
func NewSystem(chatModel model.ToolCallingChatModel, cache *storage.Redis, cfg *config.AnalysisConfig, opts ...SystemOption) (*System, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("分析模型不能为空")
	}
	if cfg == nil {
		return nil, fmt.Errorf("分析配置不能为空")
	}
	s := &System{
		chatModel: chatModel,
		cache:     cache,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ComprehensiveCareerAnalysis 生成完整的四小节职业分析。
// 命中完整结果缓存时直接返回；否则逐小节生成，小节级缓存独立命中。
// 同一职业+档位的并发生成由分布式锁串行化。
func (s *System) ComprehensiveCareerAnalysis(ctx context.Context, career string, profile *types.UserProfile) (*types.CareerAnalysis, error) {
	career = strings.TrimSpace(career)
	if career == "" {
		return nil, fmt.Errorf("职业名不能为空")
	}

	level := constants.ExperienceLevelBeginner
	if profile != nil {
		level = profile.ExperienceLevel()
	}

	ctx, span := guidanceTracer.Start(ctx, "System.ComprehensiveCareerAnalysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("career", career),
		attribute.String("experience_level", level),
	)

	if cached := s.cachedResult(ctx, career, level); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	// 锁住同一职业+档位的生成，其他请求等待后读缓存
	release, acquired := s.lockAnalysis(ctx, career, level)
	if !acquired {
		if cached := s.waitForResult(ctx, career, level); cached != nil {
			return cached, nil
		}
		// 等待超时后自己生成，比直接失败对调用方更友好
		logger.Ctx(ctx).Warn().Str("career", career).Msg("等待其他实例生成分析超时，本实例接手生成")
	} else {
		defer release()
	}

	analysis := &types.CareerAnalysis{
		Career:          career,
		ExperienceLevel: level,
		GeneratedAt:     time.Now(),
	}

	start := time.Now()
	for _, section := range constants.AnalysisSections {
		content, err := s.sectionContent(ctx, section, career, level)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("生成 %s 小节失败: %w", section, err)
		}
		analysis.SetSection(section, content)
	}

	logger.Ctx(ctx).Info().
		Str("career", career).
		Str("experience_level", level).
		Dur("elapsed", time.Since(start)).
		Msg("职业分析生成完成")

	if s.cache != nil {
		if err := s.cache.CacheAnalysisResult(ctx, analysis); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("写入分析结果缓存失败")
		}
	}
	s.persistReport(ctx, analysis, profile)

	span.SetStatus(codes.Ok, "")
	return analysis, nil
}

// CachedAnalysis 只读取已有的分析结果，Redis未命中时回落到MySQL。
// 两边都没有时返回nil。
func (s *System) CachedAnalysis(ctx context.Context, career, level string) *types.CareerAnalysis {
	if cached := s.cachedResult(ctx, career, level); cached != nil {
		return cached
	}
	if s.reports == nil {
		return nil
	}
	report, err := s.reports.GetLatestReport(ctx, career, level)
	if err != nil || report == nil {
		return nil
	}
	return &types.CareerAnalysis{
		Career:           report.Career,
		ExperienceLevel:  report.ExperienceLevel,
		Overview:         report.Overview,
		MarketAnalysis:   report.MarketAnalysis,
		LearningRoadmap:  report.LearningRoadmap,
		IndustryInsights: report.IndustryInsights,
		GeneratedAt:      report.GeneratedAt,
	}
}

// sectionContent 取一个小节的内容，优先走缓存
func (s *System) sectionContent(ctx context.Context, section, career, level string) (string, error) {
	if s.cache != nil {
		if content, err := s.cache.GetAnalysisSection(ctx, career, section, level); err == nil {
			return content, nil
		} else if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Str("section", section).Msg("读取小节缓存失败")
		}
	}

	content, err := s.generateSection(ctx, section, career, level)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.CacheAnalysisSection(ctx, career, section, level, content); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("section", section).Msg("写入小节缓存失败")
		}
	}
	return content, nil
}

// generateSection 调用模型生成一个小节并渲染成markdown文档
func (s *System) generateSection(ctx context.Context, section, career, level string) (string, error) {
	ctx, span := guidanceTracer.Start(ctx, "System.generateSection")
	defer span.End()
	span.SetAttributes(
		attribute.String("section", section),
		attribute.String("career", career),
	)

	query := SectionQuery(section, career, level)
	if query == "" {
		return "", fmt.Errorf("未知的分析小节: %s", section)
	}

	prompt := generationPrompt(query)
	if extra := s.buildExtraContext(ctx, section, career); extra != "" {
		prompt = prompt + "\n\n" + extra
	}
	span.SetAttributes(attribute.String("llm.prompt", tracing.SafePromptContent(prompt)))

	sectionCtx, cancel := context.WithTimeout(ctx, config.GetDuration(s.cfg.SectionTimeout, 90*time.Second))
	defer cancel()

	opts := []model.Option{
		model.WithTemperature(float32(s.cfg.Temperature)),
	}
	if s.cfg.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(s.cfg.MaxTokens))
	}

	result, err := s.chatModel.Generate(sectionCtx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if result == nil || strings.TrimSpace(result.Content) == "" {
		return "", fmt.Errorf("模型返回了空内容")
	}

	span.SetStatus(codes.Ok, "")
	return FormatSectionResult(result.Content, SectionTitle(section, career)), nil
}

// buildExtraContext 为提示词补充检索语料和网页搜索结果。
// 两者都是尽力而为，失败只记日志不阻断生成。
func (s *System) buildExtraContext(ctx context.Context, section, career string) string {
	var parts []string

	if s.retriever != nil {
		chunks, err := s.retriever.Retrieve(ctx, fmt.Sprintf("%s career %s", career, section))
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("section", section).Msg("检索参考语料失败")
		} else if refText := BuildContext(chunks); refText != "" {
			parts = append(parts, refText)
		}
	}

	// 只有市场分析需要实时信息
	if s.searcher != nil && section == constants.AnalysisSectionMarket {
		text, err := s.searcher.Search(ctx, fmt.Sprintf("%s job market salary trends 2025", career))
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("网页搜索失败，跳过实时信息补充")
		} else if text != "" {
			parts = append(parts, "Recent web search results:\n"+text)
		}
	}

	return strings.Join(parts, "\n\n")
}

func (s *System) cachedResult(ctx context.Context, career, level string) *types.CareerAnalysis {
	if s.cache == nil {
		return nil
	}
	analysis, err := s.cache.GetAnalysisResult(ctx, career, level)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Ctx(ctx).Warn().Err(err).Msg("读取分析结果缓存失败")
		}
		return nil
	}
	return analysis
}

// lockAnalysis 获取生成锁。cache为nil时视为总是获取成功。
func (s *System) lockAnalysis(ctx context.Context, career, level string) (func(), bool) {
	if s.cache == nil {
		return func() {}, true
	}
	lockKey := fmt.Sprintf(constants.KeyAnalysisLock, career, level)
	lockValue, err := s.cache.AcquireLock(ctx, lockKey, 5*time.Minute)
	if err != nil || lockValue == "" {
		return nil, false
	}
	return func() {
		if _, err := s.cache.ReleaseLock(context.Background(), lockKey, lockValue); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("释放分析锁失败")
		}
	}, true
}

// waitForResult 轮询等待持有锁的实例完成生成
func (s *System) waitForResult(ctx context.Context, career, level string) *types.CareerAnalysis {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	deadline := time.After(2 * time.Minute)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-ticker.C:
			if cached := s.cachedResult(ctx, career, level); cached != nil {
				return cached
			}
		}
	}
}

// persistReport 把分析结果连同推导的图表数据落库，失败只记日志
func (s *System) persistReport(ctx context.Context, analysis *types.CareerAnalysis, profile *types.UserProfile) {
	if s.reports == nil {
		return
	}

	report := &models.CareerReport{
		Career:           analysis.Career,
		ExperienceLevel:  analysis.ExperienceLevel,
		Overview:         analysis.Overview,
		MarketAnalysis:   analysis.MarketAnalysis,
		LearningRoadmap:  analysis.LearningRoadmap,
		IndustryInsights: analysis.IndustryInsights,
		ModelName:        s.cfg.ModelName,
		GeneratedAt:      analysis.GeneratedAt,
	}
	if insights := BuildInsights(analysis); insights != nil {
		if raw, err := json.Marshal(insights); err == nil {
			report.InsightsJSON = datatypes.JSON(raw)
		}
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("career", analysis.Career).Msg("分析结果落库失败")
	}
}
