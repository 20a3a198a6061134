package constants

import "time"

const (
	// SearchCacheDuration 网络搜索与分析小节缓存的默认有效期
	SearchCacheDuration = 24 * time.Hour

	// AnalysisSectionOverview 职业概览小节
	AnalysisSectionOverview = "overview"
	// AnalysisSectionMarket 市场分析小节
	AnalysisSectionMarket = "market_analysis"
	// AnalysisSectionRoadmap 学习路线小节
	AnalysisSectionRoadmap = "learning_roadmap"
	// AnalysisSectionInsights 行业洞察小节
	AnalysisSectionInsights = "industry_insights"

	// ExperienceLevelBeginner 初学者(经验<3年)
	ExperienceLevelBeginner = "beginner"
	// ExperienceLevelIntermediate 进阶者(经验3-9年)
	ExperienceLevelIntermediate = "intermediate"
	// ExperienceLevelAdvanced 资深者(经验>=10年)
	ExperienceLevelAdvanced = "advanced"

	// EmailKindSummary 模板化的简要总结邮件
	EmailKindSummary = "summary"
	// EmailKindDetailed 由LLM撰写的完整报告邮件
	EmailKindDetailed = "detailed"
)

// AnalysisSections 综合分析按固定顺序生成的小节列表
var AnalysisSections = []string{
	AnalysisSectionOverview,
	AnalysisSectionMarket,
	AnalysisSectionRoadmap,
	AnalysisSectionInsights,
}

var analysisSectionTitles = map[string]string{
	AnalysisSectionOverview: "Career Overview",
	AnalysisSectionMarket:   "Market Analysis",
	AnalysisSectionRoadmap:  "Learning Roadmap",
	AnalysisSectionInsights: "Industry Insights",
}

// AnalysisSectionTitle 返回小节的展示标题，未知小节原样返回
func AnalysisSectionTitle(section string) string {
	if title, ok := analysisSectionTitles[section]; ok {
		return title
	}
	return section
}
