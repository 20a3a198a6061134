package guidance

import (
	"sort"
	"strings"

	"career-agent-go/internal/types"
)

// 从分析文本推导图表数据的打分规则。
// 全部基于关键词频次加固定加成，同样的分析文本总是得到同样的结果。

type keywordGroup struct {
	name     string
	keywords []string
}

var trendKeywords = []keywordGroup{
	{"Remote Work", []string{"remote", "work from home", "telecommute", "distributed", "hybrid", "flexible"}},
	{"Ai Integration", []string{"artificial intelligence", "ai", "machine learning", "automation", "smart", "intelligent"}},
	{"Sustainability", []string{"sustainable", "green", "environmental", "eco-friendly", "climate", "renewable"}},
	{"Cloud Computing", []string{"cloud", "aws", "azure", "saas", "infrastructure", "platform", "serverless"}},
	{"Cybersecurity", []string{"security", "cyber", "privacy", "protection", "data security", "encryption", "breach"}},
	{"Digital Transformation", []string{"digital", "transformation", "modernization", "digitization", "innovation", "tech"}},
	{"Data Analytics", []string{"data", "analytics", "big data", "insights", "business intelligence", "metrics", "visualization"}},
	{"Blockchain", []string{"blockchain", "cryptocurrency", "decentralized", "distributed ledger", "crypto", "web3"}},
	{"Mobile Technology", []string{"mobile", "smartphone", "app", "ios", "android", "responsive"}},
	{"Iot", []string{"internet of things", "iot", "connected devices", "smart devices", "sensors"}},
}

// TrendScores 从行业洞察和市场分析文本提取趋势影响力得分。
// 关键词出现一次计10分，职业名包含趋势头部关键词再加25分，
// 最终得分平移20后钳制在55-95，按得分降序取前5个趋势。
func TrendScores(analysis *types.CareerAnalysis) []types.TrendPoint {
	if analysis == nil {
		return nil
	}
	combined := strings.ToLower(analysis.IndustryInsights + " " + analysis.MarketAnalysis)
	careerName := strings.ToLower(analysis.Career)

	points := make([]types.TrendPoint, 0, len(trendKeywords))
	for _, group := range trendKeywords {
		score := 0
		for _, kw := range group.keywords {
			score += strings.Count(combined, kw) * 10
		}
		for _, kw := range group.keywords[:2] {
			if strings.Contains(careerName, kw) {
				score += 25
				break
			}
		}
		points = append(points, types.TrendPoint{
			Trend:  group.name,
			Impact: clamp(float64(score+20), 55, 95),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Impact > points[j].Impact
	})
	if len(points) > 5 {
		points = points[:5]
	}
	return points
}

type salaryBand struct {
	entry, mid, senior, lead int
}

var salaryBands = map[string]salaryBand{
	"tech":        {75000, 100000, 140000, 180000},
	"finance":     {70000, 95000, 130000, 170000},
	"healthcare":  {60000, 80000, 110000, 145000},
	"education":   {45000, 60000, 80000, 105000},
	"marketing":   {50000, 70000, 95000, 125000},
	"creative":    {45000, 65000, 90000, 120000},
	"engineering": {70000, 90000, 125000, 160000},
	"consulting":  {80000, 110000, 150000, 200000},
	"sales":       {45000, 70000, 100000, 140000},
	"default":     {55000, 75000, 100000, 130000},
}

// 行业分类按声明顺序匹配职业名，先命中者生效
var industryMatchers = []keywordGroup{
	{"tech", []string{"software", "data", "engineer", "developer", "tech", "programming", "ai", "ml", "cyber"}},
	{"finance", []string{"finance", "banking", "investment", "accounting", "financial"}},
	{"healthcare", []string{"healthcare", "medical", "nurse", "doctor", "therapy", "clinical"}},
	{"education", []string{"teacher", "education", "professor", "instructor", "academic"}},
	{"marketing", []string{"marketing", "advertising", "digital marketing", "brand"}},
	{"creative", []string{"design", "creative", "art", "graphic", "ui", "ux", "visual"}},
	{"engineering", []string{"mechanical", "civil", "electrical", "chemical", "aerospace"}},
	{"consulting", []string{"consultant", "consulting", "advisory", "strategy"}},
	{"sales", []string{"sales", "business development", "account", "revenue"}},
}

// ClassifyIndustry 根据职业名判定行业类别，无法判定时返回default
func ClassifyIndustry(career string) string {
	lower := strings.ToLower(career)
	for _, m := range industryMatchers {
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				return m.name
			}
		}
	}
	return "default"
}

// SalaryProgression 按行业基准薪资乘以市场状况和地域系数，
// 生成四个经验档位的年薪序列。
func SalaryProgression(analysis *types.CareerAnalysis) []types.SalaryPoint {
	if analysis == nil {
		return nil
	}
	marketText := strings.ToLower(analysis.MarketAnalysis)
	band := salaryBands[ClassifyIndustry(analysis.Career)]

	multiplier := 1.0
	switch {
	case containsAny(marketText, "high demand", "competitive salary", "shortage", "premium"):
		multiplier = 1.25
	case containsAny(marketText, "growing", "increasing", "rising", "strong demand"):
		multiplier = 1.15
	case containsAny(marketText, "stable", "steady", "consistent"):
		multiplier = 1.05
	case containsAny(marketText, "declining", "competitive market", "oversaturated"):
		multiplier = 0.9
	}

	if containsAny(marketText, "san francisco", "silicon valley", "new york", "seattle") {
		multiplier *= 1.3
	} else if containsAny(marketText, "austin", "denver", "boston", "washington") {
		multiplier *= 1.2
	}

	return []types.SalaryPoint{
		{Level: "Entry Level (0-2 years)", Salary: int(float64(band.entry) * multiplier)},
		{Level: "Mid Level (3-7 years)", Salary: int(float64(band.mid) * multiplier)},
		{Level: "Senior Level (8-15 years)", Salary: int(float64(band.senior) * multiplier)},
		{Level: "Lead/Manager (15+ years)", Salary: int(float64(band.lead) * multiplier)},
	}
}

var skillKeywords = []keywordGroup{
	{"Technical Skills", []string{"programming", "software", "coding", "development", "technical", "tools", "technology", "systems"}},
	{"Communication", []string{"communication", "presentation", "writing", "speaking", "collaboration", "interpersonal", "client"}},
	{"Problem Solving", []string{"problem", "analytical", "critical thinking", "troubleshooting", "analysis", "solve", "debug"}},
	{"Leadership", []string{"leadership", "management", "team", "supervision", "mentoring", "guide", "lead", "coordinate"}},
	{"Creativity", []string{"creative", "design", "innovation", "artistic", "brainstorming", "imagination", "visual", "aesthetic"}},
	{"Project Management", []string{"project", "planning", "organization", "coordination", "timeline", "management", "agile", "scrum"}},
	{"Data Analysis", []string{"data", "statistics", "excel", "reporting", "metrics", "analysis", "insights", "visualization"}},
	{"Customer Service", []string{"customer", "client", "service", "support", "relationship", "satisfaction", "user experience"}},
	{"Research", []string{"research", "investigation", "study", "analysis", "explore", "discover", "evidence", "methodology"}},
	{"Sales & Marketing", []string{"sales", "marketing", "business development", "networking", "persuasion", "negotiation"}},
}

var skillBoosts = map[string]keywordGroup{
	"Technical Skills": {"", []string{"engineer", "developer", "data", "tech"}},
	"Creativity":       {"", []string{"design", "creative", "art", "ui", "ux"}},
	"Communication":    {"", []string{"marketing", "sales", "manager", "consultant"}},
}

// SkillImportance 从概览和学习路线文本提取技能重要性得分。
// 关键词出现一次计8分，职业相关技能加30或25分，
// 得分平移25后钳制在40-95，按得分降序取前6项。
func SkillImportance(analysis *types.CareerAnalysis) []types.SkillPoint {
	if analysis == nil {
		return nil
	}
	combined := strings.ToLower(analysis.Overview + " " + analysis.LearningRoadmap)
	careerName := strings.ToLower(analysis.Career)

	points := make([]types.SkillPoint, 0, len(skillKeywords))
	for _, group := range skillKeywords {
		score := 0
		for _, kw := range group.keywords {
			score += strings.Count(combined, kw) * 8
		}
		if boost, ok := skillBoosts[group.name]; ok {
			for _, kw := range boost.keywords {
				if strings.Contains(careerName, kw) {
					if group.name == "Communication" {
						score += 25
					} else {
						score += 30
					}
					break
				}
			}
		}
		points = append(points, types.SkillPoint{
			Skill:      group.name,
			Importance: clamp(float64(score+25), 40, 95),
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Importance > points[j].Importance
	})
	if len(points) > 6 {
		points = points[:6]
	}
	return points
}

var sectorKeywords = []keywordGroup{
	{"Technology", []string{"tech", "software", "it", "startup", "innovation", "digital", "saas", "cloud"}},
	{"Healthcare", []string{"healthcare", "medical", "hospital", "clinic", "pharma", "health", "biotech"}},
	{"Finance", []string{"finance", "banking", "investment", "insurance", "fintech", "financial services"}},
	{"Education", []string{"education", "university", "school", "academic", "training", "learning"}},
	{"Government", []string{"government", "public", "federal", "state", "municipal", "agency"}},
	{"Manufacturing", []string{"manufacturing", "industrial", "production", "factory", "automotive"}},
	{"Consulting", []string{"consulting", "advisory", "professional services", "strategy"}},
	{"Retail", []string{"retail", "sales", "commerce", "customer", "e-commerce"}},
	{"Energy", []string{"energy", "oil", "renewable", "utilities", "power"}},
	{"Media", []string{"media", "entertainment", "publishing", "broadcasting", "content"}},
}

// SectorDistribution 从市场分析文本推导就业板块分布。
// 先按关键词频次给各板块打分，取前5个板块按名次分档给占比，
// 最后整体归一化到总和100。
func SectorDistribution(analysis *types.CareerAnalysis) []types.SectorShare {
	if analysis == nil {
		return nil
	}
	marketText := strings.ToLower(analysis.MarketAnalysis)
	careerName := strings.ToLower(analysis.Career)

	type scored struct {
		sector string
		score  int
	}
	scores := make([]scored, 0, len(sectorKeywords))
	for _, group := range sectorKeywords {
		score := 0
		for _, kw := range group.keywords {
			score += strings.Count(marketText, kw) * 8
			if strings.Contains(careerName, kw) {
				score += 20
			}
		}
		scores = append(scores, scored{group.name, score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	shares := make([]types.SectorShare, 0, 5)
	total := 0.0
	for i, s := range scores[:5] {
		var pct float64
		switch i {
		case 0:
			pct = clamp(float64(30+s.score/4), 25, 45)
		case 1:
			pct = clamp(float64(20+s.score/6), 15, 30)
		default:
			pct = clamp(float64(10+s.score/8), 5, 20)
		}
		shares = append(shares, types.SectorShare{Sector: s.sector, Share: pct})
		total += pct
	}

	// 归一化到总和100
	for i := range shares {
		shares[i].Share = float64(int(shares[i].Share * 100 / total))
	}
	return shares
}

// BuildInsights 汇总四组图表数据
func BuildInsights(analysis *types.CareerAnalysis) *types.CareerInsights {
	if analysis == nil {
		return nil
	}
	return &types.CareerInsights{
		Career: analysis.Career,
		Trends: TrendScores(analysis),
		Salary: SalaryProgression(analysis),
		Skills: SkillImportance(analysis),
		Market: SectorDistribution(analysis),
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
