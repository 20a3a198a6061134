package types

import "time"

// UserProfile 用户画像，用于定制分析和学习路线
type UserProfile struct {
	Name            string   `json:"name,omitempty"`
	Age             int      `json:"age,omitempty"`
	EducationLevel  string   `json:"education_level,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	CurrentField    string   `json:"current_field,omitempty"`
	Location        string   `json:"location,omitempty"`
	CareerStage     string   `json:"career_stage,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	CareerGoals     string   `json:"career_goals,omitempty"`
}

// ExperienceLevel 根据工作年限划分经验档位
func (p *UserProfile) ExperienceLevel() string {
	switch {
	case p.ExperienceYears >= 10:
		return "advanced"
	case p.ExperienceYears >= 3:
		return "intermediate"
	default:
		return "beginner"
	}
}

// CareerAnalysis 一次完整的四小节职业分析结果
type CareerAnalysis struct {
	Career           string    `json:"career"`
	ExperienceLevel  string    `json:"experience_level"`
	Overview         string    `json:"overview"`
	MarketAnalysis   string    `json:"market_analysis"`
	LearningRoadmap  string    `json:"learning_roadmap"`
	IndustryInsights string    `json:"industry_insights"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Section 按小节名取出分析文本，未知小节返回空串
func (a *CareerAnalysis) Section(name string) string {
	switch name {
	case "overview":
		return a.Overview
	case "market_analysis":
		return a.MarketAnalysis
	case "learning_roadmap":
		return a.LearningRoadmap
	case "industry_insights":
		return a.IndustryInsights
	}
	return ""
}

// SetSection 按小节名写入分析文本
func (a *CareerAnalysis) SetSection(name, content string) {
	switch name {
	case "overview":
		a.Overview = content
	case "market_analysis":
		a.MarketAnalysis = content
	case "learning_roadmap":
		a.LearningRoadmap = content
	case "industry_insights":
		a.IndustryInsights = content
	}
}

// GuideChunk 参考语料的一个分块及其向量
type GuideChunk struct {
	ChunkID  int                    // 同一文档内的分块序号
	DocID    string                 // 来源文档标识
	Title    string                 // 文档标题
	Content  string                 // 分块文本
	Vector   []float64              // 嵌入向量
	Metadata map[string]interface{} // 附加元数据
}

// RetrievedChunk 检索返回的分块与相似度得分
type RetrievedChunk struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// ChatTurn 会话中的一条消息
type ChatTurn struct {
	Role    string `json:"role"` // "user" 或 "assistant"
	Content string `json:"content"`
}

// TrendPoint 行业趋势关键词及其影响力得分
type TrendPoint struct {
	Trend  string  `json:"trend"`
	Impact float64 `json:"impact"` // 0-100
}

// SalaryPoint 按经验档位的年薪(美元)
type SalaryPoint struct {
	Level  string `json:"level"`
	Salary int    `json:"salary"`
}

// SkillPoint 技能及其重要性得分
type SkillPoint struct {
	Skill      string  `json:"skill"`
	Importance float64 `json:"importance"` // 0-100
}

// SectorShare 就业市场板块占比(总和归一化为100)
type SectorShare struct {
	Sector string  `json:"sector"`
	Share  float64 `json:"share"`
}

// CareerInsights 从分析文本推导出的图表数据集合
type CareerInsights struct {
	Career  string        `json:"career"`
	Trends  []TrendPoint  `json:"trends"`
	Salary  []SalaryPoint `json:"salary"`
	Skills  []SkillPoint  `json:"skills"`
	Market  []SectorShare `json:"market"`
}
