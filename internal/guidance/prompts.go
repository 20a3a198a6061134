package guidance

import (
	"fmt"

	"career-agent-go/internal/constants"
)

// SectionQuery 构造指定分析小节的生成查询。
// 四个小节各有固定的结构化要点，模型按要点逐条展开。
func SectionQuery(section, career, experienceLevel string) string {
	switch section {
	case constants.AnalysisSectionOverview:
		return overviewQuery(career)
	case constants.AnalysisSectionMarket:
		return marketQuery(career)
	case constants.AnalysisSectionRoadmap:
		return roadmapQuery(career, experienceLevel)
	case constants.AnalysisSectionInsights:
		return insightsQuery(career)
	}
	return ""
}

// SectionTitle 返回小节渲染成markdown时使用的一级标题
func SectionTitle(section, career string) string {
	switch section {
	case constants.AnalysisSectionOverview:
		return fmt.Sprintf("%s Career Analysis", career)
	case constants.AnalysisSectionMarket:
		return fmt.Sprintf("%s Market Analysis", career)
	case constants.AnalysisSectionRoadmap:
		return fmt.Sprintf("%s Learning Roadmap", career)
	case constants.AnalysisSectionInsights:
		return fmt.Sprintf("%s Industry Insights", career)
	}
	return career
}

// SectionCacheKey 返回小节查询的缓存标识。
// 只有学习路线与经验档位相关，其余小节在同一职业下共享缓存。
func SectionCacheKey(section, career, experienceLevel string) string {
	switch section {
	case constants.AnalysisSectionOverview:
		return fmt.Sprintf("%s_overview", career)
	case constants.AnalysisSectionMarket:
		return fmt.Sprintf("%s_market", career)
	case constants.AnalysisSectionRoadmap:
		return fmt.Sprintf("%s_roadmap_%s", career, experienceLevel)
	case constants.AnalysisSectionInsights:
		return fmt.Sprintf("%s_insights", career)
	}
	return career
}

// generationPrompt 把查询包装成完整的生成提示词
func generationPrompt(query string) string {
	return fmt.Sprintf(`Please provide comprehensive and detailed information on the following query: %s

Structure your response clearly with headings and bullet points.
Make it detailed, informative, and professional.
Include specific examples and actionable insights where possible.
Focus on current industry standards and trends (2024-2025).
Provide realistic and accurate information based on current market conditions.
Use markdown formatting for better readability.`, query)
}

// FormatSectionResult 把生成结果渲染成带标题的markdown文档
func FormatSectionResult(content, title string) string {
	formatted := fmt.Sprintf("# %s\n\n", title)
	if content != "" {
		formatted += content
	} else {
		formatted += "No results available or error occurred."
	}
	return formatted
}

func overviewQuery(career string) string {
	return fmt.Sprintf("Create a detailed overview of the %s career with the following structure:\n"+
		"1. **Role Overview**: What do %s professionals do? Include main purpose and impact.\n"+
		"2. **Key Responsibilities**: List 8-10 main tasks and responsibilities with specific examples.\n"+
		"3. **Required Technical Skills**: List specific technical skills, tools, and software needed.\n"+
		"4. **Required Soft Skills**: List essential soft skills and interpersonal abilities.\n"+
		"5. **Educational Background**: What degrees, certifications, or qualifications are typically required?\n"+
		"6. **Career Entry Paths**: Describe 3-4 different ways someone can enter this field.\n"+
		"7. **Prerequisites**: What background knowledge or experience is helpful?\n\n"+
		"Provide specific, actionable information with real-world examples.", career, career)
}

func marketQuery(career string) string {
	return fmt.Sprintf("Analyze the job market for %s professionals with the following structure:\n"+
		"1. **Job Growth Projections**: How is job growth trending? Include specific percentages if available.\n"+
		"2. **Salary Ranges**: What are the salary ranges by experience level (entry: 0-2 years, mid: 3-7 years, senior: 8+ years)?\n"+
		"3. **Top Industries**: Which 5-7 industries hire %s professionals most?\n"+
		"4. **Geographic Hotspots**: Which cities/regions have the most opportunities?\n"+
		"5. **Market Demand**: Is there high demand, competitive market, or oversaturation?\n"+
		"6. **Emerging Trends**: What new trends are affecting this field in 2024-2025?\n"+
		"7. **Job Market Outlook**: What's the 5-10 year outlook for this career?\n"+
		"8. **Competition Level**: How competitive is it to get hired?\n\n"+
		"Include specific data, statistics, and current market conditions where possible.", career, career)
}

func roadmapQuery(career, experienceLevel string) string {
	return fmt.Sprintf("Create a comprehensive learning roadmap for becoming a %s professional at the %s level:\n"+
		"1. **Core Skills to Develop**: What specific technical and soft skills are essential? Prioritize by importance.\n"+
		"2. **Education Requirements**: Degrees, certificates, bootcamps, or alternative qualifications needed.\n"+
		"3. **Recommended Courses**: Specific online courses, platforms, and training programs with names.\n"+
		"4. **Learning Resources**: Books, websites, YouTube channels, podcasts, and communities.\n"+
		"5. **Practical Experience**: How to gain hands-on experience, internships, and build portfolio.\n"+
		"6. **Certifications**: Industry-recognized certifications to pursue, with difficulty levels.\n"+
		"7. **Timeline**: Realistic timeline for skill acquisition and career transition (months/years).\n"+
		"8. **Milestones**: Key milestones to track progress and validate learning.\n"+
		"9. **Common Pitfalls**: What mistakes to avoid during learning process.\n\n"+
		"Make it actionable with specific recommendations and realistic timeframes.", career, experienceLevel)
}

func insightsQuery(career string) string {
	return fmt.Sprintf("Provide comprehensive industry insights for %s professionals:\n"+
		"1. **Workplace Culture**: What is the typical work environment and company culture like?\n"+
		"2. **Day-to-Day Activities**: What does a typical workday include? Provide hour-by-hour breakdown.\n"+
		"3. **Career Progression**: What career advancement paths and promotion tracks exist?\n"+
		"4. **Work-Life Balance**: How is work-life balance? Include typical hours and flexibility.\n"+
		"5. **Remote Work**: Are remote work opportunities available? What percentage work remotely?\n"+
		"6. **Industry Trends**: Current and emerging technology trends affecting this role.\n"+
		"7. **Success Strategies**: What tips and strategies help professionals succeed?\n"+
		"8. **Common Challenges**: What obstacles and difficulties do professionals face?\n"+
		"9. **Networking**: How important is networking and professional relationships?\n"+
		"10. **Future Outlook**: How will AI, automation, and technology changes affect this role?\n"+
		"11. **Job Security**: How stable is this career path?\n"+
		"12. **Stress Levels**: What are typical stress levels and pressure points?\n\n"+
		"Provide practical insights and real-world perspectives from industry professionals.", career)
}
