package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// AnalysisModulePrefix 职业分析模块
	AnalysisModulePrefix = "analysis"
	// ChatModulePrefix 对话模块
	ChatModulePrefix = "chat"
	// SearchModulePrefix 搜索缓存模块
	SearchModulePrefix = "search"

	// EntitySection 分析小节实体
	EntitySection = "section"
	// EntityResult 完整分析结果实体
	EntityResult = "result"
	// EntityHistory 会话历史实体
	EntityHistory = "history"
	// EntityText 文本实体
	EntityText = "text"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyAnalysisSection 单个分析小节缓存 (STRING)
	// 格式: app:analysis:section:{career}:{section}:{level}
	KeyAnalysisSection = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntitySection + ":%s:%s:%s"

	// KeyAnalysisResult 完整分析结果缓存 (STRING, JSON)
	// 格式: app:analysis:result:{career}:{level}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s:%s"

	// KeyAnalysisLock 分析任务的分布式锁 (STRING)
	// 格式: app:analysis:lock:{career}:{level}
	KeyAnalysisLock = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityLock + ":%s:%s"

	// KeyChatHistory 会话历史 (LIST)
	// 格式: app:chat:history:{sessionID}
	KeyChatHistory = AppPrefix + ":" + ChatModulePrefix + ":" + EntityHistory + ":%s"

	// KeySearchText 网络搜索结果缓存 (STRING)
	// 格式: app:search:text:{queryHash}
	KeySearchText = AppPrefix + ":" + SearchModulePrefix + ":" + EntityText + ":%s"
)
