package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"career-agent-go/internal/agent"
	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/api/router"
	"career-agent-go/internal/config"
	"career-agent-go/internal/embedder"
	"career-agent-go/internal/guidance"
	"career-agent-go/internal/logger"
	"career-agent-go/internal/mailer"
	"career-agent-go/internal/outbox"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/tracing"
	pkgagent "career-agent-go/pkg/agent"
	"career-agent-go/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"        //nolint:gochecknoglobals
	serviceName = "career-agent" //nolint:gochecknoglobals
)

// @title           Career Guidance API
// @version         1.0
// @description     AI career guidance service: analysis, chat and email reports
// @BasePath  /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	// .env 不存在时静默跳过，环境变量仍可直接注入
	_ = godotenv.Load()

	// 1. 加载配置文件
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志系统
	initLogger(cfg)
	logger.Info().Str("address", cfg.Server.Address).Msg("配置加载成功")

	// 3. 初始化链路追踪
	ctx := context.Background()
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
			ServiceName:  cfg.Tracing.ServiceName,
			OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
			SampleRatio:  cfg.Tracing.SampleRatio,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化链路追踪失败")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("关闭链路追踪导出器失败")
			}
		}()
		logger.Info().Msg("链路追踪初始化成功")
	}

	// 4. 初始化存储管理器
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil {
		logger.Fatal().Msg("MySQL实例未初始化，无法提供报告和画像存储")
	}

	// 5. 初始化职业分析编排器
	system, err := initializeGuidance(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化职业分析编排器失败")
	}
	logger.Info().Msg("职业分析编排器初始化成功")

	// 6. 初始化会话助手
	assistant, err := initializeAssistant(cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化会话助手失败")
	}
	logger.Info().Msg("会话助手初始化成功")

	// 7. 启动发件箱中继和邮件投递消费者
	if storageManager.RabbitMQ != nil {
		relay := outbox.NewMessageRelay(
			storageManager.MySQL.DB(),
			storageManager.RabbitMQ,
			log.New(os.Stdout, "[OutboxRelay] ", log.LstdFlags),
		)
		relay.Start()
		defer relay.Stop()
		logger.Info().Msg("发件箱消息中继已启动")

		if cfg.SMTP.Host != "" {
			stopMailer, err := initializeMailer(cfg, storageManager)
			if err != nil {
				logger.Fatal().Err(err).Msg("启动邮件投递消费者失败")
			}
			defer stopMailer()
			logger.Info().Msg("邮件投递消费者已启动")
		} else {
			logger.Warn().Msg("SMTP未配置，跳过邮件投递消费者")
		}
	} else {
		logger.Warn().Msg("RabbitMQ未配置，邮件投递功能不可用")
	}

	// 8. 创建HTTP服务器并注册路由
	tracer, tracingCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
	)
	h.Use(hertztracing.ServerMiddleware(tracingCfg))

	router.RegisterRoutes(h, cfg,
		handler.NewCareerHandler(cfg, system),
		handler.NewChatHandler(cfg, assistant, system, storageManager.MySQL),
		handler.NewProfileHandler(storageManager.MySQL),
		handler.NewEmailReportHandler(cfg, storageManager.MySQL),
	)

	// 9. 启动HTTP服务器
	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器已启动")

	// 10. 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化zerolog，并把Hertz的日志也接到同一个输出上
func initLogger(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
	}
	if logConfig.Format == "" {
		logConfig.Format = "json"
	}
	if logConfig.TimeFormat == "" {
		logConfig.TimeFormat = time.RFC3339
	}
	logger.Init(logConfig)

	logger.Logger = logger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	glog.SetLogger(hertzadapter.From(logger.Logger))
}

// newRateLimitedChatModel 创建Mistral聊天模型并包上QPM限流代理。
// modelName为空时使用全局默认模型。
func newRateLimitedChatModel(cfg *config.Config, modelName string, qpm, maxRetries, retryWaitSeconds int) (model.ToolCallingChatModel, error) {
	if modelName == "" {
		modelName = cfg.Mistral.Model
	}
	chatModel, err := pkgagent.NewMistralChatModel(cfg.Mistral.APIKey, modelName, cfg.Mistral.APIURL)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewLLMWithRateLimit(
		chatModel,
		modelName,
		cfg.ModelQPMLimits,
		qpm,
		maxRetries,
		time.Duration(retryWaitSeconds)*time.Second,
	), nil
}

func initializeGuidance(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) (*guidance.System, error) {
	analysisModel, err := newRateLimitedChatModel(cfg, cfg.Analysis.ModelName,
		cfg.Analysis.QPM, cfg.Analysis.MaxRetries, cfg.Analysis.RetryWaitSeconds)
	if err != nil {
		return nil, err
	}

	opts := []guidance.SystemOption{
		guidance.WithReportStore(storageManager.MySQL),
	}

	// RAG检索需要Qdrant和嵌入模型都就绪，缺一则退化为纯LLM生成
	if storageManager.Qdrant != nil {
		mistralEmbedder, err := embedder.NewMistralEmbedder(cfg.Mistral.APIKey, cfg.Mistral.Embedding)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化嵌入模型失败，跳过RAG检索")
		} else {
			chunker, err := guidance.NewChunker(cfg.Analysis.ChunkTokens, cfg.Analysis.ChunkOverlap)
			if err != nil {
				logger.Warn().Err(err).Msg("初始化分块器失败，跳过RAG检索")
			} else {
				retriever, err := guidance.NewRetriever(mistralEmbedder, storageManager.Qdrant, chunker, cfg.Analysis.RetrievalTopK)
				if err != nil {
					return nil, err
				}
				if err := retriever.EnsureSeeded(ctx); err != nil {
					logger.Warn().Err(err).Msg("职业指南语料灌注失败，检索可能返回空结果")
				}
				opts = append(opts, guidance.WithRetriever(retriever))
				logger.Info().Msg("RAG检索初始化成功")
			}
		}
	} else {
		logger.Warn().Msg("Qdrant未配置，跳过RAG检索")
	}

	if cfg.SerpAPI.APIKey != "" {
		searcher, err := guidance.NewSerpAPIClient(&cfg.SerpAPI, storageManager.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化SerpAPI客户端失败，跳过网络搜索补充")
		} else {
			opts = append(opts, guidance.WithWebSearcher(searcher))
			logger.Info().Msg("SerpAPI搜索初始化成功")
		}
	}

	return guidance.NewSystem(analysisModel, storageManager.Redis, &cfg.Analysis, opts...)
}

func initializeAssistant(cfg *config.Config, storageManager *storage.Storage) (*agent.CareerAssistant, error) {
	chatModel, err := newRateLimitedChatModel(cfg, cfg.Chat.ModelName,
		cfg.Analysis.QPM, cfg.Analysis.MaxRetries, cfg.Analysis.RetryWaitSeconds)
	if err != nil {
		return nil, err
	}

	var memory agent.ChatMemory
	if storageManager.Redis != nil {
		redisMemory, err := agent.NewRedisChatMemory(
			storageManager.Redis.Client,
			storageManager.Redis.GetChatHistoryDuration(),
			cfg.Chat.HistoryWindow,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis会话存储失败，退化为进程内存储")
		} else {
			memory = redisMemory
		}
	}

	return agent.NewCareerAssistant(chatModel, memory, &cfg.Chat)
}

func initializeMailer(cfg *config.Config, storageManager *storage.Storage) (func(), error) {
	composeModel, err := newRateLimitedChatModel(cfg, cfg.Email.ComposeModelName,
		cfg.Analysis.QPM, cfg.Analysis.MaxRetries, cfg.Analysis.RetryWaitSeconds)
	if err != nil {
		return nil, err
	}
	composer := mailer.NewComposer(composeModel, &cfg.Email)

	sender, err := mailer.NewSMTPSender(&cfg.SMTP)
	if err != nil {
		return nil, err
	}

	// MinIO缺席时仅跳过HTML归档，不影响投递
	var archiver mailer.ReportArchiver
	if storageManager.MinIO != nil {
		archiver = storageManager.MinIO
	}

	consumer, err := mailer.NewConsumer(composer, sender, storageManager.MySQL, archiver,
		storageManager.RabbitMQ, &cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	return consumer.Start()
}
