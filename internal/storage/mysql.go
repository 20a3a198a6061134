package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"career-agent-go/internal/config"
	"career-agent-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("career-agent-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Database 关系数据库接口
type Database interface {
	// DB 返回GORM数据库连接实例
	DB() *gorm.DB

	// Close 关闭数据库连接
	Close() error
}

// 确保MySQL实现了Database接口
var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,                             // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel), // 设置日志级别
		PrepareStmt:                              true,                             // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.UserProfile{},
		&models.CareerReport{},
		&models.EmailDelivery{},
		&models.ChatSession{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// SaveProfile 保存用户画像。ProfileID为空时生成新的UUIDv7并创建记录，
// 否则按主键做整行更新。
func (m *MySQL) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("用户画像不能为空")
	}
	if profile.ProfileID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		profile.ProfileID = newUUID.String()
		return m.db.WithContext(ctx).Create(profile).Error
	}
	return m.db.WithContext(ctx).Save(profile).Error
}

// GetProfileByID 通过ProfileID获取用户画像
func (m *MySQL) GetProfileByID(ctx context.Context, profileID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := m.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SaveReport 保存职业分析报告。ReportID为空时生成新ID。
func (m *MySQL) SaveReport(ctx context.Context, report *models.CareerReport) error {
	if report == nil {
		return fmt.Errorf("分析报告不能为空")
	}
	if report.ReportID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		report.ReportID = newUUID.String()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}
	return m.db.WithContext(ctx).Create(report).Error
}

// GetReportByID 通过ReportID获取报告
func (m *MySQL) GetReportByID(ctx context.Context, reportID string) (*models.CareerReport, error) {
	var report models.CareerReport
	if err := m.db.WithContext(ctx).Where("report_id = ?", reportID).First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetLatestReport 返回指定职业与经验级别下最近生成的一份报告。
// 没有匹配记录时返回 gorm.ErrRecordNotFound。
func (m *MySQL) GetLatestReport(ctx context.Context, career, experienceLevel string) (*models.CareerReport, error) {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.GetLatestReport", trace.WithAttributes(
		attribute.String("report.career", career),
		attribute.String("report.experience_level", experienceLevel),
	))
	defer span.End()

	var report models.CareerReport
	err := m.db.WithContext(ctx).
		Where("career = ? AND experience_level = ?", career, experienceLevel).
		Order("generated_at DESC").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Ok, "report not found")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("report.id", report.ReportID))
	return &report, nil
}

// CreateEmailDeliveryWithOutbox 在同一个事务中创建邮件投递记录和对应的发件箱消息。
// 外层事务提交后，中继进程会把发件箱消息发布到RabbitMQ。
func (m *MySQL) CreateEmailDeliveryWithOutbox(ctx context.Context, delivery *models.EmailDelivery, msg *EmailDeliveryMessage, exchange, routingKey string) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CreateEmailDeliveryWithOutbox", trace.WithAttributes(
		attribute.String("delivery.report_id", delivery.ReportID),
		attribute.String("delivery.kind", delivery.Kind),
	))
	defer span.End()

	if delivery.DeliveryID == "" {
		newUUID, err := uuid.NewV7()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to generate UUIDv7")
			return fmt.Errorf("生成UUIDv7失败: %w", err)
		}
		delivery.DeliveryID = newUUID.String()
	}
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPending
	}
	msg.DeliveryID = delivery.DeliveryID

	payload, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal payload")
		return fmt.Errorf("序列化邮件投递消息失败: %w", err)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(delivery).Error; err != nil {
			return fmt.Errorf("创建邮件投递记录失败: %w", err)
		}
		outbox := &models.OutboxMessage{
			AggregateID:      delivery.DeliveryID,
			EventType:        "email.delivery.requested",
			Payload:          string(payload),
			TargetExchange:   exchange,
			TargetRoutingKey: routingKey,
			Status:           "PENDING",
		}
		if err := tx.Create(outbox).Error; err != nil {
			return fmt.Errorf("创建发件箱消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("delivery.id", delivery.DeliveryID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateDeliveryStatus 更新邮件投递状态并累加尝试次数。
// errMsg为空时清空错误信息；状态为SENT时记录投递时间。
func (m *MySQL) UpdateDeliveryStatus(ctx context.Context, deliveryID, status, errMsg string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	if status == models.DeliveryStatusSent {
		now := time.Now()
		updates["delivered_at"] = &now
	}
	return m.db.WithContext(ctx).Model(&models.EmailDelivery{}).
		Where("delivery_id = ?", deliveryID).
		Updates(updates).Error
}

// SetDeliverySubject 记录最终发出的邮件主题
func (m *MySQL) SetDeliverySubject(ctx context.Context, deliveryID, subject string) error {
	return m.db.WithContext(ctx).Model(&models.EmailDelivery{}).
		Where("delivery_id = ?", deliveryID).
		Update("subject", subject).Error
}

// SetDeliveryArchiveObject 记录归档到MinIO的对象键
func (m *MySQL) SetDeliveryArchiveObject(ctx context.Context, deliveryID, objectKey string) error {
	return m.db.WithContext(ctx).Model(&models.EmailDelivery{}).
		Where("delivery_id = ?", deliveryID).
		Update("archive_object", objectKey).Error
}

// GetDeliveryByID 通过DeliveryID获取投递记录
func (m *MySQL) GetDeliveryByID(ctx context.Context, deliveryID string) (*models.EmailDelivery, error) {
	var delivery models.EmailDelivery
	if err := m.db.WithContext(ctx).Where("delivery_id = ?", deliveryID).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// TouchChatSession 登记或刷新会话记录：不存在则创建，存在则累加轮次并刷新活跃时间
func (m *MySQL) TouchChatSession(ctx context.Context, sessionID, career string, profileID *string) error {
	now := time.Now()
	session := models.ChatSession{
		SessionID:  sessionID,
		ProfileID:  profileID,
		Career:     career,
		TurnCount:  1,
		LastActive: now,
	}
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"turn_count":  gorm.Expr("turn_count + 1"),
			"last_active": now,
			"career":      career,
		}),
	}).Create(&session).Error
}
