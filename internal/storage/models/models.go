package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile 用户画像主表
type UserProfile struct {
	ProfileID       string         `gorm:"type:char(36);primaryKey"`
	Name            string         `gorm:"type:varchar(255)"`
	Age             int            `gorm:"type:int"`
	EducationLevel  string         `gorm:"type:varchar(100)"`
	ExperienceYears int            `gorm:"type:int;default:0"`
	CurrentField    string         `gorm:"type:varchar(255)"`
	Location        string         `gorm:"type:varchar(255)"`
	CareerStage     string         `gorm:"type:varchar(50)"`
	InterestsJSON   datatypes.JSON `gorm:"type:json"`
	SkillsJSON      datatypes.JSON `gorm:"type:json"`
	CareerGoals     string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// CareerReport 职业分析报告表，保存四个小节的完整文本
type CareerReport struct {
	ReportID         string         `gorm:"type:char(36);primaryKey"`
	ProfileID        *string        `gorm:"type:char(36);index:idx_cr_profile_id"` // 匿名分析时为空
	Career           string         `gorm:"type:varchar(255);not null;index:idx_cr_career_level,priority:1"`
	ExperienceLevel  string         `gorm:"type:varchar(50);not null;index:idx_cr_career_level,priority:2"`
	Overview         string         `gorm:"type:mediumtext"`
	MarketAnalysis   string         `gorm:"type:mediumtext"`
	LearningRoadmap  string         `gorm:"type:mediumtext"`
	IndustryInsights string         `gorm:"type:mediumtext"`
	InsightsJSON     datatypes.JSON `gorm:"type:json"` // 推导出的图表数据快照
	ModelName        string         `gorm:"type:varchar(100)"`
	GeneratedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_cr_generated_at"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Profile *UserProfile `gorm:"foreignKey:ProfileID;references:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (CareerReport) TableName() string {
	return "career_reports"
}

// EmailDelivery 报告邮件投递记录表
type EmailDelivery struct {
	DeliveryID     string     `gorm:"type:char(36);primaryKey"`
	ReportID       string     `gorm:"type:char(36);not null;index:idx_ed_report_id"`
	Recipient      string     `gorm:"type:varchar(255);not null"`
	Kind           string     `gorm:"type:varchar(20);not null;default:'summary'"` // summary / detailed
	Subject        string     `gorm:"type:varchar(500)"`
	ArchiveObject  string     `gorm:"type:varchar(1024)"` // MinIO中渲染后HTML的对象键
	Status         string     `gorm:"type:varchar(50);default:'PENDING';index:idx_ed_status"`
	ErrorMessage   string     `gorm:"type:text"`
	AttemptCount   int        `gorm:"default:0"`
	DeliveredAt    *time.Time `gorm:"type:datetime(6)"`
	CreatedAt      time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Report *CareerReport `gorm:"foreignKey:ReportID;references:ReportID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (EmailDelivery) TableName() string {
	return "email_deliveries"
}

// 邮件投递状态
const (
	DeliveryStatusPending   = "PENDING"
	DeliveryStatusComposing = "COMPOSING"
	DeliveryStatusSent      = "SENT"
	DeliveryStatusFailed    = "FAILED"
)

// ChatSession 会话登记表。消息体存放在Redis列表中，这里只记录归属关系。
type ChatSession struct {
	SessionID  string    `gorm:"type:char(36);primaryKey"`
	ProfileID  *string   `gorm:"type:char(36);index:idx_cs_profile_id"`
	Career     string    `gorm:"type:varchar(255);index:idx_cs_career"`
	TurnCount  int       `gorm:"default:0"`
	LastActive time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	CreatedAt  time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt  time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Profile *UserProfile `gorm:"foreignKey:ProfileID;references:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
