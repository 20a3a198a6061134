package storage

import "time"

// EmailDeliveryMessage 报告邮件投递消息，经由outbox中继发布到RabbitMQ
type EmailDeliveryMessage struct {
	// 与数据库表字段一致的主要字段
	DeliveryID  string    `json:"delivery_id"`        // 投递记录UUID，主键
	ReportID    string    `json:"report_id"`          // 关联的分析报告
	Recipient   string    `json:"recipient"`          // 收件人地址
	Kind        string    `json:"kind"`               // summary / detailed
	Career      string    `json:"career"`             // 报告对应的职业
	UserName    string    `json:"user_name,omitempty"`
	RequestedAt time.Time `json:"requested_at"` // 请求时间戳

	// 重新投递时的辅助字段
	AttemptCount int    `json:"attempt_count,omitempty"` // 已尝试次数
	Error        string `json:"error,omitempty"`         // 上一次失败的错误信息
}
