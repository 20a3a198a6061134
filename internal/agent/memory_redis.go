package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"career-agent-go/internal/constants"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisChatMemory 实现了 ChatMemory 接口，使用 Redis List 作为持久化存储。
// 每个会话只保留最近 maxMessages 条消息，旧消息通过 LTRIM 淘汰。
type RedisChatMemory struct {
	redisClient *redis.Client
	ttl         time.Duration // 聊天记录过期时间，0表示不过期
	maxMessages int           // 每个会话保留的消息数上限，0表示不限制
}

// NewRedisChatMemory 创建一个新的 RedisChatMemory 实例。
// redisClient: 一个已连接和配置好的 go-redis 客户端实例。
// ttl: 聊天记录在 Redis 中的可选过期时间。如果为0，则不过期。
// maxMessages: 每个会话保留的消息条数上限（一问一答算两条）。
func NewRedisChatMemory(redisClient *redis.Client, ttl time.Duration, maxMessages int) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisChatMemory{
		redisClient: redisClient,
		ttl:         ttl,
		maxMessages: maxMessages,
	}, nil
}

// buildKey 为给定的 sessionId 构建 Redis 键。
func (rcm *RedisChatMemory) buildKey(sessionId string) string {
	return fmt.Sprintf(constants.KeyChatHistory, sessionId)
}

// GetHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) GetHistory(sessionId string) ([]*schema.Message, error) {
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	// 获取 List 中的所有元素 (JSON 字符串)
	serializedMessages, err := rcm.redisClient.LRange(ctx, key, 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []*schema.Message{}, nil // Key 不存在，返回空历史
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from redis for session %s: %w", sessionId, err)
	}

	messages := make([]*schema.Message, 0, len(serializedMessages))
	for _, sm := range serializedMessages {
		var msg schema.Message
		if err := json.Unmarshal([]byte(sm), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message for session %s: %w. Corrupted data: %s", sessionId, err, sm)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

// AddMessage 实现 ChatMemory 接口
func (rcm *RedisChatMemory) AddMessage(sessionId string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("cannot add nil message to chat history for session %s", sessionId)
	}
	return rcm.AddMessages(sessionId, []*schema.Message{message})
}

// AddMessages 实现 ChatMemory 接口。
// 追加、窗口截断和TTL刷新在一个事务Pipeline中完成。
func (rcm *RedisChatMemory) AddMessages(sessionId string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	serialized := make([]interface{}, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			return fmt.Errorf("cannot add nil message in a batch to chat history for session %s", sessionId)
		}
		data, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message in batch for session %s: %w", sessionId, err)
		}
		serialized = append(serialized, data)
	}

	pipe := rcm.redisClient.TxPipeline()
	pipe.RPush(ctx, key, serialized...)
	if rcm.maxMessages > 0 {
		// 只保留列表尾部最近的 maxMessages 条
		pipe.LTrim(ctx, key, int64(-rcm.maxMessages), -1)
	}
	if rcm.ttl > 0 {
		pipe.Expire(ctx, key, rcm.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add messages to redis for session %s: %w", sessionId, err)
	}
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (rcm *RedisChatMemory) ClearHistory(sessionId string) error {
	key := rcm.buildKey(sessionId)
	ctx := context.Background()

	if err := rcm.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear chat history from redis for session %s: %w", sessionId, err)
	}
	return nil
}
