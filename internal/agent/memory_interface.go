package agent

import (
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 定义了聊天记忆存储的接口
type ChatMemory interface {
	// GetHistory 获取指定会话ID的聊天历史记录。
	// 如果会话不存在，应返回一个空的 Message 切片和 nil 错误。
	GetHistory(sessionId string) ([]*schema.Message, error)

	// AddMessage 向指定会话ID的聊天历史记录中添加一条消息。
	AddMessage(sessionId string, message *schema.Message) error

	// AddMessages 向指定会话ID的聊天历史记录中批量添加多条消息。
	AddMessages(sessionId string, messages []*schema.Message) error

	// ClearHistory 清除指定会话ID的所有聊天历史记录。
	// 如果会话不存在，此操作应静默成功。
	ClearHistory(sessionId string) error
}

// InMemoryChatMemory 是 ChatMemory 接口的一个简单内存实现。
// 注意：此实现不是持久化的，仅用于测试和简单场景。
type InMemoryChatMemory struct {
	mu sync.RWMutex
	// histories map 的键是 sessionId，值是该会话的消息列表
	histories map[string][]*schema.Message
	// maxMessages > 0 时，每个会话只保留最近的 maxMessages 条消息
	maxMessages int
}

// NewInMemoryChatMemory 创建一个新的 InMemoryChatMemory 实例。
// maxMessages 为每个会话保留的消息条数上限，0表示不限制。
func NewInMemoryChatMemory(maxMessages int) *InMemoryChatMemory {
	return &InMemoryChatMemory{
		histories:   make(map[string][]*schema.Message),
		maxMessages: maxMessages,
	}
}

// GetHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) GetHistory(sessionId string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.histories[sessionId]
	if !ok {
		// 如果会话不存在，返回空切片而不是 nil，以方便调用者处理
		return []*schema.Message{}, nil
	}
	// 返回历史记录的副本，以防止外部修改内部存储。
	// 这里假设调用者不会修改返回的 Message 指针指向的内容。
	cpy := make([]*schema.Message, len(history))
	copy(cpy, history)
	return cpy, nil
}

// AddMessage 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessage(sessionId string, message *schema.Message) error {
	if message == nil {
		return fmt.Errorf("cannot add nil message to chat history for session %s", sessionId)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[sessionId] = m.trim(append(m.histories[sessionId], message))
	return nil
}

// AddMessages 实现 ChatMemory 接口
func (m *InMemoryChatMemory) AddMessages(sessionId string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg == nil {
			return fmt.Errorf("cannot add nil message in a batch to chat history for session %s", sessionId)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[sessionId] = m.trim(append(m.histories[sessionId], messages...))
	return nil
}

// ClearHistory 实现 ChatMemory 接口
func (m *InMemoryChatMemory) ClearHistory(sessionId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, sessionId)
	return nil
}

// trim 截断历史到最近的 maxMessages 条
func (m *InMemoryChatMemory) trim(history []*schema.Message) []*schema.Message {
	if m.maxMessages > 0 && len(history) > m.maxMessages {
		return history[len(history)-m.maxMessages:]
	}
	return history
}
