package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/config"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplier struct {
	answer       string
	err          error
	history      []types.ChatTurn
	gotSessionID string
	gotCareer    string
	gotQuestion  string
	gotAnalysis  *types.CareerAnalysis
	cleared      []string
}

func (f *fakeReplier) Reply(ctx context.Context, sessionID, career string, analysis *types.CareerAnalysis, question string) (string, error) {
	f.gotSessionID = sessionID
	f.gotCareer = career
	f.gotAnalysis = analysis
	f.gotQuestion = question
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeReplier) History(sessionID string) ([]types.ChatTurn, error) {
	f.gotSessionID = sessionID
	return f.history, nil
}

func (f *fakeReplier) ClearSession(sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return nil
}

type fakeToucher struct {
	sessionID string
	career    string
	calls     int
}

func (f *fakeToucher) TouchChatSession(ctx context.Context, sessionID, career string, profileID *string) error {
	f.sessionID = sessionID
	f.career = career
	f.calls++
	return nil
}

func newChatTestEngine(t *testing.T, replier *fakeReplier, analyzer *fakeAnalyzer, toucher handler.SessionToucher) *server.Hertz {
	t.Helper()
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	chat := handler.NewChatHandler(&config.Config{}, replier, analyzer, toucher)
	rg := h.Group("/api/v1")
	rg.POST("/chat", chat.HandleChat)
	rg.GET("/chat/:session_id/history", chat.HandleHistory)
	rg.DELETE("/chat/:session_id", chat.HandleClearSession)
	return h
}

func TestHandleChat_NewSession(t *testing.T) {
	replier := &fakeReplier{answer: "Data scientists often start with Python."}
	analyzer := &fakeAnalyzer{cached: sampleCareerAnalysis()}
	toucher := &fakeToucher{}
	h := newChatTestEngine(t, replier, analyzer, toucher)

	resp := performJSON(t, h, "POST", "/api/v1/chat", map[string]interface{}{
		"career":   "Data Scientist",
		"question": "What skills should I learn first?",
	})
	require.Equal(t, consts.StatusOK, resp.Code)

	var got handler.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.NotEmpty(t, got.SessionID, "session_id为空时应自动生成")
	assert.Equal(t, replier.answer, got.Answer)

	assert.Equal(t, got.SessionID, replier.gotSessionID)
	assert.Equal(t, "Data Scientist", replier.gotCareer)
	require.NotNil(t, replier.gotAnalysis, "有缓存分析时应作为上下文传给助手")
	assert.Equal(t, 1, toucher.calls, "会话元数据应落库一次")
	assert.Equal(t, got.SessionID, toucher.sessionID)
}

func TestHandleChat_ExistingSessionWithoutAnalysis(t *testing.T) {
	replier := &fakeReplier{answer: "It depends on the company."}
	h := newChatTestEngine(t, replier, &fakeAnalyzer{}, nil)

	resp := performJSON(t, h, "POST", "/api/v1/chat", map[string]interface{}{
		"session_id": "session-123",
		"career":     "Data Scientist",
		"question":   "How about the salary?",
	})
	require.Equal(t, consts.StatusOK, resp.Code)

	var got handler.ChatResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "session-123", got.SessionID, "带session_id时应沿用原会话")
	assert.Nil(t, replier.gotAnalysis, "没有缓存分析时上下文为nil")
}

func TestHandleChat_Validation(t *testing.T) {
	replier := &fakeReplier{answer: "ok"}
	h := newChatTestEngine(t, replier, &fakeAnalyzer{}, nil)

	resp := performJSON(t, h, "POST", "/api/v1/chat", map[string]interface{}{
		"career": "Data Scientist",
	})
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "缺少question应返回400")
	assert.Empty(t, replier.gotQuestion, "校验失败不应调用助手")
}

func TestHandleChat_ReplyError(t *testing.T) {
	replier := &fakeReplier{err: fmt.Errorf("模型超时")}
	h := newChatTestEngine(t, replier, &fakeAnalyzer{}, nil)

	resp := performJSON(t, h, "POST", "/api/v1/chat", map[string]interface{}{
		"career":   "Data Scientist",
		"question": "What does a typical day look like?",
	})
	assert.Equal(t, consts.StatusInternalServerError, resp.Code)

	var got struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Contains(t, got.Error, "模型超时", "响应应带上游错误信息")
}

func TestHandleHistory(t *testing.T) {
	replier := &fakeReplier{history: []types.ChatTurn{
		{Role: "user", Content: "What skills should I learn?"},
		{Role: "assistant", Content: "Start with Python and statistics."},
	}}
	h := newChatTestEngine(t, replier, &fakeAnalyzer{}, nil)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/chat/session-123/history", nil)
	require.Equal(t, consts.StatusOK, resp.Code)

	var got struct {
		SessionID string           `json:"session_id"`
		Messages  []types.ChatTurn `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "session-123", got.SessionID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
}

func TestHandleClearSession(t *testing.T) {
	replier := &fakeReplier{}
	h := newChatTestEngine(t, replier, &fakeAnalyzer{}, nil)

	resp := ut.PerformRequest(h.Engine, "DELETE", "/api/v1/chat/session-123", nil)
	require.Equal(t, consts.StatusOK, resp.Code)
	assert.Equal(t, []string{"session-123"}, replier.cleared)
}
