package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"career-agent-go/internal/api/handler"
	"career-agent-go/internal/config"
	"career-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnalyzer 记录调用参数并按配置返回分析结果
type fakeAnalyzer struct {
	analysis   *types.CareerAnalysis
	cached     *types.CareerAnalysis
	err        error
	gotCareer  string
	gotProfile *types.UserProfile
	gotLevel   string
}

func (f *fakeAnalyzer) ComprehensiveCareerAnalysis(ctx context.Context, career string, profile *types.UserProfile) (*types.CareerAnalysis, error) {
	f.gotCareer = career
	f.gotProfile = profile
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

func (f *fakeAnalyzer) CachedAnalysis(ctx context.Context, career, level string) *types.CareerAnalysis {
	f.gotCareer = career
	f.gotLevel = level
	return f.cached
}

func sampleCareerAnalysis() *types.CareerAnalysis {
	return &types.CareerAnalysis{
		Career:           "Data Scientist",
		ExperienceLevel:  "beginner",
		Overview:         "Data scientists apply machine learning and statistics to business problems.",
		MarketAnalysis:   "The job market shows high demand for data science roles in finance and healthcare.",
		LearningRoadmap:  "Learn Python programming, statistics and cloud computing fundamentals.",
		IndustryInsights: "Remote work and automation are reshaping the technology industry.",
		GeneratedAt:      time.Now(),
	}
}

func newCareerTestEngine(t *testing.T, analyzer *fakeAnalyzer) *server.Hertz {
	t.Helper()
	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	careers := handler.NewCareerHandler(&config.Config{}, analyzer)
	rg := h.Group("/api/v1")
	rg.POST("/careers/analyze", careers.HandleAnalyze)
	rg.GET("/careers/options", careers.HandleOptions)
	rg.GET("/careers/:career/insights", careers.HandleInsights)
	return h
}

func performJSON(t *testing.T, h *server.Hertz, method, path string, payload interface{}) *ut.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	return ut.PerformRequest(h.Engine, method, path,
		&ut.Body{Body: body, Len: body.Len()},
		ut.Header{Key: "Content-Type", Value: "application/json"},
	)
}

func TestHandleAnalyze_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: sampleCareerAnalysis()}
	h := newCareerTestEngine(t, analyzer)

	resp := performJSON(t, h, "POST", "/api/v1/careers/analyze", map[string]interface{}{
		"career": "Data Scientist",
		"profile": map[string]interface{}{
			"name":             "Alex",
			"experience_years": 5,
		},
	})
	require.Equal(t, consts.StatusOK, resp.Code)

	var got types.CareerAnalysis
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Equal(t, "Data Scientist", got.Career, "响应应包含分析的职业名")
	assert.NotEmpty(t, got.Overview)
	assert.NotEmpty(t, got.MarketAnalysis)

	assert.Equal(t, "Data Scientist", analyzer.gotCareer)
	require.NotNil(t, analyzer.gotProfile, "画像应透传给分析编排器")
	assert.Equal(t, 5, analyzer.gotProfile.ExperienceYears)
}

func TestHandleAnalyze_MissingCareer(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: sampleCareerAnalysis()}
	h := newCareerTestEngine(t, analyzer)

	resp := performJSON(t, h, "POST", "/api/v1/careers/analyze", map[string]interface{}{
		"profile": map[string]interface{}{"name": "Alex"},
	})
	assert.Equal(t, consts.StatusBadRequest, resp.Code, "缺少career应返回400")
	assert.Empty(t, analyzer.gotCareer, "校验失败不应调用分析编排器")
}

func TestHandleAnalyze_GenerationError(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("Mistral API请求失败: 429 - rate limit exceeded")}
	h := newCareerTestEngine(t, analyzer)

	resp := performJSON(t, h, "POST", "/api/v1/careers/analyze", map[string]interface{}{
		"career": "Data Scientist",
	})
	assert.Equal(t, consts.StatusInternalServerError, resp.Code)

	var got struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.Contains(t, got.Error, "429 - rate limit exceeded", "响应应带上游错误信息")
}

func TestHandleOptions_ListsCatalog(t *testing.T) {
	h := newCareerTestEngine(t, &fakeAnalyzer{})

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/options", nil)
	require.Equal(t, consts.StatusOK, resp.Code)

	var got struct {
		Categories []struct {
			Name    string   `json:"name"`
			Careers []string `json:"careers"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Categories, 6, "目录应包含全部6个职业类别")
	assert.Equal(t, "Technology", got.Categories[0].Name)
	assert.NotEmpty(t, got.Categories[0].Careers)
}

func TestHandleInsights_FromCachedAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{cached: sampleCareerAnalysis()}
	h := newCareerTestEngine(t, analyzer)

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/Data%20Scientist/insights?experience_level=intermediate", nil)
	require.Equal(t, consts.StatusOK, resp.Code)
	assert.Equal(t, "intermediate", analyzer.gotLevel)

	var got types.CareerInsights
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.NotEmpty(t, got.Trends, "缓存命中时应返回趋势数据")
	assert.NotEmpty(t, got.Salary)
	assert.NotEmpty(t, got.Skills)
}

func TestHandleInsights_NoAnalysis(t *testing.T) {
	h := newCareerTestEngine(t, &fakeAnalyzer{})

	resp := ut.PerformRequest(h.Engine, "GET", "/api/v1/careers/Astronaut/insights", nil)
	assert.Equal(t, consts.StatusNotFound, resp.Code, "没有缓存的分析时应返回404")
}
