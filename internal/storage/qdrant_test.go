package storage_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"career-agent-go/internal/storage"
	"career-agent-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQdrant_NewQdrant 测试Qdrant客户端初始化
func TestQdrant_NewQdrant(t *testing.T) {
	// 创建一个模拟的HTTP服务器来模拟Qdrant API
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_guides" && r.Method == "GET" {
			// 返回集合存在的响应
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": {
					"config": {
						"params": {
							"vectors": {
								"size": 1024,
								"distance": "Cosine"
							}
						}
					}
				}
			}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &storage.QdrantSettings{
		Endpoint:   server.URL,
		Collection: "test_guides",
		Dimension:  1024,
	}

	// 使用选项模式创建客户端
	client, err := storage.NewQdrant(cfg,
		storage.WithDistanceMetric("Cosine"),
		storage.WithHttpTimeout(5*time.Second))

	require.NoError(t, err, "应该成功创建Qdrant客户端")
	require.NotNil(t, client, "客户端不应为nil")
}

// TestQdrant_StoreGuideChunks 测试存储语料分块向量
func TestQdrant_StoreGuideChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_guides" && r.Method == "GET" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 1024, "distance": "Cosine"}}}}}`))
			return
		}

		if r.URL.Path == "/collections/test_guides/points" && r.Method == "PUT" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "completed"}, "status": "ok"}`))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := &storage.QdrantSettings{
		Endpoint:   server.URL,
		Collection: "test_guides",
		Dimension:  1024,
	}

	client, err := storage.NewQdrant(cfg)
	require.NoError(t, err, "应该成功创建Qdrant客户端")

	vector := make([]float64, 1024)
	for i := 0; i < 1024; i++ {
		vector[i] = float64(i) / 1024.0
	}

	chunks := []types.GuideChunk{
		{
			ChunkID: 1,
			DocID:   "career-data-scientist",
			Title:   "数据科学家职业概览",
			Content: "数据科学家负责从数据中提取业务价值",
			Vector:  vector,
		},
	}

	ctx := context.Background()
	pointIDs, err := client.StoreGuideChunks(ctx, chunks)

	require.NoError(t, err, "向量存储应成功")
	require.Len(t, pointIDs, 1, "应返回一个点ID")

	// 点ID必须是确定性的：同一个 doc_id + chunk_id 总是生成同一个UUID
	idSource := fmt.Sprintf("doc_id:%s_chunk_id:%d", chunks[0].DocID, chunks[0].ChunkID)
	expected := uuid.NewV5(storage.QdrantPointIDNamespace, idSource).String()
	assert.Equal(t, expected, pointIDs[0], "点ID应符合确定性生成规则")
}

// TestQdrant_StoreGuideChunks_DimensionMismatch 测试维度不匹配时报错
func TestQdrant_StoreGuideChunks_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_guides" && r.Method == "GET" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 1024, "distance": "Cosine"}}}}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := storage.NewQdrant(&storage.QdrantSettings{
		Endpoint:   server.URL,
		Collection: "test_guides",
		Dimension:  1024,
	})
	require.NoError(t, err)

	chunks := []types.GuideChunk{
		{ChunkID: 1, DocID: "doc", Content: "text", Vector: make([]float64, 512)},
	}

	_, err = client.StoreGuideChunks(context.Background(), chunks)
	require.Error(t, err, "维度不匹配应返回错误")
	assert.Contains(t, err.Error(), "维度", "错误信息应说明维度不匹配")
}

// TestQdrant_SearchSimilarChunks 测试相似语料搜索
func TestQdrant_SearchSimilarChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_guides" && r.Method == "GET" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 1024, "distance": "Cosine"}}}}}`))
			return
		}

		if r.URL.Path == "/collections/test_guides/points/search" && r.Method == "POST" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": [
					{
						"id": "0d7ab4ce-68f1-5f36-b2da-0e4f67a9b811",
						"score": 0.95,
						"payload": {
							"doc_id": "career-data-scientist",
							"chunk_id": 1,
							"title": "数据科学家职业概览",
							"content_text": "数据科学家负责从数据中提取业务价值",
							"source": "guide"
						}
					}
				],
				"time": 0.001
			}`))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := storage.NewQdrant(&storage.QdrantSettings{
		Endpoint:   server.URL,
		Collection: "test_guides",
		Dimension:  1024,
	})
	require.NoError(t, err, "应该成功创建Qdrant客户端")

	queryVector := make([]float64, 1024)
	for i := 0; i < 1024; i++ {
		queryVector[i] = float64(i) / 1024.0
	}

	ctx := context.Background()
	results, err := client.SearchSimilarChunks(ctx, queryVector, 4, nil)

	require.NoError(t, err, "向量搜索应成功")
	require.Len(t, results, 1, "应返回一个结果")
	assert.Equal(t, "0d7ab4ce-68f1-5f36-b2da-0e4f67a9b811", results[0].ID, "结果ID应符合预期")
	assert.InDelta(t, 0.95, float64(results[0].Score), 0.01, "结果分数应符合预期")
	assert.Equal(t, "career-data-scientist", results[0].Payload["doc_id"], "payload应包含doc_id")
}

// TestQdrant_CountPoints 测试集合点数统计
func TestQdrant_CountPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/test_guides" && r.Method == "GET" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"config": {"params": {"vectors": {"size": 1024, "distance": "Cosine"}}}}}`))
			return
		}

		if r.URL.Path == "/collections/test_guides/points/count" && r.Method == "POST" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"count": 42}, "status": "ok", "time": 0.001}`))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := storage.NewQdrant(&storage.QdrantSettings{
		Endpoint:   server.URL,
		Collection: "test_guides",
		Dimension:  1024,
	})
	require.NoError(t, err)

	count, err := client.CountPoints(context.Background())
	require.NoError(t, err, "点数统计应成功")
	assert.Equal(t, int64(42), count, "应返回集合中的点数量")
}
