package guidance_test

import (
	"context"
	"fmt"
	"testing"

	"career-agent-go/internal/guidance"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 为每个输入返回固定维度的向量
type fakeEmbedder struct {
	dims  int
	calls int
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	f.calls++
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vec := make([]float64, f.dims)
		vec[0] = float64(len(texts[i]))
		vectors[i] = vec
	}
	return vectors, nil
}

// fakeVectorStore 内存实现，记录写入的分块
type fakeVectorStore struct {
	stored  []types.GuideChunk
	results []storage.SearchResult
}

func (f *fakeVectorStore) CountPoints(ctx context.Context) (int64, error) {
	return int64(len(f.stored)), nil
}

func (f *fakeVectorStore) StoreGuideChunks(ctx context.Context, chunks []types.GuideChunk) ([]string, error) {
	f.stored = append(f.stored, chunks...)
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = fmt.Sprintf("id-%d", len(f.stored)-len(chunks)+i)
	}
	return ids, nil
}

func (f *fakeVectorStore) SearchSimilarChunks(ctx context.Context, queryVector []float64, limit int, filter map[string]interface{}) ([]storage.SearchResult, error) {
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func TestRetriever_EnsureSeeded(t *testing.T) {
	chunker := newTestChunker(t, 320, 40)
	store := &fakeVectorStore{}
	embedder := &fakeEmbedder{dims: 8}

	retriever, err := guidance.NewRetriever(embedder, store, chunker, 5)
	require.NoError(t, err)

	require.NoError(t, retriever.EnsureSeeded(context.Background()))
	assert.NotEmpty(t, store.stored, "空向量库应被灌入内置语料")

	for _, chunk := range store.stored {
		assert.Len(t, chunk.Vector, 8, "每个分块都应带上向量")
		assert.NotEmpty(t, chunk.DocID)
	}

	// 已有数据时不再重复灌入
	before := len(store.stored)
	embedderCalls := embedder.calls
	require.NoError(t, retriever.EnsureSeeded(context.Background()))
	assert.Equal(t, before, len(store.stored), "非空向量库不应重复灌入")
	assert.Equal(t, embedderCalls, embedder.calls, "跳过灌入时不应调用嵌入模型")
}

func TestRetriever_Retrieve(t *testing.T) {
	chunker := newTestChunker(t, 320, 40)
	store := &fakeVectorStore{
		results: []storage.SearchResult{
			{
				ID:    "p1",
				Score: 0.92,
				Payload: map[string]interface{}{
					"doc_id":       "guide-technology",
					"title":        "Technology Careers Guide",
					"content_text": "Software engineers design and implement applications.",
				},
			},
			{
				ID:    "p2",
				Score: 0.81,
				Payload: map[string]interface{}{
					"doc_id":       "guide-business",
					"title":        "Business Careers Guide",
					"content_text": "Finance professionals analyze investments.",
				},
			},
		},
	}

	retriever, err := guidance.NewRetriever(&fakeEmbedder{dims: 8}, store, chunker, 5)
	require.NoError(t, err)

	chunks, err := retriever.Retrieve(context.Background(), "software engineering skills")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "guide-technology", chunks[0].DocID)
	assert.Equal(t, float32(0.92), chunks[0].Score)
	assert.Contains(t, chunks[0].Content, "Software engineers")

	_, err = retriever.Retrieve(context.Background(), "  ")
	require.Error(t, err, "空查询应报错")
}

func TestBuildContext(t *testing.T) {
	assert.Empty(t, guidance.BuildContext(nil), "无检索结果时应返回空串")

	text := guidance.BuildContext([]types.RetrievedChunk{
		{Title: "Guide A", Content: "content a", Score: 0.9},
		{Title: "Guide B", Content: "content b", Score: 0.8},
	})
	assert.Contains(t, text, "Reference material:")
	assert.Contains(t, text, "[1] Guide A")
	assert.Contains(t, text, "[2] Guide B")
}
