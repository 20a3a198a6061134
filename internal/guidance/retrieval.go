package guidance

import (
	"context"
	"fmt"
	"strings"

	"career-agent-go/internal/logger"
	"career-agent-go/internal/storage"
	"career-agent-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

// VectorStore 检索层依赖的向量库能力，由storage.Qdrant实现
type VectorStore interface {
	CountPoints(ctx context.Context) (int64, error)
	StoreGuideChunks(ctx context.Context, chunks []types.GuideChunk) ([]string, error)
	SearchSimilarChunks(ctx context.Context, queryVector []float64, limit int, filter map[string]interface{}) ([]storage.SearchResult, error)
}

var _ VectorStore = (*storage.Qdrant)(nil)

// Retriever 基于向量相似度的参考语料检索器
type Retriever struct {
	embedder embedding.Embedder
	store    VectorStore
	chunker  *Chunker
	topK     int
}

// NewRetriever 创建检索器。topK非法时退回默认值5。
func NewRetriever(embedder embedding.Embedder, store VectorStore, chunker *Chunker, topK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("嵌入模型不能为空")
	}
	if store == nil {
		return nil, fmt.Errorf("向量库不能为空")
	}
	if chunker == nil {
		return nil, fmt.Errorf("分块器不能为空")
	}
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		topK:     topK,
	}, nil
}

// EnsureSeeded 向量库为空时灌入内置语料，已有数据时直接跳过。
// 点ID是确定性的，重复灌入也不会产生重复数据。
func (r *Retriever) EnsureSeeded(ctx context.Context) error {
	count, err := r.store.CountPoints(ctx)
	if err != nil {
		return fmt.Errorf("检查向量库点数失败: %w", err)
	}
	if count > 0 {
		logger.Ctx(ctx).Debug().Int64("points", count).Msg("向量库已有语料，跳过灌入")
		return nil
	}

	total := 0
	for _, doc := range SeedCorpus() {
		chunks := r.chunker.ChunkDocument(doc.ID, doc.Title, doc.Content)
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		vectors, err := r.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return fmt.Errorf("嵌入文档 %s 失败: %w", doc.ID, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("文档 %s 嵌入结果数量(%d)与分块数量(%d)不一致", doc.ID, len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Vector = vectors[i]
		}

		if _, err := r.store.StoreGuideChunks(ctx, chunks); err != nil {
			return fmt.Errorf("写入文档 %s 分块失败: %w", doc.ID, err)
		}
		total += len(chunks)
	}

	logger.Ctx(ctx).Info().Int("chunks", total).Msg("内置语料灌入完成")
	return nil
}

// Retrieve 检索与查询最相似的语料分块，按得分降序返回
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]types.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("检索查询不能为空")
	}

	vectors, err := r.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("嵌入检索查询失败: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("查询嵌入结果数量异常: %d", len(vectors))
	}

	results, err := r.store.SearchSimilarChunks(ctx, vectors[0], r.topK, nil)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	chunks := make([]types.RetrievedChunk, 0, len(results))
	for _, result := range results {
		chunk := types.RetrievedChunk{Score: result.Score}
		if docID, ok := result.Payload["doc_id"].(string); ok {
			chunk.DocID = docID
		}
		if title, ok := result.Payload["title"].(string); ok {
			chunk.Title = title
		}
		if content, ok := result.Payload["content_text"].(string); ok {
			chunk.Content = content
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// BuildContext 把检索结果拼成可直接放进提示词的参考材料文本。
// 没有结果时返回空串，调用方据此决定是否附带参考段落。
func BuildContext(chunks []types.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Reference material:\n")
	for i, chunk := range chunks {
		sb.WriteString(fmt.Sprintf("\n[%d] %s\n%s\n", i+1, chunk.Title, chunk.Content))
	}
	return sb.String()
}
