package guidance_test

import (
	"strings"
	"testing"

	"career-agent-go/internal/guidance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiktoken编码表需要在首次使用时下载，离线环境下跳过
func newTestChunker(t *testing.T, targetTokens, overlap int) *guidance.Chunker {
	t.Helper()
	chunker, err := guidance.NewChunker(targetTokens, overlap)
	if err != nil {
		t.Skipf("tiktoken编码器不可用: %v", err)
	}
	return chunker
}

func TestChunker_ShortDocument(t *testing.T) {
	chunker := newTestChunker(t, 320, 40)

	chunks := chunker.ChunkDocument("doc-1", "Guide", "A short paragraph.\n\nAnother short paragraph.")
	require.Len(t, chunks, 1, "短文档应只产生一个分块")
	assert.Equal(t, 0, chunks[0].ChunkID)
	assert.Equal(t, "doc-1", chunks[0].DocID)
	assert.Equal(t, "Guide", chunks[0].Title)
	assert.Contains(t, chunks[0].Content, "Another short paragraph.")
}

func TestChunker_SplitsLongDocument(t *testing.T) {
	chunker := newTestChunker(t, 64, 8)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("Career guidance content about professional development and skills.\n\n")
	}
	chunks := chunker.ChunkDocument("doc-2", "Long Guide", sb.String())
	require.Greater(t, len(chunks), 1, "长文档应被切成多块")

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkID, "分块序号应连续递增")
		assert.LessOrEqual(t, chunker.CountTokens(chunk.Content), 80, "单块token数不应显著超过目标")
	}
}

func TestChunker_EmptyDocument(t *testing.T) {
	chunker := newTestChunker(t, 320, 40)
	assert.Nil(t, chunker.ChunkDocument("doc-3", "Empty", "   "))
}
