package guidance

import (
	"fmt"
	"strings"

	"career-agent-go/internal/types"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker 把参考语料按token数切分成带重叠的片段
type Chunker struct {
	encoder      *tiktoken.Tiktoken
	targetTokens int
	overlap      int
}

// NewChunker 创建分块器。targetTokens和overlap非法时退回默认值。
func NewChunker(targetTokens, overlap int) (*Chunker, error) {
	// cl100k_base 与主流嵌入模型的分词方式兼容
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("获取tiktoken编码器失败: %w", err)
	}
	if targetTokens <= 0 {
		targetTokens = 320
	}
	if overlap < 0 || overlap >= targetTokens {
		overlap = targetTokens / 8
	}
	return &Chunker{
		encoder:      encoder,
		targetTokens: targetTokens,
		overlap:      overlap,
	}, nil
}

// CountTokens 返回文本的token数
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// ChunkDocument 把一篇文档切分成GuideChunk序列。
// 先按段落聚合到目标token数，超长段落再按token硬切。
// ChunkID在文档内从0递增，向量留空由调用方填充。
func (c *Chunker) ChunkDocument(docID, title, content string) []types.GuideChunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var pieces []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraTokens := c.CountTokens(para)

		// 单段落超过目标大小时单独硬切
		if paraTokens > c.targetTokens {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
				currentTokens = 0
			}
			pieces = append(pieces, c.splitByTokens(para)...)
			continue
		}

		if currentTokens+paraTokens > c.targetTokens && current.Len() > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}

	chunks := make([]types.GuideChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, types.GuideChunk{
			ChunkID: i,
			DocID:   docID,
			Title:   title,
			Content: piece,
			Metadata: map[string]interface{}{
				"tokens": c.CountTokens(piece),
			},
		})
	}
	return chunks
}

// splitByTokens 按token窗口硬切超长文本，相邻窗口保留overlap个token的重叠
func (c *Chunker) splitByTokens(text string) []string {
	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) <= c.targetTokens {
		return []string{text}
	}

	step := c.targetTokens - c.overlap
	var parts []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.targetTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		part := strings.TrimSpace(c.encoder.Decode(tokens[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
		if end == len(tokens) {
			break
		}
	}
	return parts
}
