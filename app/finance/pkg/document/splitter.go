package document

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// 默认分隔符，由粗到细
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter 递归字符切分器：优先按段落切，超长片段再用更细的分隔符切
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

var _ document.Transformer = (*Splitter)(nil)

// NewSplitter 创建切分器，overlap 不小于 size 时按 size/5 处理
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: defaultSeparators}
}

// Split 返回切分后的非空片段
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return s.split(text, s.separators)
}

// Transform 实现 document.Transformer，分片 ID 为 {ID}_chunk_{i}，元数据复制自源文档并带上 chunk_index
func (s *Splitter) Transform(_ context.Context, src []*schema.Document, _ ...document.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range src {
		if doc == nil {
			continue
		}
		for i, chunk := range s.Split(doc.Content) {
			meta := make(map[string]any, len(doc.MetaData)+1)
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			meta["chunk_index"] = i
			out = append(out, &schema.Document{
				ID:       fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				Content:  chunk,
				MetaData: meta,
			})
		}
	}
	return out, nil
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, separator)
	}

	var chunks, good []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if runeLen(p) < s.chunkSize {
			good = append(good, p)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, p)
		} else {
			chunks = append(chunks, s.split(p, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, separator)...)
	}
	return chunks
}

// merge 把小片段拼成不超过 chunkSize 的块，相邻块保留约 chunkOverlap 的重叠
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var docs, current []string
	total := 0
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		n := runeLen(p)
		if total+n+joinLen() > s.chunkSize && len(current) > 0 {
			if doc := join(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.chunkOverlap || (total+n+joinLen() > s.chunkSize && total > 0) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := join(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func join(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
