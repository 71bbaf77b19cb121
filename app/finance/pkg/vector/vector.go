package vector

import "context"

// Store 向量库的通用接口，索引本身视为不透明的近邻检索服务
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, embedding []float64, topK int) ([]Match, error)
	Delete(ctx context.Context, ids []string) error
	Stats(ctx context.Context) (*Stats, error)
}

// Record 待写入的向量
type Record struct {
	ID       string
	Values   []float64
	Metadata map[string]any
}

// Match 单条检索结果，按相似度从高到低排列
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text 取出元数据中的原文
func (m Match) Text() string {
	s, _ := m.Metadata["text"].(string)
	return s
}

// Stats 索引统计信息
type Stats struct {
	Dimension        int              `json:"dimension"`
	IndexFullness    float64          `json:"index_fullness"`
	TotalVectorCount int64            `json:"total_vector_count"`
	Namespaces       map[string]int64 `json:"namespaces"`
}
