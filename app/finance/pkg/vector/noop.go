package vector

import "context"

// Noop 未配置向量库时使用：写入丢弃，检索为空
type Noop struct{}

var _ Store = Noop{}

func (Noop) Upsert(context.Context, []Record) error { return nil }

func (Noop) Query(context.Context, []float64, int) ([]Match, error) { return []Match{}, nil }

func (Noop) Delete(context.Context, []string) error { return nil }

func (Noop) Stats(context.Context) (*Stats, error) {
	return &Stats{Namespaces: map[string]int64{}}, nil
}
