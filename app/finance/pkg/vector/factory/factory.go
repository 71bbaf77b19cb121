package factory

import (
	"fmt"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/pinecone"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector"
)

// NewStore 根据配置创建向量库实例
func NewStore(cfg config.VectorConfig) (vector.Store, error) {
	switch cfg.Provider {
	case "pinecone":
		if cfg.Pinecone.APIKey == "" {
			return nil, fmt.Errorf("pinecone api key is missing")
		}
		if cfg.Pinecone.IndexHost == "" {
			return nil, fmt.Errorf("pinecone index host is missing")
		}
		return pinecone.NewClient(cfg.Pinecone.IndexHost, cfg.Pinecone.APIKey, cfg.Pinecone.Namespace, cfg.Pinecone.Timeout), nil

	case "", "noop", "none":
		return vector.Noop{}, nil

	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}
