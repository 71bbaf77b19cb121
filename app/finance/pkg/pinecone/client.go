package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector"
)

// Client Pinecone 数据面 REST 客户端
type Client struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
}

// NewClient 创建客户端，host 为索引的数据面地址
func NewClient(host, apiKey, namespace string, timeout int) *Client {
	t := time.Duration(timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Client{
		host:      strings.TrimRight(host, "/"),
		apiKey:    apiKey,
		namespace: namespace,
		client:    &http.Client{Timeout: t},
	}
}

// Ensure Client implements vector.Store
var _ vector.Store = (*Client)(nil)

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []upsertVector `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

type queryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	Namespace       string    `json:"namespace,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

type statsResponse struct {
	Dimension        int     `json:"dimension"`
	IndexFullness    float64 `json:"indexFullness"`
	TotalVectorCount int64   `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
}

// Upsert 写入向量
func (c *Client) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	req := upsertRequest{Namespace: c.namespace, Vectors: make([]upsertVector, len(records))}
	for i, r := range records {
		req.Vectors[i] = upsertVector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}
	return c.do(ctx, "/vectors/upsert", req, nil)
}

// Query 近邻检索
func (c *Client) Query(ctx context.Context, embedding []float64, topK int) ([]vector.Match, error) {
	var resp queryResponse
	req := queryRequest{Vector: embedding, TopK: topK, IncludeMetadata: true, Namespace: c.namespace}
	if err := c.do(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}
	matches := make([]vector.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, vector.Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// Delete 按 id 删除
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, "/vectors/delete", deleteRequest{IDs: ids, Namespace: c.namespace}, nil)
}

// Stats 索引统计
func (c *Client) Stats(ctx context.Context) (*vector.Stats, error) {
	var resp statsResponse
	if err := c.do(ctx, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, err
	}
	stats := &vector.Stats{
		Dimension:        resp.Dimension,
		IndexFullness:    resp.IndexFullness,
		TotalVectorCount: resp.TotalVectorCount,
		Namespaces:       make(map[string]int64, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = ns.VectorCount
	}
	return stats, nil
}

func (c *Client) do(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	httpReq.Header.Set("Api-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("pinecone api error (status %d): %s", res.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response failed: %w", err)
	}
	return nil
}
