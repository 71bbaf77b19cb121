package document

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/go-shiori/go-readability"
)

// URLLoader 抓取网页正文作为待分析文档
type URLLoader struct {
	timeout time.Duration
	fetch   func(url string, timeout time.Duration) (readability.Article, error)
}

var _ document.Loader = (*URLLoader)(nil)

// NewURLLoader timeout 单位为秒，<=0 时为 30 秒
func NewURLLoader(timeout int) *URLLoader {
	t := time.Duration(timeout) * time.Second
	if t <= 0 {
		t = 30 * time.Second
	}
	return &URLLoader{timeout: t, fetch: func(url string, timeout time.Duration) (readability.Article, error) {
		return readability.FromURL(url, timeout)
	}}
}

// Load 抓取 src.URI，返回单个文档，正文经过 Sanitize
func (l *URLLoader) Load(ctx context.Context, src document.Source, _ ...document.LoaderOption) ([]*schema.Document, error) {
	if src.URI == "" {
		return nil, fmt.Errorf("document url is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	article, err := l.fetch(src.URI, l.timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", src.URI, err)
	}
	text := Sanitize(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("no readable content at %s", src.URI)
	}
	return []*schema.Document{{
		ID:      src.URI,
		Content: text,
		MetaData: map[string]any{
			"source": src.URI,
			"title":  article.Title,
		},
	}}, nil
}
