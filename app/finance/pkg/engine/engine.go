package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
	doc "github.com/iWorld-y/fin_advisor/app/finance/pkg/document"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/embedder"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/llm"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/logger"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector/factory"
)

var (
	ErrEmptyDocument   = errors.New("document text cannot be empty")
	ErrEmptyFinancials = errors.New("financial data cannot be empty")
)

// Engine 核心处理引擎：调用 LLM，再把原始文本交给归一化流水线
type Engine struct {
	cfg       *config.Config
	completer llm.Completer
	embedder  embedding.Embedder
	store     vector.Store
	pipeline  *normalize.Pipeline
	splitter  *doc.Splitter
	loader    document.Loader
	now       func() time.Time
}

// New 用已构造好的依赖创建引擎，store 为空时使用 Noop
func New(cfg *config.Config, completer llm.Completer, emb embedding.Embedder, store vector.Store) *Engine {
	if store == nil {
		store = vector.Noop{}
	}
	return &Engine{
		cfg:       cfg,
		completer: completer,
		embedder:  emb,
		store:     store,
		pipeline:  normalize.New(cfg.Normalize),
		splitter:  doc.NewSplitter(cfg.Document.ChunkSize, cfg.Document.ChunkOverlap),
		loader:    doc.NewURLLoader(cfg.Document.FetchTimeout),
		now:       time.Now,
	}
}

// NewEngine 根据配置初始化 LLM、向量化客户端与向量库
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	completer, err := llm.NewFromConfig(ctx, cfg.LLM, cfg.Concurrency)
	if err != nil {
		return nil, err
	}

	emb := embedder.NewClient(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Timeout)

	store, err := factory.NewStore(cfg.Vector)
	if err != nil {
		return nil, fmt.Errorf("向量库初始化失败: %w", err)
	}

	logger.Log.Infof("引擎初始化完成: model=%s vector=%s", cfg.LLM.Model, cfg.Vector.Provider)
	return New(cfg, completer, emb, store), nil
}

// Pipeline 返回引擎使用的归一化流水线
func (e *Engine) Pipeline() *normalize.Pipeline { return e.pipeline }

// GenerateStrategy 生成个性化策略，LLM 不可用时退回规则合成
func (e *Engine) GenerateStrategy(ctx context.Context, profile model.Profile, preferences map[string]any) normalize.Result {
	raw, llmErr := e.complete(ctx, llm.StrategyPrompt(profile, preferences))
	res := e.pipeline.Normalize(raw, model.KindStrategy, normalize.Inputs{Profile: &profile})
	return e.finish(res, llmErr, "age", profile.Age)
}

// AssessRisk 评估财务风险，scenario 为空时为 general。账号等敏感字段脱敏后才进入提示词
func (e *Engine) AssessRisk(ctx context.Context, financialData map[string]any, scenario string) (normalize.Result, error) {
	if len(financialData) == 0 {
		return normalize.Result{}, ErrEmptyFinancials
	}
	raw, llmErr := e.complete(ctx, llm.RiskPrompt(doc.MaskSensitive(financialData), scenario))
	res := e.pipeline.Normalize(raw, model.KindRisk, normalize.Inputs{})
	return e.finish(res, llmErr, "scenario", scenario), nil
}

// DocumentAnalysis 合规分析结果及文档标注
type DocumentAnalysis struct {
	DocumentType   string           `json:"document_type"`
	FinancialTerms []string         `json:"financial_terms"`
	ContextCount   int              `json:"context_count"`
	Result         normalize.Result `json:"result"`
}

// AnalyzeCompliance 清洗文档、检索相似文档作为上下文，再做合规分析
func (e *Engine) AnalyzeCompliance(ctx context.Context, text, docType string) (*DocumentAnalysis, error) {
	text = doc.Sanitize(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	cleaned := doc.CleanText(text)
	if docType == "" {
		docType = doc.IdentifyType(cleaned)
	}

	related := e.RetrieveContext(ctx, cleaned, 0)
	raw, llmErr := e.complete(ctx, llm.CompliancePrompt(cleaned, related))
	res := e.pipeline.Normalize(raw, model.KindCompliance, normalize.Inputs{})

	return &DocumentAnalysis{
		DocumentType:   docType,
		FinancialTerms: doc.ExtractFinancialTerms(cleaned),
		ContextCount:   len(related),
		Result:         e.finish(res, llmErr, "document_type", docType),
	}, nil
}

// AnalyzeURL 抓取网页正文后做合规分析
func (e *Engine) AnalyzeURL(ctx context.Context, url, docType string) (*DocumentAnalysis, error) {
	docs, err := e.loader.Load(ctx, document.Source{URI: url})
	if err != nil {
		return nil, err
	}
	return e.AnalyzeCompliance(ctx, docs[0].Content, docType)
}

// RetrieveContext 检索与 query 最相似的文档片段，任何失败都返回空结果
func (e *Engine) RetrieveContext(ctx context.Context, query string, topK int) []string {
	if topK <= 0 {
		topK = e.cfg.Vector.TopK
	}
	if e.embedder == nil || strings.TrimSpace(query) == "" {
		return []string{}
	}
	vecs, err := e.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		logger.Log.WithError(err).Warn("查询向量化失败，跳过上下文检索")
		return []string{}
	}
	matches, err := e.store.Query(ctx, vecs[0], topK)
	if err != nil {
		logger.Log.WithError(err).Warn("向量检索失败，跳过上下文检索")
		return []string{}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if t := m.Text(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// StoreRequest 待入库文档
type StoreRequest struct {
	ID           string
	Text         string
	DocumentType string
	Metadata     map[string]any
}

// StoreResult 入库结果
type StoreResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// StoreDocument 切分、向量化并分批写入向量库。ID 为空时生成 uuid
func (e *Engine) StoreDocument(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	text := doc.Sanitize(req.Text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	if e.embedder == nil {
		return nil, fmt.Errorf("embedder is not configured")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	meta := make(map[string]any, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["document_id"] = id
	meta["document_type"] = req.DocumentType
	meta["stored_at"] = e.now().UTC().Format(time.RFC3339)

	chunks, err := e.splitter.Transform(ctx, []*schema.Document{{ID: id, Content: text, MetaData: meta}})
	if err != nil {
		return nil, fmt.Errorf("split document failed: %w", err)
	}

	batch := e.cfg.Vector.BatchSize
	if batch <= 0 {
		batch = 100
	}
	for start := 0; start < len(chunks); start += batch {
		part := chunks[start:min(start+batch, len(chunks))]
		texts := make([]string, len(part))
		for i, c := range part {
			texts[i] = c.Content
		}
		vecs, err := e.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks failed: %w", err)
		}
		if len(vecs) != len(part) {
			return nil, fmt.Errorf("embed chunks failed: want %d vectors, got %d", len(part), len(vecs))
		}
		records := make([]vector.Record, len(part))
		for i, c := range part {
			c.MetaData["text"] = c.Content
			records[i] = vector.Record{ID: c.ID, Values: vecs[i], Metadata: c.MetaData}
		}
		if err := e.store.Upsert(ctx, records); err != nil {
			return nil, fmt.Errorf("upsert chunks failed: %w", err)
		}
	}

	logger.Log.WithFields(logrus.Fields{"document_id": id, "chunks": len(chunks)}).Info("文档入库完成")
	return &StoreResult{DocumentID: id, Chunks: len(chunks)}, nil
}

// DeleteDocuments 按 id 删除向量
func (e *Engine) DeleteDocuments(ctx context.Context, ids []string) error {
	if err := e.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete documents failed: %w", err)
	}
	return nil
}

// IndexStats 向量库统计
func (e *Engine) IndexStats(ctx context.Context) (*vector.Stats, error) {
	return e.store.Stats(ctx)
}

// complete 调用 LLM，失败时返回空文本交给流水线走规则合成
func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	if e.completer == nil {
		return "", llm.ErrUnavailable
	}
	raw, err := e.completer.Complete(ctx, llm.JSONSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return raw, nil
}

func (e *Engine) finish(res normalize.Result, llmErr error, key string, val any) normalize.Result {
	if llmErr != nil {
		res.Diagnostics = append(res.Diagnostics, llmErr.Error())
	}
	if res.Degraded() {
		logger.Log.WithFields(logrus.Fields{
			"kind":        res.Kind,
			key:           val,
			"diagnostics": strings.Join(res.Diagnostics, "; "),
		}).Warn("LLM 输出不可用，使用规则合成结果")
	} else {
		logger.Log.WithField("kind", res.Kind).Infof("%s 生成完成", res.Kind)
	}
	return res
}
