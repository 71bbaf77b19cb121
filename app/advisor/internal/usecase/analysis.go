package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/repo"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector"
)

const (
	defaultScenario = "general"
	defaultPageSize = 20
	maxPageSize     = 100
)

// Advisor 分析引擎，由 engine.Engine 实现
type Advisor interface {
	GenerateStrategy(ctx context.Context, profile model.Profile, preferences map[string]any) normalize.Result
	AssessRisk(ctx context.Context, financialData map[string]any, scenario string) (normalize.Result, error)
	AnalyzeCompliance(ctx context.Context, text, docType string) (*engine.DocumentAnalysis, error)
	AnalyzeURL(ctx context.Context, url, docType string) (*engine.DocumentAnalysis, error)
	StoreDocument(ctx context.Context, req engine.StoreRequest) (*engine.StoreResult, error)
	DeleteDocuments(ctx context.Context, ids []string) error
	IndexStats(ctx context.Context) (*vector.Stats, error)
}

var _ Advisor = (*engine.Engine)(nil)

// AnalysisUseCase 分析业务逻辑，结果写入历史
type AnalysisUseCase struct {
	advisor Advisor
	repo    repo.AnalysisRepo
	log     *log.Helper
}

// NewAnalysisUseCase 创建分析业务逻辑实例
func NewAnalysisUseCase(advisor Advisor, repo repo.AnalysisRepo, logger log.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{advisor: advisor, repo: repo, log: log.NewHelper(logger)}
}

// QuickInput 快速策略的简化输入
type QuickInput struct {
	Age           int
	AnnualIncome  float64
	RiskTolerance string
	TimeHorizon   int
	PrimaryGoal   string
}

// GenerateStrategy 校验画像后生成策略
func (uc *AnalysisUseCase) GenerateStrategy(ctx context.Context, user string, p model.Profile, prefs map[string]any) (normalize.Result, error) {
	profile, err := model.NewProfile(p)
	if err != nil {
		return normalize.Result{}, profileError(err)
	}
	res := uc.advisor.GenerateStrategy(ctx, profile, prefs)
	uc.record(ctx, user, res)
	return res, nil
}

// QuickStrategy 月支出按年收入的 70% 估算
func (uc *AnalysisUseCase) QuickStrategy(ctx context.Context, user string, in QuickInput) (normalize.Result, error) {
	p := model.Profile{
		Age:                  in.Age,
		AnnualIncome:         in.AnnualIncome,
		InvestmentExperience: "moderate",
		RiskTolerance:        model.RiskLevel(in.RiskTolerance),
		FinancialGoals:       []string{in.PrimaryGoal},
		TimeHorizon:          in.TimeHorizon,
		MonthlyExpenses:      in.AnnualIncome * 0.7 / 12,
	}
	return uc.GenerateStrategy(ctx, user, p, map[string]any{"quick_strategy": true})
}

// AssessRisk 风险评估，场景默认 general
func (uc *AnalysisUseCase) AssessRisk(ctx context.Context, user string, data map[string]any, scenario string) (normalize.Result, error) {
	if strings.TrimSpace(scenario) == "" {
		scenario = defaultScenario
	}
	res, err := uc.advisor.AssessRisk(ctx, data, scenario)
	if err != nil {
		return normalize.Result{}, mapEngineError(err)
	}
	uc.record(ctx, user, res)
	return res, nil
}

// AnalyzeDocument 文档合规分析
func (uc *AnalysisUseCase) AnalyzeDocument(ctx context.Context, user, text, docType string) (*engine.DocumentAnalysis, error) {
	out, err := uc.advisor.AnalyzeCompliance(ctx, text, docType)
	if err != nil {
		return nil, mapEngineError(err)
	}
	uc.record(ctx, user, out.Result)
	return out, nil
}

// AnalyzeURL 抓取网页后做合规分析
func (uc *AnalysisUseCase) AnalyzeURL(ctx context.Context, user, url, docType string) (*engine.DocumentAnalysis, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.BadRequest("INVALID_URL", "url cannot be empty")
	}
	out, err := uc.advisor.AnalyzeURL(ctx, url, docType)
	if err != nil {
		if stderrors.Is(err, engine.ErrEmptyDocument) {
			return nil, mapEngineError(err)
		}
		return nil, errors.BadRequest("FETCH_FAILED", err.Error())
	}
	uc.record(ctx, user, out.Result)
	return out, nil
}

// StoreDocument 文档入库
func (uc *AnalysisUseCase) StoreDocument(ctx context.Context, req engine.StoreRequest) (*engine.StoreResult, error) {
	out, err := uc.advisor.StoreDocument(ctx, req)
	if err != nil {
		return nil, mapEngineError(err)
	}
	uc.log.Infof("stored document %s in %d chunks", out.DocumentID, out.Chunks)
	return out, nil
}

// DeleteDocuments 按 id 删除向量
func (uc *AnalysisUseCase) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return errors.BadRequest("INVALID_IDS", "ids cannot be empty")
	}
	if err := uc.advisor.DeleteDocuments(ctx, ids); err != nil {
		return mapEngineError(err)
	}
	return nil
}

// Stats 向量索引统计
func (uc *AnalysisUseCase) Stats(ctx context.Context) (*vector.Stats, error) {
	st, err := uc.advisor.IndexStats(ctx)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return st, nil
}

// History 分页列出用户的分析历史
func (uc *AnalysisUseCase) History(ctx context.Context, user string, page, pageSize int) (*domain.AnalysisPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	items, total, err := uc.repo.ListAnalyses(ctx, user, page, pageSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Analysis{}
	}
	return &domain.AnalysisPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// record 保存失败只记日志，不影响响应
func (uc *AnalysisUseCase) record(ctx context.Context, user string, res normalize.Result) {
	if user == "" {
		user = domain.AnonymousUser
	}
	payload, err := json.Marshal(res.Entity())
	if err != nil {
		uc.log.Errorf("marshal analysis failed: %v", err)
		return
	}
	a := &domain.Analysis{
		ID:          uuid.NewString(),
		Username:    user,
		Kind:        string(res.Kind),
		Source:      string(res.Source),
		Payload:     payload,
		Diagnostics: res.Diagnostics,
	}
	if err := uc.repo.SaveAnalysis(ctx, a); err != nil {
		uc.log.Errorf("save analysis %s failed: %v", a.ID, err)
	}
}

func profileError(err error) error {
	var ve *model.ValidationError
	if !stderrors.As(err, &ve) {
		return errors.BadRequest("INVALID_PROFILE", err.Error())
	}
	md := make(map[string]string, len(ve.Fields))
	for field, msgs := range ve.Fields {
		md[field] = strings.Join(msgs, "; ")
	}
	return errors.BadRequest("INVALID_PROFILE", ve.Error()).WithMetadata(md)
}

func mapEngineError(err error) error {
	switch {
	case stderrors.Is(err, engine.ErrEmptyDocument):
		return errors.BadRequest("EMPTY_DOCUMENT", err.Error())
	case stderrors.Is(err, engine.ErrEmptyFinancials):
		return errors.BadRequest("EMPTY_FINANCIAL_DATA", err.Error())
	}
	return errors.InternalServer("ENGINE_ERROR", err.Error()).WithCause(err)
}
