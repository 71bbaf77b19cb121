package usecase

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/vector"
)

// mockUserRepo 模拟用户仓库
type mockUserRepo struct {
	users map[string]*domain.User
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if _, ok := m.users[u.Username]; ok {
		return errors.Conflict("USER_EXISTS", "username already exists")
	}
	m.users[u.Username] = u
	return nil
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, errors.NotFound("USER_NOT_FOUND", "user not found")
	}
	return u, nil
}

// mockAnalysisRepo 模拟分析历史仓库
type mockAnalysisRepo struct {
	saved   []*domain.Analysis
	saveErr error
}

func (m *mockAnalysisRepo) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, a)
	return nil
}

func (m *mockAnalysisRepo) ListAnalyses(ctx context.Context, username string, page, pageSize int) ([]*domain.Analysis, int, error) {
	var out []*domain.Analysis
	for _, a := range m.saved {
		if a.Username == username {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

// mockAdvisor 用真实归一化管线模拟引擎，不访问外部服务
type mockAdvisor struct {
	pipeline *normalize.Pipeline
	profile  model.Profile
	fetchErr error
	deleted  []string
}

func newMockAdvisor() *mockAdvisor {
	return &mockAdvisor{pipeline: normalize.New(normalize.DefaultOptions())}
}

func (m *mockAdvisor) GenerateStrategy(ctx context.Context, p model.Profile, prefs map[string]any) normalize.Result {
	m.profile = p
	return m.pipeline.Normalize("", model.KindStrategy, normalize.Inputs{Profile: &p})
}

func (m *mockAdvisor) AssessRisk(ctx context.Context, data map[string]any, scenario string) (normalize.Result, error) {
	if len(data) == 0 {
		return normalize.Result{}, engine.ErrEmptyFinancials
	}
	return m.pipeline.Normalize("", model.KindRisk, normalize.Inputs{}), nil
}

func (m *mockAdvisor) AnalyzeCompliance(ctx context.Context, text, docType string) (*engine.DocumentAnalysis, error) {
	if text == "" {
		return nil, engine.ErrEmptyDocument
	}
	return &engine.DocumentAnalysis{
		DocumentType: docType,
		Result:       m.pipeline.Normalize("", model.KindCompliance, normalize.Inputs{}),
	}, nil
}

func (m *mockAdvisor) AnalyzeURL(ctx context.Context, url, docType string) (*engine.DocumentAnalysis, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.AnalyzeCompliance(ctx, "page text", docType)
}

func (m *mockAdvisor) StoreDocument(ctx context.Context, req engine.StoreRequest) (*engine.StoreResult, error) {
	if req.Text == "" {
		return nil, engine.ErrEmptyDocument
	}
	return &engine.StoreResult{DocumentID: req.ID, Chunks: 1}, nil
}

func (m *mockAdvisor) DeleteDocuments(ctx context.Context, ids []string) error {
	m.deleted = append(m.deleted, ids...)
	return nil
}

func (m *mockAdvisor) IndexStats(ctx context.Context) (*vector.Stats, error) {
	return nil, stderrors.New("index unreachable")
}

func validProfile() model.Profile {
	return model.Profile{
		Age:             35,
		AnnualIncome:    75000,
		RiskTolerance:   model.RiskModerate,
		FinancialGoals:  []string{"retirement"},
		TimeHorizon:     20,
		MonthlyExpenses: 4000,
	}
}

func TestUserUseCase_RegisterLoginIdentify(t *testing.T) {
	uc := NewUserUseCase(&mockUserRepo{users: map[string]*domain.User{}}, &conf.Auth{JwtKey: "k"}, log.DefaultLogger)
	ctx := context.Background()

	require.NoError(t, uc.Register(ctx, "ann", "secret"))
	err := uc.Register(ctx, "ann", "secret")
	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.IsBadRequest(uc.Register(ctx, " ", "x")))

	_, err = uc.Login(ctx, "ann", "wrong")
	assert.True(t, errors.IsUnauthorized(err))
	_, err = uc.Login(ctx, "bob", "secret")
	assert.True(t, errors.IsUnauthorized(err))

	token, err := uc.Login(ctx, "ann", "secret")
	require.NoError(t, err)
	name, err := uc.Identify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "ann", name)

	name, err = uc.Identify("")
	require.NoError(t, err)
	assert.Equal(t, domain.AnonymousUser, name)

	_, err = uc.Identify("garbage")
	assert.True(t, errors.IsUnauthorized(err))
}

func TestUserUseCase_ExpiredToken(t *testing.T) {
	uc := NewUserUseCase(&mockUserRepo{users: map[string]*domain.User{}}, nil, log.DefaultLogger)
	ctx := context.Background()
	require.NoError(t, uc.Register(ctx, "ann", "secret"))

	uc.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := uc.Login(ctx, "ann", "secret")
	require.NoError(t, err)

	uc.now = time.Now
	_, err = uc.Identify(token)
	assert.True(t, errors.IsUnauthorized(err))
}

func TestAnalysisUseCase_GenerateStrategy(t *testing.T) {
	r := &mockAnalysisRepo{}
	uc := NewAnalysisUseCase(newMockAdvisor(), r, log.DefaultLogger)

	res, err := uc.GenerateStrategy(context.Background(), "ann", validProfile(), nil)
	require.NoError(t, err)
	assert.Equal(t, normalize.SourceFallback, res.Source)
	require.NotNil(t, res.Strategy)

	require.Len(t, r.saved, 1)
	assert.Equal(t, "ann", r.saved[0].Username)
	assert.Equal(t, string(model.KindStrategy), r.saved[0].Kind)
	assert.Contains(t, string(r.saved[0].Payload), "investment_recommendations")
}

func TestAnalysisUseCase_InvalidProfile(t *testing.T) {
	r := &mockAnalysisRepo{}
	uc := NewAnalysisUseCase(newMockAdvisor(), r, log.DefaultLogger)

	p := validProfile()
	p.Age = 10
	p.FinancialGoals = nil
	_, err := uc.GenerateStrategy(context.Background(), "ann", p, nil)
	require.Error(t, err)

	e := errors.FromError(err)
	assert.Equal(t, int32(400), e.Code)
	assert.Contains(t, e.Metadata, "age")
	assert.Contains(t, e.Metadata, "financial_goals")
	assert.Empty(t, r.saved)
}

func TestAnalysisUseCase_QuickStrategy(t *testing.T) {
	adv := newMockAdvisor()
	uc := NewAnalysisUseCase(adv, &mockAnalysisRepo{}, log.DefaultLogger)

	_, err := uc.QuickStrategy(context.Background(), "", QuickInput{
		Age: 30, AnnualIncome: 60000, RiskTolerance: "aggressive", TimeHorizon: 10, PrimaryGoal: "house",
	})
	require.NoError(t, err)
	assert.InDelta(t, 3500, adv.profile.MonthlyExpenses, 1e-9)
	assert.Equal(t, "moderate", adv.profile.InvestmentExperience)
	assert.Equal(t, []string{"house"}, adv.profile.FinancialGoals)
}

func TestAnalysisUseCase_ErrorMapping(t *testing.T) {
	adv := newMockAdvisor()
	r := &mockAnalysisRepo{saveErr: stderrors.New("db down")}
	uc := NewAnalysisUseCase(adv, r, log.DefaultLogger)
	ctx := context.Background()

	_, err := uc.AssessRisk(ctx, "ann", nil, "")
	assert.True(t, errors.IsBadRequest(err))

	// 保存失败不影响结果
	res, err := uc.AssessRisk(ctx, "ann", map[string]any{"income": 1}, "")
	require.NoError(t, err)
	assert.Equal(t, model.RiskModerate, res.Risk.Level)

	_, err = uc.AnalyzeDocument(ctx, "ann", "", "policy")
	assert.True(t, errors.IsBadRequest(err))

	_, err = uc.AnalyzeURL(ctx, "ann", "", "")
	assert.True(t, errors.IsBadRequest(err))
	adv.fetchErr = stderrors.New("404")
	_, err = uc.AnalyzeURL(ctx, "ann", "http://x", "")
	assert.Equal(t, "FETCH_FAILED", errors.Reason(err))

	_, err = uc.StoreDocument(ctx, engine.StoreRequest{})
	assert.True(t, errors.IsBadRequest(err))

	assert.True(t, errors.IsBadRequest(uc.DeleteDocuments(ctx, nil)))
	require.NoError(t, uc.DeleteDocuments(ctx, []string{"a"}))
	assert.Equal(t, []string{"a"}, adv.deleted)

	_, err = uc.Stats(ctx)
	assert.True(t, errors.IsInternalServer(err))
}

func TestAnalysisUseCase_History(t *testing.T) {
	r := &mockAnalysisRepo{}
	uc := NewAnalysisUseCase(newMockAdvisor(), r, log.DefaultLogger)
	ctx := context.Background()

	_, err := uc.AnalyzeDocument(ctx, "", "some text", "policy")
	require.NoError(t, err)

	page, err := uc.History(ctx, domain.AnonymousUser, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.PageSize)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, string(model.KindCompliance), page.Items[0].Kind)

	page, err = uc.History(ctx, "nobody", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, page.PageSize)
	assert.NotNil(t, page.Items)
}

func TestPortfolioUseCase(t *testing.T) {
	uc := NewPortfolioUseCase(log.DefaultLogger)

	res, err := uc.StressTest(100000, map[string]float64{"stocks": 60, "bonds": 40}, "")
	require.NoError(t, err)
	assert.Equal(t, "market_crash", res.Scenario)

	_, err = uc.StressTest(0, map[string]float64{"stocks": 1}, "")
	assert.True(t, errors.IsBadRequest(err))

	_, err = uc.Quiz(nil)
	assert.True(t, errors.IsBadRequest(err))

	plan, err := uc.Rebalance(map[string]float64{"stocks": 90, "bonds": 10}, " Moderate ", 10000)
	require.NoError(t, err)
	assert.Equal(t, model.RiskModerate, plan.TargetRiskLevel)

	assert.Len(t, uc.Templates(), 3)
	assert.Len(t, uc.Metrics(), 6)
}
