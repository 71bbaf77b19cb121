package service

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/transport"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/usecase"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
)

const (
	apiName    = "Financial Advisor API"
	apiVersion = "1.0.0"
)

type AdvisorService struct {
	ucUser      *usecase.UserUseCase
	ucAnalysis  *usecase.AnalysisUseCase
	ucPortfolio *usecase.PortfolioUseCase
	log         *log.Helper
}

func NewAdvisorService(ucUser *usecase.UserUseCase, ucAnalysis *usecase.AnalysisUseCase,
	ucPortfolio *usecase.PortfolioUseCase, logger log.Logger) *AdvisorService {
	return &AdvisorService{
		ucUser:      ucUser,
		ucAnalysis:  ucAnalysis,
		ucPortfolio: ucPortfolio,
		log:         log.NewHelper(logger),
	}
}

// caller 识别调用者：jwt 中间件已解析的声明优先，其次是请求头里的令牌，都没有则为匿名
func (s *AdvisorService) caller(ctx context.Context) (string, error) {
	if claims, ok := jwt.FromContext(ctx); ok {
		return usecase.UsernameFromClaims(claims)
	}
	var token string
	if tr, ok := transport.FromServerContext(ctx); ok {
		token = tr.RequestHeader().Get("Authorization")
	}
	return s.ucUser.Identify(token)
}

func (s *AdvisorService) Root(ctx context.Context, _ *Empty) (*Response, error) {
	return &Response{
		Success: true,
		Message: apiName,
		Data: map[string]string{
			"message":     apiName,
			"version":     apiVersion,
			"description": "RAG-powered financial advisory system",
		},
	}, nil
}

func (s *AdvisorService) Health(ctx context.Context, _ *Empty) (*Response, error) {
	return &Response{
		Success: true,
		Message: apiName + " is running",
		Data:    map[string]string{"status": "healthy", "version": apiVersion},
	}, nil
}

func (s *AdvisorService) AnalyzeDocument(ctx context.Context, req *AnalyzeDocumentRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.ucAnalysis.AnalyzeDocument(ctx, user, req.DocumentText, req.DocumentType)
	if err != nil {
		return nil, err
	}
	return result("Document analysis completed", out.Result.Degraded(), out), nil
}

func (s *AdvisorService) AnalyzeDocumentURL(ctx context.Context, req *AnalyzeURLRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.ucAnalysis.AnalyzeURL(ctx, user, req.URL, req.DocumentType)
	if err != nil {
		return nil, err
	}
	return result("Document analysis completed", out.Result.Degraded(), out), nil
}

func (s *AdvisorService) StoreDocument(ctx context.Context, req *StoreDocumentRequest) (*Response, error) {
	out, err := s.ucAnalysis.StoreDocument(ctx, engine.StoreRequest{
		ID:           req.DocumentID,
		Text:         req.DocumentText,
		DocumentType: req.DocumentType,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return ok("Document stored successfully", out), nil
}

func (s *AdvisorService) DeleteDocuments(ctx context.Context, req *DeleteDocumentsRequest) (*Response, error) {
	if err := s.ucAnalysis.DeleteDocuments(ctx, req.IDs); err != nil {
		return nil, err
	}
	return ok("Documents deleted successfully", map[string]any{"deleted_ids": req.IDs}), nil
}

func (s *AdvisorService) DocumentStats(ctx context.Context, _ *Empty) (*Response, error) {
	st, err := s.ucAnalysis.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return ok("Index statistics retrieved", st), nil
}

func (s *AdvisorService) GenerateStrategy(ctx context.Context, req *GenerateStrategyRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.ucAnalysis.GenerateStrategy(ctx, user, req.UserProfile, req.Preferences)
	if err != nil {
		return nil, err
	}
	return result("Financial strategy generated", res.Degraded(), res), nil
}

func (s *AdvisorService) QuickStrategy(ctx context.Context, req *QuickStrategyRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.ucAnalysis.QuickStrategy(ctx, user, usecase.QuickInput{
		Age:           req.Age,
		AnnualIncome:  req.AnnualIncome,
		RiskTolerance: req.RiskTolerance,
		TimeHorizon:   req.TimeHorizon,
		PrimaryGoal:   req.PrimaryGoal,
	})
	if err != nil {
		return nil, err
	}
	return result("Quick strategy generated", res.Degraded(), res), nil
}

func (s *AdvisorService) StrategyTemplates(ctx context.Context, _ *Empty) (*Response, error) {
	return ok("Strategy templates retrieved", s.ucPortfolio.Templates()), nil
}

func (s *AdvisorService) OptimizePortfolio(ctx context.Context, req *OptimizePortfolioRequest) (*Response, error) {
	plan, err := s.ucPortfolio.Rebalance(req.CurrentAllocation, req.TargetRiskLevel, req.InvestmentAmount)
	if err != nil {
		return nil, err
	}
	return ok("Portfolio optimization completed", plan), nil
}

func (s *AdvisorService) AssessRisk(ctx context.Context, req *AssessRiskRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.ucAnalysis.AssessRisk(ctx, user, req.FinancialData, req.ScenarioType)
	if err != nil {
		return nil, err
	}
	return result("Risk assessment completed", res.Degraded(), res), nil
}

func (s *AdvisorService) StressTest(ctx context.Context, req *StressTestRequest) (*Response, error) {
	res, err := s.ucPortfolio.StressTest(req.PortfolioValue, req.PortfolioAllocation, req.StressScenario)
	if err != nil {
		return nil, err
	}
	return ok("Stress test completed", res), nil
}

func (s *AdvisorService) RiskMetrics(ctx context.Context, _ *Empty) (*Response, error) {
	return ok("Risk metrics retrieved", s.ucPortfolio.Metrics()), nil
}

func (s *AdvisorService) RiskToleranceQuiz(ctx context.Context, req *QuizRequest) (*Response, error) {
	res, err := s.ucPortfolio.Quiz(req.Answers)
	if err != nil {
		return nil, err
	}
	return ok("Risk tolerance assessed", res), nil
}

func (s *AdvisorService) Register(ctx context.Context, req *AuthRequest) (*Response, error) {
	if err := s.ucUser.Register(ctx, req.Username, req.Password); err != nil {
		return nil, err
	}
	return ok("User registered", map[string]string{"username": req.Username}), nil
}

func (s *AdvisorService) Login(ctx context.Context, req *AuthRequest) (*Response, error) {
	token, err := s.ucUser.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	return ok("Login successful", &LoginReply{Token: token, Username: req.Username}), nil
}

func (s *AdvisorService) History(ctx context.Context, req *HistoryRequest) (*Response, error) {
	user, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	page, err := s.ucAnalysis.History(ctx, user, req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}
	return ok("History retrieved", page), nil
}
