package usecase

import (
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/portfolio"
)

// PortfolioUseCase 规则型组合工具，不依赖外部服务
type PortfolioUseCase struct {
	log *log.Helper
}

func NewPortfolioUseCase(logger log.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{log: log.NewHelper(logger)}
}

// StressTest 情景默认 market_crash
func (uc *PortfolioUseCase) StressTest(value float64, allocation map[string]float64, scenario string) (*portfolio.StressResult, error) {
	if strings.TrimSpace(scenario) == "" {
		scenario = portfolio.DefaultScenario
	}
	res, err := portfolio.StressTest(value, allocation, scenario)
	if err != nil {
		return nil, errors.BadRequest("INVALID_STRESS_TEST", err.Error())
	}
	uc.log.Infof("stress test %s: impact %.2f%%", res.Scenario, res.TotalImpactPercentage)
	return res, nil
}

func (uc *PortfolioUseCase) Quiz(answers map[string]any) (*portfolio.QuizResult, error) {
	res, err := portfolio.ScoreQuiz(answers)
	if err != nil {
		return nil, errors.BadRequest("INVALID_QUIZ", err.Error())
	}
	return res, nil
}

func (uc *PortfolioUseCase) Rebalance(current map[string]float64, target string, amount float64) (*portfolio.RebalancePlan, error) {
	plan, err := portfolio.Rebalance(current, strings.ToLower(strings.TrimSpace(target)), amount)
	if err != nil {
		return nil, errors.BadRequest("INVALID_REBALANCE", err.Error())
	}
	return plan, nil
}

func (uc *PortfolioUseCase) Templates() []portfolio.Template { return portfolio.Templates() }

func (uc *PortfolioUseCase) Metrics() []portfolio.Metric { return portfolio.Metrics() }
