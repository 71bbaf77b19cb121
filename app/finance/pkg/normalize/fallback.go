package normalize

import (
	"fmt"
	"math"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// 规则策略使用的固定文案
var (
	fallbackKeyActions = []string{
		"Open investment accounts if not already done",
		"Set up automatic monthly contributions",
		"Review and rebalance quarterly",
	}
	fallbackRiskWarnings = []string{
		"Market volatility can affect portfolio value",
		"Past performance doesn't guarantee future results",
	}
)

const (
	defaultReviewTimeline = "Review annually or when life circumstances change"
	stockRationale        = "Growth potential appropriate for age and risk tolerance"
	bondRationale         = "Stability and income generation"
)

// Fallback 抽取不到可用结构时，按确定性规则合成结果
type Fallback struct {
	opts Options
}

// NewFallback 创建合成器
func NewFallback(opts Options) *Fallback {
	return &Fallback{opts: opts.withDefaults()}
}

// StockBondSplit 按年龄与风险偏好给出股票 / 债券比例，结果之和恰为 100
func StockBondSplit(age int, tier model.RiskLevel) (stock, bond float64) {
	a := float64(age)
	switch tier {
	case model.RiskConservative:
		stock, bond = math.Max(30, 100-a), math.Min(70, a+20)
	case model.RiskAggressive:
		stock, bond = math.Min(90, 120-a), math.Max(10, a-20)
	default:
		stock, bond = math.Max(40, 110-a), math.Min(60, a+10)
	}
	sum := stock + bond
	return stock / sum * 100, bond / sum * 100
}

// Strategy 规则策略
func (f *Fallback) Strategy(p model.Profile, estimate float64) model.Strategy {
	tier := p.RiskTolerance
	if level, ok := model.ParseRiskLevel(string(tier)); ok {
		tier = level
	} else {
		tier = model.RiskModerate
	}
	stock, bond := StockBondSplit(p.Age, tier)

	expenses := p.MonthlyExpenses
	if expenses <= 0 {
		expenses = estimate
		if expenses <= 0 {
			expenses = f.opts.ExpenseEstimate
		}
	}

	return model.Strategy{
		Summary: defaultSummary(tier, p.Age),
		Allocations: []model.Allocation{
			{AssetClass: "Stocks", Percentage: stock, Rationale: stockRationale, RiskLevel: tier},
			{AssetClass: "Bonds", Percentage: bond, Rationale: bondRationale, RiskLevel: model.RiskConservative},
		},
		MonthlySavingsTarget: f.opts.SavingsRate * math.Max(p.AnnualIncome, 0) / 12,
		EmergencyFundTarget:  f.opts.EmergencyDefaultMonths * expenses,
		KeyActions:           append([]string{}, fallbackKeyActions...),
		RiskWarnings:         append([]string{}, fallbackRiskWarnings...),
		ReviewTimeline:       defaultReviewTimeline,
	}
}

// Risk 无信息量的中性风险评估
func (f *Fallback) Risk() model.RiskAssessment {
	return model.RiskAssessment{
		OverallScore: 0.5,
		Level:        model.RiskModerate,
		Factors: []model.RiskFactor{{
			Name:        "Market Volatility",
			Severity:    model.SeverityMedium,
			ImpactScore: 0.6,
			Mitigations: []string{"Diversification", "Dollar-cost averaging"},
		}},
		Recommendations: []string{"Maintain diversified portfolio", "Regular risk assessment"},
		Confidence:      0.7,
	}
}

// Compliance 分析失败时的待人工复核结果
func (f *Fallback) Compliance() model.ComplianceResult {
	return model.ComplianceResult{
		Status:          model.StatusNeedsReview,
		Confidence:      0,
		FlaggedClauses:  []string{},
		Recommendations: []string{"Manual review required due to analysis error"},
		RiskFactors:     []string{"Analysis system error"},
	}
}

func defaultSummary(tier model.RiskLevel, age int) string {
	return fmt.Sprintf("Balanced %s strategy appropriate for age %d", tier, age)
}
