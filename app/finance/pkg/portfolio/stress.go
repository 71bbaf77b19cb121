// Package portfolio 不依赖 LLM 的规则型组合工具：压力测试、风险偏好问卷、再平衡建议、策略模板。
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// DefaultScenario 未指定情景时使用
const DefaultScenario = "market_crash"

// unknownAssetImpact 情景表中没有的资产类别按 -10% 计
const unknownAssetImpact = -0.10

var scenarios = map[string]map[string]float64{
	"market_crash": {
		"stocks": -0.30, "bonds": -0.05, "cash": 0.0, "commodities": -0.15, "real_estate": -0.20,
	},
	"recession": {
		"stocks": -0.20, "bonds": 0.05, "cash": 0.0, "commodities": -0.10, "real_estate": -0.15,
	},
	"inflation_spike": {
		"stocks": -0.10, "bonds": -0.15, "cash": -0.05, "commodities": 0.20, "real_estate": 0.10,
	},
	"interest_rate_shock": {
		"stocks": -0.15, "bonds": -0.25, "cash": 0.02, "commodities": -0.05, "real_estate": -0.10,
	},
}

var (
	ErrNonPositiveValue = errors.New("portfolio value must be positive")
	ErrEmptyAllocation  = errors.New("portfolio allocation cannot be empty")
)

// Scenarios 返回支持的情景名（排序）
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for k := range scenarios {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AssetImpact 单个资产类别在情景下的影响
type AssetImpact struct {
	AllocationPercentage float64 `json:"allocation_percentage"`
	ScenarioImpact       float64 `json:"scenario_impact"`
	DollarImpact         float64 `json:"dollar_impact"`
}

// StressResult 压力测试结果
type StressResult struct {
	Scenario               string                 `json:"scenario"`
	OriginalPortfolioValue float64                `json:"original_portfolio_value"`
	StressedPortfolioValue float64                `json:"stressed_portfolio_value"`
	TotalImpactPercentage  float64                `json:"total_impact_percentage"`
	DollarImpact           float64                `json:"dollar_impact"`
	AssetClassImpacts      map[string]AssetImpact `json:"asset_class_impacts"`
	RiskLevel              string                 `json:"risk_level"`
	Recommendations        []string               `json:"recommendations"`
}

// StressTest 按情景表估算组合损益。配置值 >1 视为百分数，否则视为比例
func StressTest(value float64, allocation map[string]float64, scenario string) (*StressResult, error) {
	if value <= 0 {
		return nil, ErrNonPositiveValue
	}
	if len(allocation) == 0 {
		return nil, ErrEmptyAllocation
	}
	if scenario == "" {
		scenario = DefaultScenario
	}
	impacts, ok := scenarios[scenario]
	if !ok {
		return nil, fmt.Errorf("invalid stress scenario %q, choose from: %s", scenario, strings.Join(Scenarios(), ", "))
	}

	classes := make([]string, 0, len(allocation))
	for k := range allocation {
		classes = append(classes, k)
	}
	sort.Strings(classes)

	weights := make([]float64, len(classes))
	shocks := make([]float64, len(classes))
	for i, c := range classes {
		w := allocation[c]
		if w > 1 {
			w /= 100
		}
		weights[i] = w
		shock, ok := impacts[strings.ToLower(c)]
		if !ok {
			shock = unknownAssetImpact
		}
		shocks[i] = shock
	}

	weighted := make([]float64, len(classes))
	floats.MulTo(weighted, weights, shocks)
	total := floats.Sum(weighted)

	res := &StressResult{
		Scenario:               scenario,
		OriginalPortfolioValue: value,
		AssetClassImpacts:      make(map[string]AssetImpact, len(classes)),
		Recommendations:        []string{},
	}
	for i, c := range classes {
		res.AssetClassImpacts[c] = AssetImpact{
			AllocationPercentage: weights[i] * 100,
			ScenarioImpact:       shocks[i] * 100,
			DollarImpact:         value * weighted[i],
		}
	}

	stressed := value * (1 + total)
	res.StressedPortfolioValue = round2(stressed)
	res.TotalImpactPercentage = round2(total * 100)
	res.DollarImpact = round2(value - stressed)

	switch abs := math.Abs(total); {
	case abs > 0.20:
		res.RiskLevel = "high"
	case abs > 0.10:
		res.RiskLevel = "moderate"
	default:
		res.RiskLevel = "low"
	}

	if total < -0.15 {
		res.Recommendations = append(res.Recommendations,
			"Consider reducing portfolio concentration in high-risk assets",
			"Increase emergency fund to 6-12 months of expenses",
			"Review and possibly increase bond allocation for stability",
		)
	}
	if math.Abs(total) > 0.20 {
		res.Recommendations = append(res.Recommendations,
			"Portfolio shows high sensitivity to market stress",
			"Consider diversifying across more asset classes",
			"Implement dollar-cost averaging for new investments",
		)
	}
	if scenario == "inflation_spike" && allocation["commodities"] < 5 {
		res.Recommendations = append(res.Recommendations, "Consider adding commodity exposure as inflation hedge")
	}
	if scenario == "interest_rate_shock" && allocation["bonds"] > 40 {
		res.Recommendations = append(res.Recommendations, "Consider shorter-duration bonds to reduce interest rate risk")
	}
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
