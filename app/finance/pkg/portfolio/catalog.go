package portfolio

import "github.com/iWorld-y/fin_advisor/app/finance/pkg/model"

// Template 预置策略模板
type Template struct {
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	RiskLevel         model.RiskLevel    `json:"risk_level"`
	TypicalAllocation map[string]float64 `json:"typical_allocation"`
	KeyFeatures       []string           `json:"key_features"`
}

// Templates 按人生阶段划分的三个模板
func Templates() []Template {
	return []Template{
		{
			Name:              "young_aggressive",
			Description:       "High-growth strategy for young investors (20-35)",
			RiskLevel:         model.RiskAggressive,
			TypicalAllocation: map[string]float64{"stocks": 80, "bonds": 15, "alternatives": 5},
			KeyFeatures: []string{
				"Focus on growth stocks and emerging markets",
				"Higher volatility tolerance",
				"Long-term wealth building",
			},
		},
		{
			Name:              "mid_career_moderate",
			Description:       "Balanced strategy for mid-career professionals (35-50)",
			RiskLevel:         model.RiskModerate,
			TypicalAllocation: map[string]float64{"stocks": 65, "bonds": 30, "alternatives": 5},
			KeyFeatures: []string{
				"Balance between growth and stability",
				"Diversified across asset classes",
				"Regular rebalancing",
			},
		},
		{
			Name:              "pre_retirement_conservative",
			Description:       "Capital preservation for pre-retirees (50+)",
			RiskLevel:         model.RiskConservative,
			TypicalAllocation: map[string]float64{"stocks": 40, "bonds": 55, "cash": 5},
			KeyFeatures: []string{
				"Focus on income generation",
				"Lower volatility",
				"Capital preservation",
			},
		},
	}
}

// Metric 风险指标说明
type Metric struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Interpretation map[string]string `json:"interpretation,omitempty"`
	Factors        []string          `json:"factors,omitempty"`
}

// Metrics 风险指标目录
func Metrics() []Metric {
	return []Metric{
		{
			Name:        "overall_risk_score",
			Description: "Composite risk score from 0.0 (lowest risk) to 1.0 (highest risk)",
			Interpretation: map[string]string{
				"0.0-0.3": "Low risk - Conservative portfolio suitable for capital preservation",
				"0.3-0.6": "Moderate risk - Balanced approach with growth potential",
				"0.6-1.0": "High risk - Aggressive growth strategy with higher volatility",
			},
		},
		{
			Name:        "market_risk",
			Description: "Risk from overall market movements and economic conditions",
			Factors:     []string{"Market volatility", "Economic cycles", "Interest rate changes"},
		},
		{
			Name:        "credit_risk",
			Description: "Risk of default on debt obligations",
			Factors:     []string{"Credit rating", "Debt-to-income ratio", "Payment history"},
		},
		{
			Name:        "liquidity_risk",
			Description: "Risk of not being able to convert investments to cash quickly",
			Factors:     []string{"Asset liquidity", "Market conditions", "Investment type"},
		},
		{
			Name:        "inflation_risk",
			Description: "Risk that inflation will erode purchasing power",
			Factors:     []string{"Asset classes", "Duration", "Economic environment"},
		},
		{
			Name:        "concentration_risk",
			Description: "Risk from lack of diversification",
			Factors:     []string{"Asset allocation", "Geographic exposure", "Sector concentration"},
		},
	}
}
