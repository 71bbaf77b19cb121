package portfolio

import (
	"errors"
	"math"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

var (
	ErrInvalidTarget  = errors.New("invalid target risk level")
	ErrNegativeAmount = errors.New("investment amount must be positive")
)

// rebalanceThreshold 偏离不超过该百分点时不建议调整
const rebalanceThreshold = 2.0

// TargetWeight 目标配置中的一项
type TargetWeight struct {
	AssetClass string  `json:"asset_class"`
	Percentage float64 `json:"percentage"`
}

var targets = map[model.RiskLevel][]TargetWeight{
	model.RiskConservative: {{"stocks", 30}, {"bonds", 60}, {"cash", 10}},
	model.RiskModerate:     {{"stocks", 60}, {"bonds", 35}, {"cash", 5}},
	model.RiskAggressive:   {{"stocks", 80}, {"bonds", 15}, {"cash", 5}},
}

// Adjustment 单项调整建议
type Adjustment struct {
	AssetClass        string  `json:"asset_class"`
	Action            string  `json:"action"`
	TargetPercentage  float64 `json:"target_percentage"`
	CurrentPercentage float64 `json:"current_percentage"`
	AdjustmentAmount  float64 `json:"adjustment_amount"`
}

// RebalancePlan 再平衡结果
type RebalancePlan struct {
	TargetRiskLevel  model.RiskLevel `json:"target_risk_level"`
	TargetAllocation []TargetWeight  `json:"target_allocation"`
	Recommendations  []Adjustment    `json:"recommendations"`
}

// Rebalance 对比当前配置与目标档位，列出偏离超过阈值的调整
func Rebalance(current map[string]float64, target string, amount float64) (*RebalancePlan, error) {
	if len(current) == 0 {
		return nil, errors.New("current allocation cannot be empty")
	}
	level := model.RiskLevel(target)
	weights, ok := targets[level]
	if !ok {
		return nil, ErrInvalidTarget
	}
	if amount < 0 {
		return nil, ErrNegativeAmount
	}

	plan := &RebalancePlan{
		TargetRiskLevel:  level,
		TargetAllocation: append([]TargetWeight(nil), weights...),
		Recommendations:  []Adjustment{},
	}
	for _, w := range weights {
		cur := current[w.AssetClass]
		diff := w.Percentage - cur
		if math.Abs(diff) <= rebalanceThreshold {
			continue
		}
		action := "decrease"
		if diff > 0 {
			action = "increase"
		}
		plan.Recommendations = append(plan.Recommendations, Adjustment{
			AssetClass:        w.AssetClass,
			Action:            action,
			TargetPercentage:  w.Percentage,
			CurrentPercentage: cur,
			AdjustmentAmount:  round2(math.Abs(diff) * amount / 100),
		})
	}
	return plan, nil
}
