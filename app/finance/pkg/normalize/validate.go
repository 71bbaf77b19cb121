package normalize

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// renormEpsilon 总和与 100 的差小于它时视为已经归一
const renormEpsilon = 1e-9

// Validator 对实体施加领域约束：钳制、重算比例、约束应急金。
// 所有操作都是投影，对已经合法的实体重复调用不会改变它
type Validator struct {
	opts Options
}

// NewValidator 创建校验器
func NewValidator(opts Options) *Validator {
	return &Validator{opts: opts.withDefaults()}
}

// Clamp 把 v 钳制到 [lo, hi]，NaN 取下界
func Clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// ClampUnit 把分数钳制到 [0, 1]
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Renormalize 返回缩放到总和为 100 的新切片。负数与 NaN 按 0 处理；
// 总和为 0 时原样返回并给出诊断。偏离超过容差时同样给出诊断
func (v *Validator) Renormalize(pcts []float64) ([]float64, []string) {
	out := make([]float64, len(pcts))
	for i, p := range pcts {
		out[i] = Clamp(p, 0, math.Inf(1))
	}
	if len(out) == 0 {
		return out, []string{"allocations: empty sequence"}
	}

	total := floats.Sum(out)
	if math.IsInf(total, 1) {
		// 先按最大值缩小，避免溢出
		m := floats.Max(out)
		if math.IsInf(m, 1) {
			for i := range out {
				if math.IsInf(out[i], 1) {
					out[i] = 1
				} else {
					out[i] = 0
				}
			}
		} else {
			floats.Scale(1/m, out)
		}
		total = floats.Sum(out)
	}

	var diags []string
	if total == 0 {
		return out, []string{"allocations: total is 0, left unchanged"}
	}
	if math.Abs(total-100) > v.opts.AllocationTolerance {
		diags = append(diags, fmt.Sprintf("allocations: total %.4g outside 100±%.4g, rescaled", total, v.opts.AllocationTolerance))
	}
	// 总和始终缩放到 100（误差 1e-6 以内）；容差内的配置也会被缩放，
	// 因此幂等性只对总和已为 100 的实体成立
	if math.Abs(total-100) > renormEpsilon {
		for i := range out {
			out[i] = out[i] / total * 100
		}
	}
	for i := range out {
		out[i] = Clamp(out[i], 0, 100)
	}
	return out, diags
}

// EmergencyFund 月支出已知时钳制到 [min×E, max×E]，缺失或负数按 0 处理即取下限；
// 月支出未知时保持原值，原值缺失（<=0）则取 默认倍数 × estimate
func (v *Validator) EmergencyFund(target, expenses, estimate float64) float64 {
	if math.IsNaN(target) || math.IsInf(target, 0) {
		target = 0
	}
	if expenses > 0 {
		return Clamp(target, v.opts.EmergencyMinMonths*expenses, v.opts.EmergencyMaxMonths*expenses)
	}
	if target <= 0 {
		if estimate <= 0 {
			estimate = v.opts.ExpenseEstimate
		}
		return v.opts.EmergencyDefaultMonths * estimate
	}
	return target
}

// Strategy 校验策略
func (v *Validator) Strategy(s model.Strategy, expenses, estimate float64) (model.Strategy, []string) {
	pcts := make([]float64, len(s.Allocations))
	for i, a := range s.Allocations {
		pcts[i] = a.Percentage
	}
	pcts, diags := v.Renormalize(pcts)

	allocs := make([]model.Allocation, len(s.Allocations))
	for i, a := range s.Allocations {
		a.Percentage = pcts[i]
		if strings.TrimSpace(a.AssetClass) == "" {
			a.AssetClass = "Other"
		}
		if level, ok := parseLevel(string(a.RiskLevel)); ok {
			a.RiskLevel = level
		} else {
			a.RiskLevel = model.RiskModerate
		}
		allocs[i] = a
	}

	out := s
	out.Allocations = allocs
	out.MonthlySavingsTarget = Clamp(s.MonthlySavingsTarget, 0, math.MaxFloat64)
	out.EmergencyFundTarget = v.EmergencyFund(s.EmergencyFundTarget, expenses, estimate)
	out.KeyActions = nonNil(s.KeyActions)
	out.RiskWarnings = nonNil(s.RiskWarnings)
	if out.EmergencyFundTarget != s.EmergencyFundTarget {
		diags = append(diags, fmt.Sprintf("emergency_fund_target: %.2f adjusted to %.2f", s.EmergencyFundTarget, out.EmergencyFundTarget))
	}
	return out, diags
}

// Risk 校验风险评估
func (v *Validator) Risk(r model.RiskAssessment) (model.RiskAssessment, []string) {
	var diags []string
	out := r
	out.OverallScore = v.unit("overall_risk_score", r.OverallScore, &diags)
	out.Confidence = v.unit("confidence_score", r.Confidence, &diags)
	if level, ok := parseLevel(string(r.Level)); ok {
		out.Level = level
	} else {
		out.Level = model.LevelForScore(out.OverallScore)
		diags = append(diags, fmt.Sprintf("risk_level: %q replaced by %q", r.Level, out.Level))
	}

	out.Factors = make([]model.RiskFactor, len(r.Factors))
	for i, f := range r.Factors {
		if sev, ok := model.ParseSeverity(string(f.Severity)); ok {
			f.Severity = sev
		} else {
			f.Severity = model.SeverityMedium
		}
		if strings.TrimSpace(f.Name) == "" {
			f.Name = "Unspecified risk"
		}
		f.ImpactScore = v.unit("impact_score", f.ImpactScore, &diags)
		f.Mitigations = nonNil(f.Mitigations)
		out.Factors[i] = f
	}
	out.Recommendations = nonNil(r.Recommendations)
	return out, diags
}

// Compliance 校验合规结果
func (v *Validator) Compliance(c model.ComplianceResult) (model.ComplianceResult, []string) {
	var diags []string
	out := c
	if status, ok := parseStatus(string(c.Status)); ok {
		out.Status = status
	} else {
		out.Status = model.StatusNeedsReview
		diags = append(diags, fmt.Sprintf("compliance_status: %q replaced by %q", c.Status, out.Status))
	}
	out.Confidence = v.unit("confidence_score", c.Confidence, &diags)
	out.FlaggedClauses = nonNil(c.FlaggedClauses)
	out.Recommendations = nonNil(c.Recommendations)
	out.RiskFactors = nonNil(c.RiskFactors)
	return out, diags
}

func (v *Validator) unit(field string, x float64, diags *[]string) float64 {
	c := ClampUnit(x)
	if c != x {
		*diags = append(*diags, fmt.Sprintf("%s: %v clamped to %v", field, x, c))
	}
	return c
}

// parseLevel 兼容 low / medium / high 的写法
func parseLevel(s string) (model.RiskLevel, bool) {
	if level, ok := model.ParseRiskLevel(s); ok {
		return level, true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return model.RiskConservative, true
	case "medium":
		return model.RiskModerate, true
	case "high":
		return model.RiskAggressive, true
	}
	return "", false
}

func parseStatus(s string) (model.ComplianceStatus, bool) {
	return model.ParseComplianceStatus(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
