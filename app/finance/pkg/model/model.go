package model

import (
	"errors"
	"fmt"
	"strings"
)

// RiskLevel 风险偏好 / 风险等级
type RiskLevel string

const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
)

// RiskLevels 合法的风险等级，顺序即风险从低到高
var RiskLevels = []string{string(RiskConservative), string(RiskModerate), string(RiskAggressive)}

// ParseRiskLevel 解析风险等级，大小写不敏感
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskConservative:
		return RiskConservative, true
	case RiskModerate:
		return RiskModerate, true
	case RiskAggressive:
		return RiskAggressive, true
	}
	return "", false
}

// Severity 风险因子严重程度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities 合法的严重程度
var Severities = []string{string(SeverityLow), string(SeverityMedium), string(SeverityHigh)}

// ParseSeverity 解析严重程度
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	}
	return "", false
}

// ComplianceStatus 合规审查结论
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "compliant"
	StatusNonCompliant ComplianceStatus = "non_compliant"
	StatusNeedsReview  ComplianceStatus = "needs_review"
)

// ComplianceStatuses 合法的合规结论
var ComplianceStatuses = []string{string(StatusCompliant), string(StatusNonCompliant), string(StatusNeedsReview)}

// ParseComplianceStatus 解析合规结论，兼容 "non-compliant" 写法
func ParseComplianceStatus(s string) (ComplianceStatus, bool) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch ComplianceStatus(norm) {
	case StatusCompliant:
		return StatusCompliant, true
	case StatusNonCompliant:
		return StatusNonCompliant, true
	case StatusNeedsReview:
		return StatusNeedsReview, true
	}
	return "", false
}

// Kind 归一化目标类型
type Kind string

const (
	KindStrategy   Kind = "strategy"
	KindRisk       Kind = "risk_assessment"
	KindCompliance Kind = "compliance"
)

// Allocation 单个资产类别的配置建议
type Allocation struct {
	AssetClass string    `json:"asset_class"`
	Percentage float64   `json:"allocation_percentage"`
	Rationale  string    `json:"rationale"`
	RiskLevel  RiskLevel `json:"risk_level"`
}

// Strategy 理财策略
type Strategy struct {
	Summary              string       `json:"strategy_summary"`
	Allocations          []Allocation `json:"investment_recommendations"`
	MonthlySavingsTarget float64      `json:"monthly_savings_target"`
	EmergencyFundTarget  float64      `json:"emergency_fund_target"`
	KeyActions           []string     `json:"key_actions"`
	RiskWarnings         []string     `json:"risk_warnings"`
	ReviewTimeline       string       `json:"review_timeline"`
}

// ErrIncompleteStrategy 缺少必填字段时返回
var ErrIncompleteStrategy = errors.New("strategy requires a summary and at least one allocation")

// NewStrategy 原子地构造 Strategy；切片会被复制，nil 列表变为空列表
func NewStrategy(summary string, allocations []Allocation, monthlySavings, emergencyFund float64,
	keyActions, riskWarnings []string, reviewTimeline string) (Strategy, error) {
	if strings.TrimSpace(summary) == "" || len(allocations) == 0 {
		return Strategy{}, ErrIncompleteStrategy
	}
	return Strategy{
		Summary:              summary,
		Allocations:          append([]Allocation{}, allocations...),
		MonthlySavingsTarget: monthlySavings,
		EmergencyFundTarget:  emergencyFund,
		KeyActions:           cloneStrings(keyActions),
		RiskWarnings:         cloneStrings(riskWarnings),
		ReviewTimeline:       reviewTimeline,
	}, nil
}

// TotalAllocation 所有配置比例之和
func (s Strategy) TotalAllocation() float64 {
	var total float64
	for _, a := range s.Allocations {
		total += a.Percentage
	}
	return total
}

// RiskFactor 单个风险因子
type RiskFactor struct {
	Name        string   `json:"factor_name"`
	Severity    Severity `json:"severity"`
	ImpactScore float64  `json:"impact_score"`
	Mitigations []string `json:"mitigation_strategies"`
}

// RiskAssessment 风险评估结果
type RiskAssessment struct {
	OverallScore    float64      `json:"overall_risk_score"`
	Level           RiskLevel    `json:"risk_level"`
	Factors         []RiskFactor `json:"risk_factors"`
	Recommendations []string     `json:"recommendations"`
	Confidence      float64      `json:"confidence_score"`
}

// ErrIncompleteRisk 风险等级缺失时返回
var ErrIncompleteRisk = errors.New("risk assessment requires a valid risk level")

// NewRiskAssessment 原子地构造 RiskAssessment
func NewRiskAssessment(overall float64, level RiskLevel, factors []RiskFactor, recommendations []string, confidence float64) (RiskAssessment, error) {
	if _, ok := ParseRiskLevel(string(level)); !ok {
		return RiskAssessment{}, ErrIncompleteRisk
	}
	fs := make([]RiskFactor, len(factors))
	for i, f := range factors {
		f.Mitigations = cloneStrings(f.Mitigations)
		fs[i] = f
	}
	return RiskAssessment{
		OverallScore:    overall,
		Level:           level,
		Factors:         fs,
		Recommendations: cloneStrings(recommendations),
		Confidence:      confidence,
	}, nil
}

// LevelForScore 按分数段推导风险等级：[0,0.3) 保守，[0.3,0.6) 稳健，其余激进
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskConservative
	case score < 0.6:
		return RiskModerate
	default:
		return RiskAggressive
	}
}

// ComplianceResult 文档合规分析结果
type ComplianceResult struct {
	Status          ComplianceStatus `json:"compliance_status"`
	Confidence      float64          `json:"confidence_score"`
	FlaggedClauses  []string         `json:"flagged_clauses"`
	Recommendations []string         `json:"recommendations"`
	RiskFactors     []string         `json:"risk_factors"`
}

// NewComplianceResult 构造 ComplianceResult，三个列表永不为 nil
func NewComplianceResult(status ComplianceStatus, confidence float64, flagged, recommendations, risks []string) (ComplianceResult, error) {
	if _, ok := ParseComplianceStatus(string(status)); !ok {
		return ComplianceResult{}, fmt.Errorf("invalid compliance status %q", status)
	}
	return ComplianceResult{
		Status:          status,
		Confidence:      confidence,
		FlaggedClauses:  cloneStrings(flagged),
		Recommendations: cloneStrings(recommendations),
		RiskFactors:     cloneStrings(risks),
	}, nil
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
