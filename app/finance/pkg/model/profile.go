package model

import (
	"fmt"
	"sort"
	"strings"
)

// Profile 用户理财画像，构造后不可变
type Profile struct {
	Age                  int       `json:"age" yaml:"age"`
	AnnualIncome         float64   `json:"annual_income" yaml:"annual_income"`
	InvestmentExperience string    `json:"investment_experience" yaml:"investment_experience"`
	RiskTolerance        RiskLevel `json:"risk_tolerance" yaml:"risk_tolerance"`
	FinancialGoals       []string  `json:"financial_goals" yaml:"financial_goals"`
	TimeHorizon          int       `json:"time_horizon" yaml:"time_horizon"`
	CurrentAssets        float64   `json:"current_assets" yaml:"current_assets"`
	MonthlyExpenses      float64   `json:"monthly_expenses" yaml:"monthly_expenses"`
}

// ValidationError 画像校验错误，按字段聚合
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			parts = append(parts, fmt.Sprintf("%s: %s", k, msg))
		}
	}
	return "validation errors: " + strings.Join(parts, "; ")
}

// NewProfile 校验并构造画像，一次性返回全部不合法字段
func NewProfile(p Profile) (Profile, error) {
	errs := map[string][]string{}

	if p.Age < 18 || p.Age > 100 {
		errs["age"] = append(errs["age"], "Age must be between 18 and 100")
	}
	if p.AnnualIncome < 0 {
		errs["annual_income"] = append(errs["annual_income"], "Annual income must be a non-negative number")
	}
	level, ok := ParseRiskLevel(string(p.RiskTolerance))
	if !ok {
		errs["risk_tolerance"] = append(errs["risk_tolerance"],
			"Risk tolerance must be one of: "+strings.Join(RiskLevels, ", "))
	}
	if p.TimeHorizon < 1 {
		errs["time_horizon"] = append(errs["time_horizon"], "Time horizon must be at least 1 year")
	}
	goals := make([]string, 0, len(p.FinancialGoals))
	for _, g := range p.FinancialGoals {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		errs["financial_goals"] = append(errs["financial_goals"], "At least one financial goal must be specified")
	}
	if p.CurrentAssets < 0 {
		errs["current_assets"] = append(errs["current_assets"], "Current assets must be non-negative")
	}
	if p.MonthlyExpenses < 0 {
		errs["monthly_expenses"] = append(errs["monthly_expenses"], "Monthly expenses must be non-negative")
	}
	if len(errs) > 0 {
		return Profile{}, &ValidationError{Fields: errs}
	}

	out := p
	out.RiskTolerance = level
	out.FinancialGoals = goals
	if strings.TrimSpace(out.InvestmentExperience) == "" {
		out.InvestmentExperience = "moderate"
	}
	return out, nil
}

// Goals 返回目标列表的副本
func (p Profile) Goals() []string {
	return cloneStrings(p.FinancialGoals)
}
