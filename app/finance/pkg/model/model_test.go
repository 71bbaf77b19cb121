package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() Profile {
	return Profile{
		Age:             35,
		AnnualIncome:    75000,
		RiskTolerance:   "Moderate",
		FinancialGoals:  []string{" retirement ", ""},
		TimeHorizon:     20,
		MonthlyExpenses: 4000,
	}
}

func TestNewProfile_Valid(t *testing.T) {
	p, err := NewProfile(validProfile())
	require.NoError(t, err)
	assert.Equal(t, RiskModerate, p.RiskTolerance)
	assert.Equal(t, []string{"retirement"}, p.FinancialGoals)
	assert.Equal(t, "moderate", p.InvestmentExperience)
}

func TestNewProfile_CollectsEveryViolation(t *testing.T) {
	in := Profile{Age: 17, AnnualIncome: -1, RiskTolerance: "yolo", TimeHorizon: 0, MonthlyExpenses: -5}
	_, err := NewProfile(in)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"age", "annual_income", "risk_tolerance", "time_horizon", "financial_goals", "monthly_expenses"} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Contains(t, err.Error(), "age: Age must be between 18 and 100")
}

func TestNewProfile_DoesNotAliasInput(t *testing.T) {
	in := validProfile()
	in.FinancialGoals = []string{"house"}
	p, err := NewProfile(in)
	require.NoError(t, err)

	in.FinancialGoals[0] = "boat"
	assert.Equal(t, "house", p.FinancialGoals[0])
}

func TestNewStrategy_Atomic(t *testing.T) {
	_, err := NewStrategy("", []Allocation{{AssetClass: "Stocks", Percentage: 100}}, 0, 0, nil, nil, "")
	assert.ErrorIs(t, err, ErrIncompleteStrategy)

	_, err = NewStrategy("summary", nil, 0, 0, nil, nil, "")
	assert.ErrorIs(t, err, ErrIncompleteStrategy)

	s, err := NewStrategy("summary", []Allocation{{AssetClass: "Stocks", Percentage: 100}}, 1, 2, nil, nil, "yearly")
	require.NoError(t, err)
	assert.NotNil(t, s.KeyActions)
	assert.NotNil(t, s.RiskWarnings)
	assert.InDelta(t, 100, s.TotalAllocation(), 1e-9)
}

func TestNewRiskAssessment_RequiresLevel(t *testing.T) {
	_, err := NewRiskAssessment(0.5, "", nil, nil, 0.7)
	assert.ErrorIs(t, err, ErrIncompleteRisk)

	r, err := NewRiskAssessment(0.5, RiskModerate, nil, nil, 0.7)
	require.NoError(t, err)
	assert.NotNil(t, r.Factors)
	assert.NotNil(t, r.Recommendations)
}

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskConservative},
		{0.29, RiskConservative},
		{0.3, RiskModerate},
		{0.59, RiskModerate},
		{0.6, RiskAggressive},
		{1, RiskAggressive},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelForScore(tc.score), "score %v", tc.score)
	}
}

func TestParseComplianceStatus(t *testing.T) {
	s, ok := ParseComplianceStatus("Non-Compliant")
	assert.True(t, ok)
	assert.Equal(t, StatusNonCompliant, s)

	_, ok = ParseComplianceStatus("maybe")
	assert.False(t, ok)
}
