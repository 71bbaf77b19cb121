package normalize

import (
	"math"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

func testProfile(t *testing.T) model.Profile {
	t.Helper()
	p, err := model.NewProfile(model.Profile{
		Age:             35,
		AnnualIncome:    75000,
		RiskTolerance:   model.RiskModerate,
		FinancialGoals:  []string{"retirement"},
		TimeHorizon:     25,
		MonthlyExpenses: 4000,
	})
	require.NoError(t, err)
	return p
}

func assertWellFormed(t *testing.T, res Result) {
	t.Helper()
	switch res.Kind {
	case model.KindStrategy:
		require.NotNil(t, res.Strategy)
		s := res.Strategy
		assert.NotEmpty(t, s.Summary)
		require.NotEmpty(t, s.Allocations)
		assert.InDelta(t, 100, s.TotalAllocation(), 1e-6)
		for _, a := range s.Allocations {
			assert.GreaterOrEqual(t, a.Percentage, 0.0)
			assert.LessOrEqual(t, a.Percentage, 100.0)
			_, ok := model.ParseRiskLevel(string(a.RiskLevel))
			assert.True(t, ok)
		}
		assert.GreaterOrEqual(t, s.MonthlySavingsTarget, 0.0)
		assert.GreaterOrEqual(t, s.EmergencyFundTarget, 0.0)
		assert.NotNil(t, s.KeyActions)
		assert.NotNil(t, s.RiskWarnings)
		assert.NotEmpty(t, s.ReviewTimeline)
	case model.KindRisk:
		require.NotNil(t, res.Risk)
		r := res.Risk
		assert.True(t, r.OverallScore >= 0 && r.OverallScore <= 1)
		assert.True(t, r.Confidence >= 0 && r.Confidence <= 1)
		_, ok := model.ParseRiskLevel(string(r.Level))
		assert.True(t, ok)
		assert.NotNil(t, r.Factors)
		assert.NotNil(t, r.Recommendations)
		for _, f := range r.Factors {
			_, ok := model.ParseSeverity(string(f.Severity))
			assert.True(t, ok)
			assert.True(t, f.ImpactScore >= 0 && f.ImpactScore <= 1)
			assert.NotNil(t, f.Mitigations)
		}
	case model.KindCompliance:
		require.NotNil(t, res.Compliance)
		c := res.Compliance
		_, ok := model.ParseComplianceStatus(string(c.Status))
		assert.True(t, ok)
		assert.True(t, c.Confidence >= 0 && c.Confidence <= 1)
		assert.NotNil(t, c.FlaggedClauses)
		assert.NotNil(t, c.Recommendations)
		assert.NotNil(t, c.RiskFactors)
	default:
		t.Fatalf("unexpected kind %q", res.Kind)
	}
}

var kinds = []model.Kind{model.KindStrategy, model.KindRisk, model.KindCompliance}

func TestClampUnitBoundaries(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.01, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.01, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClampUnit(tc.in), "input %v", tc.in)
	}
}

func TestScoresClampedThroughPipeline(t *testing.T) {
	p := New(DefaultOptions())
	r, res := p.NormalizeRisk(`{"overall_risk_score": 1.01, "risk_level": "high", "confidence_score": -0.01}`)

	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, 1.0, r.OverallScore)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, model.RiskAggressive, r.Level)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestRenormalizePreservesRatios(t *testing.T) {
	v := NewValidator(DefaultOptions())
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(10)
		in := make([]float64, n)
		for j := range in {
			in[j] = 0.01 + rng.Float64()*500
		}
		out, _ := v.Renormalize(in)

		var sum float64
		for _, x := range out {
			sum += x
		}
		require.InDelta(t, 100, sum, 1e-6)
		for j := range in {
			assert.InEpsilon(t, in[j]/in[0], out[j]/out[0], 1e-9)
		}
	}
}

func TestRenormalizeZeroTotal(t *testing.T) {
	v := NewValidator(DefaultOptions())
	out, diags := v.Renormalize([]float64{0, 0, -3})
	assert.Equal(t, []float64{0, 0, 0}, out)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "total is 0")
}

func TestRenormalizeWithinToleranceHasNoDiagnostic(t *testing.T) {
	v := NewValidator(DefaultOptions())
	out, diags := v.Renormalize([]float64{60, 40.5})
	assert.Empty(t, diags)
	assert.InDelta(t, 100, out[0]+out[1], 1e-9)

	_, diags = v.Renormalize([]float64{60, 30})
	assert.Len(t, diags, 1)
}

func TestRenormalizeDoesNotMutateInput(t *testing.T) {
	v := NewValidator(DefaultOptions())
	in := []float64{50, 50, 50}
	_, _ = v.Renormalize(in)
	assert.Equal(t, []float64{50, 50, 50}, in)
}

func TestEmergencyFundBounds(t *testing.T) {
	v := NewValidator(DefaultOptions())
	cases := []struct {
		name                       string
		target, expenses, estimate float64
		want                       float64
	}{
		{"below lower bound", 1000, 4000, 0, 12000},
		{"above upper bound", 60000, 4000, 0, 48000},
		{"within bounds", 30000, 4000, 0, 30000},
		{"missing target with known expenses", 0, 4000, 0, 12000},
		{"negative target with known expenses", -500, 4000, 0, 12000},
		{"unknown expenses keeps target", 100, 0, 0, 100},
		{"unknown expenses and target uses estimate", 0, 0, 2500, 15000},
		{"unknown expenses falls back to configured estimate", 0, 0, 0, 18000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.EmergencyFund(tc.target, tc.expenses, tc.estimate))
		})
	}
}

func TestValidatorIdempotent(t *testing.T) {
	v := NewValidator(DefaultOptions())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(6)
		allocs := make([]model.Allocation, n)
		for j := range allocs {
			allocs[j] = model.Allocation{
				AssetClass: "asset",
				Percentage: rng.Float64()*200 - 20,
				RiskLevel:  model.RiskLevel([]string{"low", "moderate", "bogus"}[rng.Intn(3)]),
			}
		}
		s := model.Strategy{
			Summary:              "s",
			Allocations:          allocs,
			MonthlySavingsTarget: rng.Float64()*2000 - 500,
			EmergencyFundTarget:  rng.Float64() * 80000,
		}
		expenses := float64(rng.Intn(3)) * 2000

		once, _ := v.Strategy(s, expenses, 0)
		twice, _ := v.Strategy(once, expenses, 0)
		assert.Equal(t, once, twice)

		r := model.RiskAssessment{
			OverallScore: rng.Float64()*1.4 - 0.2,
			Level:        "extreme",
			Factors:      []model.RiskFactor{{Name: "x", Severity: "huge", ImpactScore: 3}},
			Confidence:   rng.Float64()*1.4 - 0.2,
		}
		r1, _ := v.Risk(r)
		r2, _ := v.Risk(r1)
		assert.Equal(t, r1, r2)

		c := model.ComplianceResult{Status: "maybe", Confidence: rng.Float64()*3 - 1}
		c1, _ := v.Compliance(c)
		c2, _ := v.Compliance(c1)
		assert.Equal(t, c1, c2)
	}
}

func TestValidatorLeavesFallbackUnchanged(t *testing.T) {
	prof := testProfile(t)
	v := NewValidator(DefaultOptions())
	f := NewFallback(DefaultOptions())

	s := f.Strategy(prof, 0)
	got, diags := v.Strategy(s, prof.MonthlyExpenses, 0)
	assert.Equal(t, s, got)
	assert.Empty(t, diags)

	r := f.Risk()
	gotR, _ := v.Risk(r)
	assert.Equal(t, r, gotR)

	c := f.Compliance()
	gotC, _ := v.Compliance(c)
	assert.Equal(t, c, gotC)
}

func TestFallbackStrategyDeterministic(t *testing.T) {
	prof := testProfile(t)
	f := NewFallback(DefaultOptions())

	a := f.Strategy(prof, 0)
	b := f.Strategy(prof, 0)
	assert.True(t, reflect.DeepEqual(a, b))

	require.Len(t, a.Allocations, 2)
	assert.Equal(t, "Stocks", a.Allocations[0].AssetClass)
	assert.Equal(t, 62.5, a.Allocations[0].Percentage)
	assert.Equal(t, 37.5, a.Allocations[1].Percentage)
	assert.Equal(t, model.RiskConservative, a.Allocations[1].RiskLevel)
	assert.InDelta(t, 937.5, a.MonthlySavingsTarget, 1e-9)
	assert.Equal(t, 24000.0, a.EmergencyFundTarget)
	assert.Len(t, a.KeyActions, 3)
	assert.Len(t, a.RiskWarnings, 2)
}

func TestStrategyMissingEmergencyFundUsesLowerBound(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)

	s, res := p.NormalizeStrategy(`{"strategy_summary": "Balanced",
  "investment_recommendations": [{"asset_class": "Stocks", "allocation_percentage": 100}]}`, prof)
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, 12000.0, s.EmergencyFundTarget)

	s, _ = p.NormalizeStrategy(`{"strategy_summary": "Balanced", "emergency_fund_target": -500,
  "investment_recommendations": [{"asset_class": "Stocks", "allocation_percentage": 100}]}`, prof)
	assert.Equal(t, 12000.0, s.EmergencyFundTarget)
}

func TestStockBondSplit(t *testing.T) {
	cases := []struct {
		age         int
		tier        model.RiskLevel
		stock, bond float64
	}{
		{35, model.RiskModerate, 62.5, 37.5},
		{30, model.RiskConservative, 70.0 / 120 * 100, 50.0 / 120 * 100},
		{25, model.RiskAggressive, 90, 10},
		{100, model.RiskAggressive, 20, 80},
	}
	for _, tc := range cases {
		stock, bond := StockBondSplit(tc.age, tc.tier)
		assert.InDelta(t, tc.stock, stock, 1e-9, "age %d %s", tc.age, tc.tier)
		assert.InDelta(t, tc.bond, bond, 1e-9, "age %d %s", tc.age, tc.tier)
		assert.InDelta(t, 100, stock+bond, 1e-9)
	}
}

func TestFallbackTotalOverProfileDomain(t *testing.T) {
	p := New(DefaultOptions())
	for age := 18; age <= 100; age++ {
		for _, tier := range []model.RiskLevel{model.RiskConservative, model.RiskModerate, model.RiskAggressive} {
			prof := model.Profile{Age: age, RiskTolerance: tier, FinancialGoals: []string{"g"}, TimeHorizon: 1}
			res := p.Normalize("", model.KindStrategy, Inputs{Profile: &prof})
			assert.Equal(t, SourceFallback, res.Source)
			assertWellFormed(t, res)
		}
	}
}

func TestMalformedRiskScenario(t *testing.T) {
	p := New(DefaultOptions())
	raw := "Sure! Here's my analysis: risk_level is moderate, confidence_score around 0.8..."

	r, res := p.NormalizeRisk(raw)
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, MethodPattern, res.Method)
	assert.Equal(t, model.RiskModerate, r.Level)
	assert.Equal(t, 0.8, r.Confidence)
	assert.Equal(t, 0.5, r.OverallScore)
	assert.NotNil(t, r.Factors)
	assertWellFormed(t, res)
}

func TestStrategyFromFencedJSON(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)
	body := `{"strategy_summary": "Growth tilt",
  "investment_recommendations": [
    {"asset_class": "Stocks", "allocation_percentage": 60, "rationale": "growth", "risk_level": "high"},
    {"asset_class": "Bonds", "allocation_percentage": "30%", "rationale": "stability", "risk_level": "weird"}
  ],
  "monthly_savings_target": -5,
  "emergency_fund_target": 1000,
  "key_actions": ["Automate contributions"],
  "risk_warnings": null,
  "review_timeline": ""}`

	s, res := p.NormalizeStrategy("```json\n"+body+"\n```", prof)
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, MethodJSON, res.Method)
	assert.Equal(t, "Growth tilt", s.Summary)
	require.Len(t, s.Allocations, 2)
	assert.InDelta(t, 200.0/3, s.Allocations[0].Percentage, 1e-9)
	assert.InDelta(t, 100.0/3, s.Allocations[1].Percentage, 1e-9)
	assert.Equal(t, model.RiskAggressive, s.Allocations[0].RiskLevel)
	assert.Equal(t, model.RiskModerate, s.Allocations[1].RiskLevel)
	assert.Equal(t, 0.0, s.MonthlySavingsTarget)
	assert.Equal(t, 12000.0, s.EmergencyFundTarget)
	assert.Equal(t, []string{"Automate contributions"}, s.KeyActions)
	assert.Equal(t, []string{}, s.RiskWarnings)
	assert.Equal(t, defaultReviewTimeline, s.ReviewTimeline)
	assert.NotEmpty(t, res.Diagnostics)
}

func TestStrategyFromPatterns(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)
	raw := `I'd suggest: asset_class: "Stocks", allocation_percentage: 70, rationale: "long horizon";
asset_class: "Bonds", allocation_percentage: 30 with risk_level: "low".
strategy_summary: "Stay the course" and key_actions: ["Max out the 401k", "Build cash buffer"`

	s, res := p.NormalizeStrategy(raw, prof)
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, MethodPattern, res.Method)
	assert.Equal(t, "Stay the course", s.Summary)
	require.Len(t, s.Allocations, 2)
	assert.Equal(t, "Stocks", s.Allocations[0].AssetClass)
	assert.Equal(t, 70.0, s.Allocations[0].Percentage)
	assert.Equal(t, "long horizon", s.Allocations[0].Rationale)
	assert.Equal(t, model.RiskConservative, s.Allocations[1].RiskLevel)
	assert.Equal(t, []string{"Max out the 401k", "Build cash buffer"}, s.KeyActions)
	assert.InDelta(t, 937.5, s.MonthlySavingsTarget, 1e-9)
}

func TestStrategyWithZeroAllocationsFallsBack(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)
	raw := `{"strategy_summary": "x", "investment_recommendations": [{"asset_class": "Cash", "allocation_percentage": 0}]}`

	s, res := p.NormalizeStrategy(raw, prof)
	assert.True(t, res.Degraded())
	assert.Equal(t, MethodJSON, res.Method)
	assert.Equal(t, 62.5, s.Allocations[0].Percentage)
}

func TestComplianceFromPatterns(t *testing.T) {
	p := New(DefaultOptions())
	raw := `compliance_status: "non_compliant", confidence_score: 0.92. Issues: "Clause 7 allows unilateral fee changes", "We recommend adding a fee cap", "Liquidity risk from lock-up period"`

	c, res := p.NormalizeCompliance(raw)
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, model.StatusNonCompliant, c.Status)
	assert.Equal(t, 0.92, c.Confidence)
	assert.Equal(t, []string{"Clause 7 allows unilateral fee changes"}, c.FlaggedClauses)
	assert.Equal(t, []string{"We recommend adding a fee cap"}, c.Recommendations)
	assert.Equal(t, []string{"Liquidity risk from lock-up period"}, c.RiskFactors)
}

func TestComplianceEnumWordScan(t *testing.T) {
	p := New(DefaultOptions())
	c, res := p.NormalizeCompliance("The compliance_status is non-compliant overall.")
	assert.Equal(t, SourceExtracted, res.Source)
	assert.Equal(t, model.StatusNonCompliant, c.Status)
	assert.Equal(t, 0.5, c.Confidence)
}

func TestListCap(t *testing.T) {
	p := New(DefaultOptions())
	raw := `compliance_status: "compliant" "clause 1" "clause 2" "clause 3" "clause 4" "clause 5" "clause 6"`
	c, _ := p.NormalizeCompliance(raw)
	assert.Equal(t, []string{"clause 1", "clause 2", "clause 3", "clause 4", "clause 5"}, c.FlaggedClauses)
}

func TestEmbeddedJSONObject(t *testing.T) {
	p := New(DefaultOptions())
	raw := `Here is the result: {"compliance_status": "compliant", "confidence_score": 0.9, "flagged_clauses": ["see {note}"], "recommendations": [], "risk_factors": []} hope it helps`

	c, res := p.NormalizeCompliance(raw)
	assert.Equal(t, MethodJSON, res.Method)
	assert.Equal(t, model.StatusCompliant, c.Status)
	assert.Equal(t, []string{"see {note}"}, c.FlaggedClauses)
}

func TestRiskFactorsFromJSONStrings(t *testing.T) {
	p := New(DefaultOptions())
	r, _ := p.NormalizeRisk(`{"overall_risk_score": 0.2, "risk_factors": ["Concentration", {"factor_name": "Rates", "severity": "HIGH", "impact_score": 0.9, "mitigation_strategies": ["Ladder bonds"]}]}`)

	assert.Equal(t, model.RiskConservative, r.Level)
	assert.Equal(t, 0.7, r.Confidence)
	require.Len(t, r.Factors, 2)
	assert.Equal(t, model.RiskFactor{Name: "Concentration", Severity: model.SeverityMedium, ImpactScore: 0.5, Mitigations: []string{}}, r.Factors[0])
	assert.Equal(t, model.SeverityHigh, r.Factors[1].Severity)
	assert.Equal(t, []string{"Ladder bonds"}, r.Factors[1].Mitigations)
}

func TestTotalityOnHostileInput(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)
	inputs := []string{
		"",
		"   \n\t",
		"null",
		"[]",
		"42",
		"not json at all",
		`{"compliance_status": "compl`,
		`{"investment_recommendations": [{"asset_class": "Stocks", "allocation_percentage": 1e400}]}`,
		`{"overall_risk_score": "NaN", "risk_level": 7}`,
		"```json\n```",
		"\ufeff{}",
	}
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 300; i++ {
		b := make([]byte, rng.Intn(256))
		rng.Read(b)
		inputs = append(inputs, string(b))
	}

	for _, raw := range inputs {
		for _, kind := range kinds {
			res := p.Normalize(raw, kind, Inputs{Profile: &prof})
			assert.Equal(t, kind, res.Kind)
			assertWellFormed(t, res)
		}
	}
}

func TestFallbackForEachKind(t *testing.T) {
	p := New(DefaultOptions())

	r, res := p.NormalizeRisk("")
	assert.True(t, res.Degraded())
	assert.Equal(t, 0.5, r.OverallScore)
	assert.Equal(t, model.RiskModerate, r.Level)
	assert.Equal(t, 0.7, r.Confidence)
	require.Len(t, r.Factors, 1)
	assert.Equal(t, "Market Volatility", r.Factors[0].Name)
	assert.Equal(t, 0.6, r.Factors[0].ImpactScore)

	c, res := p.NormalizeCompliance("garbage")
	assert.True(t, res.Degraded())
	assert.Equal(t, model.StatusNeedsReview, c.Status)
	assert.Equal(t, 0.0, c.Confidence)
	assert.Equal(t, []string{"Manual review required due to analysis error"}, c.Recommendations)

	s, res := p.NormalizeStrategy("", model.Profile{Age: 40, RiskTolerance: model.RiskAggressive, FinancialGoals: []string{"g"}, TimeHorizon: 5})
	assert.True(t, res.Degraded())
	assert.Equal(t, 18000.0, s.EmergencyFundTarget)
	assert.InDelta(t, 80, s.Allocations[0].Percentage, 1e-9)
}

func TestUnknownKindFallsBackToCompliance(t *testing.T) {
	res := New(DefaultOptions()).Normalize(`{"x": 1}`, model.Kind("poem"), Inputs{})
	assert.Equal(t, model.KindCompliance, res.Kind)
	assert.True(t, res.Degraded())
	assertWellFormed(t, res)
}

func TestNilProfileUsesNeutralDefaults(t *testing.T) {
	res := New(DefaultOptions()).Normalize("", model.KindStrategy, Inputs{ExpenseEstimate: 2000})
	require.NotNil(t, res.Strategy)
	assert.Equal(t, 12000.0, res.Strategy.EmergencyFundTarget)
	assertWellFormed(t, res)
}

func TestConcurrentUse(t *testing.T) {
	p := New(DefaultOptions())
	prof := testProfile(t)
	want := p.Normalize("", model.KindStrategy, Inputs{Profile: &prof})

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Normalize("", model.KindStrategy, Inputs{Profile: &prof})
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestCleanCompletion(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanCompletion("\ufeff```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanCompletion("```\n{\"a\":1}\n```  "))
	assert.Equal(t, "plain", cleanCompletion("  plain "))
}

func TestFirstJSONObject(t *testing.T) {
	got, ok := firstJSONObject(`x {"a": "}{", "b": {"c": "\"}"}} tail`)
	require.True(t, ok)
	assert.Equal(t, `{"a": "}{", "b": {"c": "\"}"}}`, got)

	_, ok = firstJSONObject(`{"a": 1`)
	assert.False(t, ok)
}

func TestFieldPatternsCompiledForEverySchemaField(t *testing.T) {
	for kind, specs := range schemas {
		for _, s := range specs {
			re, ok := fieldPatterns[s.key]
			require.True(t, ok, "%s/%s", kind, s.key)
			assert.NotNil(t, re.number)
			assert.NotNil(t, re.text)
			assert.NotNil(t, re.array)
			if s.typ == fieldEnum {
				assert.NotNil(t, re.word, "%s/%s", kind, s.key)
			}
		}
	}

	v, ok := matchEnum(`compliance_status is non_compliant, sadly`, fieldPatterns[keyStatus], statusWords)
	require.True(t, ok)
	assert.Equal(t, "non_compliant", v)

	n, ok := matchNumber(`"confidence_score": 0.85`, fieldPatterns[keyConfidence])
	require.True(t, ok)
	assert.Equal(t, 0.85, n)
}
