package normalize

import (
	"fmt"
	"strings"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// Source 结果来源
type Source string

const (
	SourceExtracted Source = "extracted"
	SourceFallback  Source = "fallback"
)

// Inputs 规则合成所需的已知输入
type Inputs struct {
	// Profile 为空时使用中性画像
	Profile *model.Profile
	// ExpenseEstimate 月支出未知时的估计值，<=0 使用配置值
	ExpenseEstimate float64
}

// Result 归一化结果，按 Kind 只填充一个实体
type Result struct {
	Kind        model.Kind              `json:"kind"`
	Source      Source                  `json:"source"`
	Method      Method                  `json:"method,omitempty"`
	Strategy    *model.Strategy         `json:"strategy,omitempty"`
	Risk        *model.RiskAssessment   `json:"risk_assessment,omitempty"`
	Compliance  *model.ComplianceResult `json:"compliance,omitempty"`
	Diagnostics []string                `json:"diagnostics,omitempty"`
}

// Degraded 结果是否来自规则合成
func (r Result) Degraded() bool {
	return r.Source == SourceFallback
}

// Entity 返回被填充的实体
func (r Result) Entity() any {
	switch {
	case r.Strategy != nil:
		return *r.Strategy
	case r.Risk != nil:
		return *r.Risk
	case r.Compliance != nil:
		return *r.Compliance
	}
	return nil
}

// neutralProfile 调用方没有画像时使用
var neutralProfile = model.Profile{
	Age:                  40,
	InvestmentExperience: "moderate",
	RiskTolerance:        model.RiskModerate,
	FinancialGoals:       []string{"General financial planning"},
	TimeHorizon:          10,
}

// Pipeline 抽取 → 校验，或者 抽取失败 → 规则合成 → 校验
type Pipeline struct {
	opts      Options
	extractor *Extractor
	validator *Validator
	fallback  *Fallback
}

// New 创建流水线，无共享可变状态，可并发使用
func New(opts Options) *Pipeline {
	opts = opts.withDefaults()
	return &Pipeline{
		opts:      opts,
		extractor: NewExtractor(opts.ListCap),
		validator: NewValidator(opts),
		fallback:  NewFallback(opts),
	}
}

// Validator 返回流水线使用的校验器
func (p *Pipeline) Validator() *Validator { return p.validator }

// Fallback 返回流水线使用的规则合成器
func (p *Pipeline) Fallback() *Fallback { return p.fallback }

// Normalize 把 LLM 原始文本归一化为 kind 对应的完整实体，总是返回可用结果
func (p *Pipeline) Normalize(raw string, kind model.Kind, in Inputs) (res Result) {
	prof := neutralProfile
	if in.Profile != nil {
		prof = *in.Profile
	}
	estimate := in.ExpenseEstimate
	if estimate <= 0 {
		estimate = p.opts.ExpenseEstimate
	}

	defer func() {
		if r := recover(); r != nil {
			res = p.synthesize(kind, prof, estimate)
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("normalize panic: %v", r))
		}
	}()

	if _, ok := schemas[kind]; !ok {
		res = p.synthesize(model.KindCompliance, prof, estimate)
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("unknown kind %q", kind))
		return res
	}
	if strings.TrimSpace(raw) == "" {
		res = p.synthesize(kind, prof, estimate)
		res.Diagnostics = append([]string{"no usable text"}, res.Diagnostics...)
		return res
	}

	ex := p.extractor.Extract(raw, kind)
	res = Result{Kind: kind, Source: SourceExtracted, Method: ex.Method}
	var (
		diags  []string
		usable bool
	)
	switch kind {
	case model.KindStrategy:
		var s model.Strategy
		if s, usable = p.buildStrategy(ex, prof); usable {
			s, diags = p.validator.Strategy(s, prof.MonthlyExpenses, estimate)
			res.Strategy = &s
		}
	case model.KindRisk:
		var r model.RiskAssessment
		if r, usable = p.buildRisk(ex); usable {
			r, diags = p.validator.Risk(r)
			res.Risk = &r
		}
	case model.KindCompliance:
		var c model.ComplianceResult
		if c, usable = p.buildCompliance(ex); usable {
			c, diags = p.validator.Compliance(c)
			res.Compliance = &c
		}
	}
	if !usable {
		fb := p.synthesize(kind, prof, estimate)
		fb.Method = ex.Method
		fb.Diagnostics = append([]string{fmt.Sprintf("no usable fields extracted (%s)", ex.Method)}, fb.Diagnostics...)
		return fb
	}
	res.Diagnostics = diags
	return res
}

// NormalizeStrategy 归一化策略
func (p *Pipeline) NormalizeStrategy(raw string, profile model.Profile) (model.Strategy, Result) {
	res := p.Normalize(raw, model.KindStrategy, Inputs{Profile: &profile})
	return *res.Strategy, res
}

// NormalizeRisk 归一化风险评估
func (p *Pipeline) NormalizeRisk(raw string) (model.RiskAssessment, Result) {
	res := p.Normalize(raw, model.KindRisk, Inputs{})
	return *res.Risk, res
}

// NormalizeCompliance 归一化合规结果
func (p *Pipeline) NormalizeCompliance(raw string) (model.ComplianceResult, Result) {
	res := p.Normalize(raw, model.KindCompliance, Inputs{})
	return *res.Compliance, res
}

func (p *Pipeline) synthesize(kind model.Kind, prof model.Profile, estimate float64) Result {
	res := Result{Kind: kind, Source: SourceFallback}
	switch kind {
	case model.KindStrategy:
		s, diags := p.validator.Strategy(p.fallback.Strategy(prof, estimate), prof.MonthlyExpenses, estimate)
		res.Strategy, res.Diagnostics = &s, diags
	case model.KindRisk:
		r, diags := p.validator.Risk(p.fallback.Risk())
		res.Risk, res.Diagnostics = &r, diags
	default:
		res.Kind = model.KindCompliance
		c, diags := p.validator.Compliance(p.fallback.Compliance())
		res.Compliance, res.Diagnostics = &c, diags
	}
	return res
}

func (p *Pipeline) buildStrategy(ex Extraction, prof model.Profile) (model.Strategy, bool) {
	items, _ := ex.Fields[keyAllocations].([]any)
	allocs := make([]model.Allocation, 0, len(items))
	var total float64
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		pct, ok := firstFloat(m, "allocation_percentage", "percentage", "allocation", "weight")
		if !ok {
			continue
		}
		level, ok := parseLevel(firstString(m, "risk_level"))
		if !ok {
			level = prof.RiskTolerance
		}
		allocs = append(allocs, model.Allocation{
			AssetClass: firstString(m, "asset_class", "asset", "name", "category"),
			Percentage: pct,
			Rationale:  firstString(m, "rationale", "reason"),
			RiskLevel:  level,
		})
		if pct > 0 {
			total += pct
		}
	}
	if len(allocs) == 0 || total <= 0 {
		return model.Strategy{}, false
	}

	summary, _ := ex.Fields[keySummary].(string)
	if strings.TrimSpace(summary) == "" {
		summary = defaultSummary(prof.RiskTolerance, prof.Age)
	}
	savings, _ := ex.Fields[keySavings].(float64)
	if !ex.Found(keySavings) {
		savings = p.opts.SavingsRate * prof.AnnualIncome / 12
	}
	emergency, _ := ex.Fields[keyEmergency].(float64)
	actions, _ := ex.Fields[keyActions].([]string)
	warnings, _ := ex.Fields[keyWarnings].([]string)
	review, _ := ex.Fields[keyReview].(string)
	if strings.TrimSpace(review) == "" {
		review = defaultReviewTimeline
	}

	s, err := model.NewStrategy(summary, allocs, savings, emergency, actions, warnings, review)
	if err != nil {
		return model.Strategy{}, false
	}
	return s, true
}

func (p *Pipeline) buildRisk(ex Extraction) (model.RiskAssessment, bool) {
	if !ex.FoundAny(keyOverall, keyRiskLevel, keyConfidence, keyRiskFactors) {
		return model.RiskAssessment{}, false
	}
	overall, _ := ex.Fields[keyOverall].(float64)
	confidence, _ := ex.Fields[keyConfidence].(float64)

	level, ok := parseLevel(stringField(ex, keyRiskLevel))
	if !ok || !ex.Found(keyRiskLevel) {
		if ex.Found(keyOverall) {
			level = model.LevelForScore(ClampUnit(overall))
		} else {
			level = model.RiskModerate
		}
	}

	items, _ := ex.Fields[keyRiskFactors].([]any)
	factors := make([]model.RiskFactor, 0, len(items))
	for _, it := range items {
		var f model.RiskFactor
		switch t := it.(type) {
		case string:
			f = model.RiskFactor{Name: t, ImpactScore: 0.5}
		case map[string]any:
			f.Name = firstString(t, "factor_name", "name", "factor")
			f.Severity = model.Severity(firstString(t, "severity"))
			if impact, ok := firstFloat(t, "impact_score", "impact"); ok {
				f.ImpactScore = impact
			} else {
				f.ImpactScore = 0.5
			}
			f.Mitigations, _ = asStringList(t["mitigation_strategies"])
		default:
			continue
		}
		if _, ok := model.ParseSeverity(string(f.Severity)); !ok {
			f.Severity = model.SeverityMedium
		}
		factors = append(factors, f)
	}
	recs, _ := ex.Fields[keyRecommendations].([]string)

	r, err := model.NewRiskAssessment(overall, level, factors, recs, confidence)
	if err != nil {
		return model.RiskAssessment{}, false
	}
	return r, true
}

func (p *Pipeline) buildCompliance(ex Extraction) (model.ComplianceResult, bool) {
	if !ex.FoundAny(keyStatus, keyConfidence) {
		return model.ComplianceResult{}, false
	}
	status, ok := parseStatus(stringField(ex, keyStatus))
	if !ok {
		status = model.StatusNeedsReview
	}
	confidence, _ := ex.Fields[keyConfidence].(float64)
	flagged, _ := ex.Fields[keyFlagged].([]string)
	recs, _ := ex.Fields[keyRecommendations].([]string)
	risks, _ := ex.Fields[keyRiskFactors].([]string)

	c, err := model.NewComplianceResult(status, confidence, flagged, recs, risks)
	if err != nil {
		return model.ComplianceResult{}, false
	}
	return c, true
}

func stringField(ex Extraction, key string) string {
	s, _ := ex.Fields[key].(string)
	return s
}
