package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// JSONSystemPrompt 所有结构化任务共用的系统提示
const JSONSystemPrompt = "You are a JSON generator. Respond with a single JSON object and nothing else."

// MarketContext 策略生成使用的静态市场背景
const MarketContext = `Current Market Context (simulated):
- S&P 500: Trading near historical highs with moderate volatility
- Interest Rates: Federal Reserve maintaining rates around 5.25%
- Inflation: Currently at 3.2%, down from recent highs
- Bond Market: Yields attractive for income-focused investors
- International Markets: Mixed performance with emerging markets showing strength
- Economic Outlook: Moderate growth expected with recession risks diminishing`

const strategyTpl = `You are a certified financial advisor with 20+ years of experience. Create a personalized financial strategy.

User Profile:
%s

Current Market Context:
%s

Based on this information, create a comprehensive financial strategy that includes:
1. Strategy Summary: High-level overview of the recommended approach
2. Investment Recommendations: Specific asset allocations with percentages and rationale
3. Monthly Savings Target: Realistic monthly savings goal
4. Emergency Fund Target: Recommended emergency fund amount
5. Key Actions: Specific steps the user should take
6. Risk Warnings: Important risks to consider
7. Review Timeline: When to reassess this strategy

Consider the user's age and time horizon, risk tolerance and investment experience, income and expenses, financial goals and current financial situation.

Asset classes to consider: Stocks, Bonds, REITs, Commodities, International Funds, Cash/Money Market

Respond in JSON format:
{
  "strategy_summary": "Brief strategy overview...",
  "investment_recommendations": [
    {"asset_class": "Stocks", "allocation_percentage": 60.0, "rationale": "Explanation for this allocation...", "risk_level": "moderate"}
  ],
  "monthly_savings_target": 1000.0,
  "emergency_fund_target": 15000.0,
  "key_actions": ["Action 1...", "Action 2..."],
  "risk_warnings": ["Warning 1...", "Warning 2..."],
  "review_timeline": "Review quarterly or when life circumstances change"
}`

const riskTpl = `You are a risk assessment specialist. Analyze the financial data and identify potential risks.

Financial Data:
%s

Scenario Type: %s

Provide a comprehensive risk assessment including:
1. Overall risk score (0.0 to 1.0)
2. Risk level categorization (conservative, moderate or aggressive)
3. Specific risk factors with severity (low, medium or high) and impact (0.0 to 1.0)
4. Mitigation strategies for each risk
5. Confidence in the assessment (0.0 to 1.0)

Consider market risk, credit risk, liquidity risk, inflation risk, longevity risk and concentration risk.

Respond in JSON format:
{
  "overall_risk_score": 0.65,
  "risk_level": "moderate",
  "risk_factors": [
    {"factor_name": "High Debt-to-Income Ratio", "severity": "high", "impact_score": 0.8, "mitigation_strategies": ["Strategy 1...", "Strategy 2..."]}
  ],
  "recommendations": ["Rec 1...", "Rec 2..."],
  "confidence_score": 0.85
}`

const complianceTpl = `You are a financial compliance expert. Analyze the following document for compliance issues.

Context from similar documents:
%s

Document to analyze:
%s

Please analyze this document and provide:
1. Overall compliance status (compliant/non_compliant/needs_review)
2. Confidence score (0.0 to 1.0)
3. List of flagged clauses (if any)
4. Recommendations for improvement
5. Risk factors identified

Focus on regulatory compliance issues, risk disclosure adequacy, fair lending practices, consumer protection violations and data privacy concerns.

Respond in JSON format:
{
  "compliance_status": "compliant|non_compliant|needs_review",
  "confidence_score": 0.95,
  "flagged_clauses": ["clause 1", "clause 2"],
  "recommendations": ["rec 1", "rec 2"],
  "risk_factors": ["risk 1", "risk 2"]
}`

var printer = message.NewPrinter(language.English)

// FormatProfile 把画像渲染成提示词中的文本块
func FormatProfile(p model.Profile, preferences map[string]any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Age: %d\n", p.Age)
	sb.WriteString(printer.Sprintf("Annual Income: $%.2f\n", p.AnnualIncome))
	fmt.Fprintf(&sb, "Investment Experience: %s\n", p.InvestmentExperience)
	fmt.Fprintf(&sb, "Risk Tolerance: %s\n", p.RiskTolerance)
	fmt.Fprintf(&sb, "Time Horizon: %d years\n", p.TimeHorizon)
	sb.WriteString(printer.Sprintf("Current Assets: $%.2f\n", p.CurrentAssets))
	sb.WriteString(printer.Sprintf("Monthly Expenses: $%.2f\n", p.MonthlyExpenses))
	fmt.Fprintf(&sb, "Financial Goals: %s", strings.Join(p.FinancialGoals, ", "))
	if len(preferences) > 0 {
		if b, err := json.MarshalIndent(preferences, "", "  "); err == nil {
			fmt.Fprintf(&sb, "\nPreferences: %s", b)
		}
	}
	return sb.String()
}

// StrategyPrompt 策略生成提示词
func StrategyPrompt(p model.Profile, preferences map[string]any) string {
	return fmt.Sprintf(strategyTpl, FormatProfile(p, preferences), MarketContext)
}

// RiskPrompt 风险评估提示词
func RiskPrompt(financialData map[string]any, scenario string) string {
	data, err := json.MarshalIndent(financialData, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", financialData))
	}
	if scenario == "" {
		scenario = "general"
	}
	return fmt.Sprintf(riskTpl, data, scenario)
}

// CompliancePrompt 合规分析提示词，context 为检索到的相似文档片段
func CompliancePrompt(document string, context []string) string {
	ctx := "No similar documents available."
	if len(context) > 0 {
		ctx = strings.Join(context, "\n\n")
	}
	return fmt.Sprintf(complianceTpl, ctx, document)
}
