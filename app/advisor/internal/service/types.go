package service

import "github.com/iWorld-y/fin_advisor/app/finance/pkg/model"

type AnalyzeDocumentRequest struct {
	DocumentText string `json:"document_text"`
	// DocumentType 为空时按内容识别
	DocumentType string `json:"document_type"`
}

type AnalyzeURLRequest struct {
	URL          string `json:"url"`
	DocumentType string `json:"document_type"`
}

type StoreDocumentRequest struct {
	DocumentText string         `json:"document_text"`
	DocumentID   string         `json:"document_id"`
	DocumentType string         `json:"document_type"`
	Metadata     map[string]any `json:"metadata"`
}

type DeleteDocumentsRequest struct {
	IDs []string `json:"ids"`
}

type GenerateStrategyRequest struct {
	UserProfile model.Profile  `json:"user_profile"`
	Preferences map[string]any `json:"preferences"`
}

type QuickStrategyRequest struct {
	Age           int     `json:"age"`
	AnnualIncome  float64 `json:"annual_income"`
	RiskTolerance string  `json:"risk_tolerance"`
	TimeHorizon   int     `json:"time_horizon"`
	PrimaryGoal   string  `json:"primary_goal"`
}

type OptimizePortfolioRequest struct {
	CurrentAllocation map[string]float64 `json:"current_allocation"`
	TargetRiskLevel   string             `json:"target_risk_level"`
	InvestmentAmount  float64            `json:"investment_amount"`
}

type AssessRiskRequest struct {
	FinancialData map[string]any `json:"financial_data"`
	ScenarioType  string         `json:"scenario_type"`
}

type StressTestRequest struct {
	PortfolioValue      float64            `json:"portfolio_value"`
	PortfolioAllocation map[string]float64 `json:"portfolio_allocation"`
	StressScenario      string             `json:"stress_scenario"`
}

type QuizRequest struct {
	Answers map[string]any `json:"answers"`
}

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type HistoryRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type Empty struct{}

type LoginReply struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
