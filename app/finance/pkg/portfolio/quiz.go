package portfolio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

var ErrEmptyAnswers = errors.New("quiz answers cannot be empty")

// QuizResult 风险偏好问卷结果
type QuizResult struct {
	RiskTolerance   model.RiskLevel `json:"risk_tolerance"`
	RiskScore       float64         `json:"risk_score"`
	Description     string          `json:"description"`
	Recommendations []string        `json:"recommendations"`
}

// ScoreQuiz 五道题各记 1~3 分，取平均分定档。缺失的题目按默认答案计分
func ScoreQuiz(answers map[string]any) (*QuizResult, error) {
	if len(answers) == 0 {
		return nil, ErrEmptyAnswers
	}

	scores := []int{
		tier3(number(answers["age"], 40) < 30, number(answers["age"], 40) < 50),
		pick(text(answers["investment_experience"], "beginner"), []string{"expert", "advanced"}, []string{"intermediate", "moderate"}),
		tier3(number(answers["time_horizon"], 5) > 15, number(answers["time_horizon"], 5) > 7),
		pick(text(answers["financial_stability"], "stable"), []string{"very_stable"}, []string{"stable"}),
		pick(text(answers["market_drop_reaction"], "concerned"), []string{"opportunity", "buy_more"}, []string{"hold", "wait"}),
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := float64(sum) / float64(len(scores))

	res := &QuizResult{RiskScore: round2(avg)}
	switch {
	case avg >= 2.5:
		res.RiskTolerance = model.RiskAggressive
		res.Description = "High risk tolerance - Comfortable with significant market volatility for potential higher returns"
	case avg >= 2.0:
		res.RiskTolerance = model.RiskModerate
		res.Description = "Moderate risk tolerance - Balanced approach between growth and stability"
	default:
		res.RiskTolerance = model.RiskConservative
		res.Description = "Conservative risk tolerance - Prefer stability and capital preservation over high returns"
	}
	res.Recommendations = []string{
		fmt.Sprintf("Based on your %s risk profile, consider investment strategies that align with your comfort level", res.RiskTolerance),
		"Regularly review your risk tolerance as life circumstances change",
		"Ensure your investment allocation matches your risk profile",
	}
	return res, nil
}

func tier3(high, mid bool) int {
	switch {
	case high:
		return 3
	case mid:
		return 2
	default:
		return 1
	}
}

func pick(v string, high, mid []string) int {
	for _, h := range high {
		if v == h {
			return 3
		}
	}
	for _, m := range mid {
		if v == m {
			return 2
		}
	}
	return 1
}

func number(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

func text(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return strings.ToLower(s)
	}
	return def
}
