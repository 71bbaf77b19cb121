// Package document 文档预处理：输入清洗、文本规整、金融术语标注、类型识别、切分与网页抓取。
package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxInputLength 单个输入保留的最大字符数
const MaxInputLength = 10000

var (
	unsafeChars  = regexp.MustCompile(`[<>"']`)
	whitespace   = regexp.MustCompile(`\s+`)
	disallowed   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,;:!?()\-]`)
	repeatedDots = regexp.MustCompile(`\.{3,}`)
)

// Sanitize 去掉尖括号与引号并截断到 MaxInputLength 个字符
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	if utf8.RuneCountInString(s) > MaxInputLength {
		s = string([]rune(s)[:MaxInputLength])
	}
	return strings.TrimSpace(s)
}

// CleanText 合并空白、去除特殊字符、压缩连续句点
func CleanText(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = disallowed.ReplaceAllString(s, "")
	s = repeatedDots.ReplaceAllString(s, "...")
	return strings.TrimSpace(s)
}

var financialTerms = []string{
	// investment
	"portfolio", "diversification", "asset allocation", "risk tolerance",
	"return on investment", "roi", "dividend", "yield", "capital gains",
	"mutual fund", "etf", "bond", "stock", "equity", "fixed income",
	// risk
	"market risk", "credit risk", "liquidity risk", "inflation risk",
	"volatility", "beta", "standard deviation", "sharpe ratio",
	// compliance
	"fiduciary", "suitability", "disclosure", "regulation", "compliance",
	"sec", "finra", "know your customer", "kyc", "anti-money laundering",
	"aml", "privacy policy", "data protection",
	// planning
	"retirement planning", "estate planning", "tax planning",
	"emergency fund", "insurance", "annuity", "ira", "401k",
	"pension", "social security",
}

// ExtractFinancialTerms 返回文本中出现的金融术语（子串匹配，排序去重）
func ExtractFinancialTerms(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	sort.Strings(found)
	return found
}

// 按优先级排列的类型特征词
var typeIndicators = []struct {
	docType    string
	indicators []string
}{
	{"policy", []string{"policy", "terms and conditions", "agreement", "contract"}},
	{"prospectus", []string{"prospectus", "fund information", "investment objectives"}},
	{"report", []string{"annual report", "quarterly report", "financial statement"}},
	{"disclosure", []string{"disclosure", "risk factors", "important information"}},
}

// IdentifyType 根据内容识别文档类型，无法识别时为 general
func IdentifyType(text string) string {
	lower := strings.ToLower(text)
	for _, t := range typeIndicators {
		for _, ind := range t.indicators {
			if strings.Contains(lower, ind) {
				return t.docType
			}
		}
	}
	return "general"
}

// DefaultSensitiveFields 默认脱敏字段
var DefaultSensitiveFields = []string{"ssn", "account_number", "routing_number", "credit_card"}

// MaskSensitive 返回脱敏后的副本：保留末 4 位，其余替换为 *
func MaskSensitive(data map[string]any, fields ...string) map[string]any {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	for _, f := range fields {
		v, ok := out[f]
		if !ok {
			continue
		}
		s := []rune(fmt.Sprint(v))
		if len(s) > 4 {
			out[f] = strings.Repeat("*", len(s)-4) + string(s[len(s)-4:])
		} else {
			out[f] = strings.Repeat("*", len(s))
		}
	}
	return out
}
