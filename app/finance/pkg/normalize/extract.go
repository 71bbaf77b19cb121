package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
)

// 字段名，与提示词中要求模型输出的 JSON 键保持一致
const (
	keyStatus          = "compliance_status"
	keyConfidence      = "confidence_score"
	keyFlagged         = "flagged_clauses"
	keyRecommendations = "recommendations"
	keyRiskFactors     = "risk_factors"
	keyOverall         = "overall_risk_score"
	keyRiskLevel       = "risk_level"
	keySummary         = "strategy_summary"
	keyAllocations     = "investment_recommendations"
	keySavings         = "monthly_savings_target"
	keyEmergency       = "emergency_fund_target"
	keyActions         = "key_actions"
	keyWarnings        = "risk_warnings"
	keyReview          = "review_timeline"
)

// Method 抽取方式
type Method string

const (
	MethodJSON    Method = "json"
	MethodPattern Method = "pattern"
)

// Extraction 抽取结果。Fields 总是包含目标类型的全部键，缺失的以默认值填充
type Extraction struct {
	Kind   model.Kind
	Method Method
	Fields map[string]any
	found  map[string]bool
}

// Found 判断某个键是否真的从文本中取得，而不是默认值
func (e Extraction) Found(key string) bool {
	return e.found[key]
}

// FoundAny 任一键被取得即返回 true
func (e Extraction) FoundAny(keys ...string) bool {
	for _, k := range keys {
		if e.found[k] {
			return true
		}
	}
	return false
}

type fieldType int

const (
	fieldEnum fieldType = iota
	fieldNumber
	fieldText
	fieldList
	fieldAllocations
	fieldFactors
)

type fieldSpec struct {
	key      string
	typ      fieldType
	def      any
	members  []string // fieldEnum 可接受的词，含别名
	keywords []string // fieldList 模式抽取关键词
}

var (
	riskLevelWords = []string{"conservative", "moderate", "aggressive", "low", "medium", "high"}
	statusWords    = []string{"compliant", "non_compliant", "non-compliant", "needs_review", "needs review"}
)

var schemas = map[model.Kind][]fieldSpec{
	model.KindCompliance: {
		{key: keyStatus, typ: fieldEnum, def: string(model.StatusNeedsReview), members: statusWords},
		{key: keyConfidence, typ: fieldNumber, def: 0.5},
		{key: keyFlagged, typ: fieldList, keywords: []string{"clause"}},
		{key: keyRecommendations, typ: fieldList, keywords: []string{"recommend"}},
		{key: keyRiskFactors, typ: fieldList, keywords: []string{"risk"}},
	},
	model.KindRisk: {
		{key: keyOverall, typ: fieldNumber, def: 0.5},
		{key: keyRiskLevel, typ: fieldEnum, def: string(model.RiskModerate), members: riskLevelWords},
		{key: keyRiskFactors, typ: fieldFactors, keywords: []string{"risk"}},
		{key: keyRecommendations, typ: fieldList, keywords: []string{"recommend"}},
		{key: keyConfidence, typ: fieldNumber, def: 0.7},
	},
	model.KindStrategy: {
		{key: keySummary, typ: fieldText, def: ""},
		{key: keyAllocations, typ: fieldAllocations},
		{key: keySavings, typ: fieldNumber, def: 0.0},
		{key: keyEmergency, typ: fieldNumber, def: 0.0},
		{key: keyActions, typ: fieldList, keywords: []string{"action"}},
		{key: keyWarnings, typ: fieldList, keywords: []string{"risk", "warn"}},
		{key: keyReview, typ: fieldText, def: ""},
	},
}

// knownKeys 模式抽取列表时需要排除的键名本身
var knownKeys = func() map[string]bool {
	m := map[string]bool{
		"asset_class": true, "allocation_percentage": true, "rationale": true,
		"factor_name": true, "severity": true, "impact_score": true, "mitigation_strategies": true,
	}
	for _, specs := range schemas {
		for _, s := range specs {
			m[s.key] = true
		}
	}
	return m
}()

func defaultValue(s fieldSpec) any {
	switch s.typ {
	case fieldList:
		return []string{}
	case fieldAllocations, fieldFactors:
		return []any{}
	}
	return s.def
}

// Extractor 从 LLM 文本中抽取字段
type Extractor struct {
	listCap int
}

// NewExtractor 创建抽取器，listCap <= 0 时使用默认值
func NewExtractor(listCap int) *Extractor {
	if listCap <= 0 {
		listCap = DefaultOptions().ListCap
	}
	return &Extractor{listCap: listCap}
}

// Extract 先严格解析 JSON，失败再按模式逐字段抽取。任何输入都不会失败
func (x *Extractor) Extract(raw string, kind model.Kind) Extraction {
	specs, ok := schemas[kind]
	if !ok {
		return Extraction{Kind: kind, Method: MethodPattern, Fields: map[string]any{}, found: map[string]bool{}}
	}
	text := cleanCompletion(raw)

	if obj, ok := parseObject(text); ok {
		return fromJSON(kind, specs, obj)
	}
	return x.fromPattern(kind, specs, text)
}

// cleanCompletion 去掉 BOM 和 markdown 代码块
func cleanCompletion(raw string) string {
	s := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// parseObject 整体解析失败时，再尝试文本中第一个括号配平的对象
func parseObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj, true
	}
	candidate, ok := firstJSONObject(text)
	if !ok {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// firstJSONObject 扫描第一个配平的 {...}，跳过字符串内的括号
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func fromJSON(kind model.Kind, specs []fieldSpec, obj map[string]any) Extraction {
	ex := Extraction{Kind: kind, Method: MethodJSON, Fields: map[string]any{}, found: map[string]bool{}}
	for _, s := range specs {
		v, present := obj[s.key]
		var (
			val any
			ok  bool
		)
		if present && v != nil {
			switch s.typ {
			case fieldEnum, fieldText:
				var str string
				str, ok = asString(v)
				ok = ok && strings.TrimSpace(str) != ""
				val = strings.TrimSpace(str)
			case fieldNumber:
				val, ok = asFloat(v)
			case fieldList:
				val, ok = asStringList(v)
			case fieldAllocations, fieldFactors:
				// 元素可能是对象或字符串，由构造阶段按类型取用
				val, ok = v.([]any)
			}
		}
		if !ok {
			val = defaultValue(s)
		}
		ex.Fields[s.key] = val
		ex.found[s.key] = ok
	}
	return ex
}

const numberPattern = `(-?\d+(?:\.\d+)?)`

var (
	quotedStringRe = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	allocationRe   = regexp.MustCompile(`(?is)asset_class"?\s*[:=]\s*"([^"]+)".*?allocation_percentage"?\s*[:=]\s*"?` + numberPattern)
	factorNameRe   = regexp.MustCompile(`(?i)factor_name"?\s*[:=]\s*"([^"]+)"`)
	severityRe     = regexp.MustCompile(`(?i)severity"?\s*[:=]\s*"(\w+)"`)
	impactRe       = regexp.MustCompile(`(?i)impact_score"?\s*[:=]\s*"?` + numberPattern)
	rationaleRe    = textFieldRe("rationale")
	allocLevelRe   = regexp.MustCompile(`(?i)risk_level"?\s*[:=]\s*"(\w+)"`)
	mitigationsRe  = arrayFieldRe("mitigation_strategies")
)

func textFieldRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) + `"?\s*[:=]\s*"((?:[^"\\]|\\.)*)"`)
}

func arrayFieldRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + regexp.QuoteMeta(key) + `"?\s*[:=]\s*\[(.*?)(?:\]|$)`)
}

// fieldRegexps 每个字段的模式抽取正则，按 schemas 一次性编译
type fieldRegexps struct {
	quoted *regexp.Regexp // 字段名之后的第一个引号词
	word   *regexp.Regexp // 同一子句里的合法枚举词，仅枚举字段
	number *regexp.Regexp
	text   *regexp.Regexp
	array  *regexp.Regexp
}

var fieldPatterns = func() map[string]*fieldRegexps {
	m := map[string]*fieldRegexps{}
	for _, specs := range schemas {
		for _, s := range specs {
			if _, ok := m[s.key]; ok {
				continue
			}
			key := regexp.QuoteMeta(s.key)
			re := &fieldRegexps{
				quoted: regexp.MustCompile(`(?i)` + key + `.*?["'](\w+)["']`),
				number: regexp.MustCompile(`(?i)` + key + `.*?` + numberPattern),
				text:   textFieldRe(s.key),
				array:  arrayFieldRe(s.key),
			}
			if len(s.members) > 0 {
				alts := make([]string, len(s.members))
				for i, w := range s.members {
					alts[i] = regexp.QuoteMeta(w)
				}
				// 较长的词优先，避免 "non_compliant" 被 "compliant" 截断
				sortByLenDesc(alts)
				re.word = regexp.MustCompile(`(?i)` + key + `[^,;.\n]*?\b(` + strings.Join(alts, "|") + `)\b`)
			}
			m[s.key] = re
		}
	}
	return m
}()

func (x *Extractor) fromPattern(kind model.Kind, specs []fieldSpec, text string) Extraction {
	ex := Extraction{Kind: kind, Method: MethodPattern, Fields: map[string]any{}, found: map[string]bool{}}
	for _, s := range specs {
		var (
			val any
			ok  bool
		)
		re := fieldPatterns[s.key]
		switch s.typ {
		case fieldEnum:
			val, ok = matchEnum(text, re, s.members)
		case fieldNumber:
			val, ok = matchNumber(text, re)
		case fieldText:
			val, ok = matchText(text, re)
		case fieldList:
			list := x.matchList(text, re, s.keywords)
			val, ok = list, len(list) > 0
		case fieldAllocations:
			list := matchAllocations(text)
			val, ok = list, len(list) > 0
		case fieldFactors:
			list := x.matchFactors(text, s.keywords)
			val, ok = list, len(list) > 0
		}
		if !ok {
			val = defaultValue(s)
		}
		ex.Fields[s.key] = val
		ex.found[s.key] = ok
	}
	return ex
}

// matchEnum 字段名之后的第一个引号词；若它不是合法取值，再找字段名之后同一子句里的合法词
func matchEnum(text string, re *fieldRegexps, members []string) (string, bool) {
	if m := re.quoted.FindStringSubmatch(text); m != nil && isMember(m[1], members) {
		return strings.ToLower(m[1]), true
	}
	if re.word == nil {
		return "", false
	}
	if m := re.word.FindStringSubmatch(text); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

func isMember(s string, members []string) bool {
	for _, m := range members {
		if strings.EqualFold(s, m) {
			return true
		}
	}
	return false
}

func sortByLenDesc(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len(s[j]) > len(s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func matchNumber(text string, re *fieldRegexps) (float64, bool) {
	m := re.number.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func matchText(text string, re *fieldRegexps) (string, bool) {
	m := re.text.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	s := strings.TrimSpace(unescape(m[1]))
	return s, s != ""
}

func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// matchList 优先读取字段后的数组内容；没有数组时按关键词扫描全文的引号字符串
func (x *Extractor) matchList(text string, re *fieldRegexps, keywords []string) []string {
	out := []string{}
	if m := re.array.FindStringSubmatch(text); m != nil {
		for _, q := range quotedStringRe.FindAllStringSubmatch(m[1], -1) {
			s := strings.TrimSpace(unescape(q[1]))
			if s == "" || knownKeys[strings.ToLower(s)] {
				continue
			}
			out = append(out, s)
			if len(out) == x.listCap {
				break
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return x.scanKeywords(text, keywords)
}

// scanKeywords 按顺序成对读取引号字符串，保留包含关键词的项
func (x *Extractor) scanKeywords(text string, keywords []string) []string {
	out := []string{}
	if len(keywords) == 0 {
		return out
	}
	for _, m := range quotedStringRe.FindAllStringSubmatch(text, -1) {
		s := strings.TrimSpace(unescape(m[1]))
		lower := strings.ToLower(s)
		if s == "" || knownKeys[lower] || !containsAny(lower, keywords) {
			continue
		}
		out = append(out, s)
		if len(out) == x.listCap {
			break
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// matchAllocations 抽取 asset_class / allocation_percentage 成对出现的配置项
func matchAllocations(text string) []any {
	idx := allocationRe.FindAllStringSubmatchIndex(text, -1)
	out := make([]any, 0, len(idx))
	for i, loc := range idx {
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		segment := text[loc[0]:end]

		pct, err := strconv.ParseFloat(text[loc[4]:loc[5]], 64)
		if err != nil {
			continue
		}
		item := map[string]any{
			"asset_class":           strings.TrimSpace(text[loc[2]:loc[3]]),
			"allocation_percentage": pct,
		}
		if m := rationaleRe.FindStringSubmatch(segment); m != nil {
			item["rationale"] = unescape(m[1])
		}
		if m := allocLevelRe.FindStringSubmatch(segment); m != nil {
			item["risk_level"] = m[1]
		}
		out = append(out, item)
	}
	return out
}

// matchFactors 优先按 factor_name 抽取完整因子，否则退化为关键词字符串
func (x *Extractor) matchFactors(text string, keywords []string) []any {
	idx := factorNameRe.FindAllStringSubmatchIndex(text, -1)
	out := []any{}
	for i, loc := range idx {
		if len(out) == x.listCap {
			break
		}
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		segment := text[loc[0]:end]
		item := map[string]any{"factor_name": strings.TrimSpace(text[loc[2]:loc[3]])}
		if m := severityRe.FindStringSubmatch(segment); m != nil {
			item["severity"] = m[1]
		}
		if m := impactRe.FindStringSubmatch(segment); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil {
				item["impact_score"] = f
			}
		}
		if m := mitigationsRe.FindStringSubmatch(segment); m != nil {
			var mitigations []string
			for _, q := range quotedStringRe.FindAllStringSubmatch(m[1], -1) {
				if s := strings.TrimSpace(unescape(q[1])); s != "" {
					mitigations = append(mitigations, s)
				}
			}
			item["mitigation_strategies"] = mitigations
		}
		out = append(out, item)
	}
	if len(out) > 0 {
		return out
	}
	for _, name := range x.scanKeywords(text, keywords) {
		out = append(out, map[string]any{"factor_name": name})
	}
	return out
}
