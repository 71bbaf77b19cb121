package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// 以下辅助函数把 encoding/json 解出的任意值宽松地转成目标类型

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...), true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case string:
				if s := strings.TrimSpace(it); s != "" {
					out = append(out, s)
				}
			case map[string]any:
				// 部分模型会把列表项写成 {"text": "..."}，取第一个字符串值
				for _, k := range []string{"text", "description", "name", "action", "recommendation"} {
					if s, ok := it[k].(string); ok && strings.TrimSpace(s) != "" {
						out = append(out, strings.TrimSpace(s))
						break
					}
				}
			}
		}
		return out, true
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}, true
		}
		return []string{}, true
	}
	return nil, false
}

// firstString 取 m 中第一个存在的字符串键
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := asString(m[k]); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// firstFloat 取 m 中第一个可解析的数值键
func firstFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := asFloat(m[k]); ok {
			return f, true
		}
	}
	return 0, false
}
