package domain

import (
	"encoding/json"
	"time"
)

// AnonymousUser 未登录请求的记录归属
const AnonymousUser = "anonymous"

// User 用户领域对象
type User struct {
	ID           int
	Username     string
	PasswordHash string
}

// Analysis 一次分析的历史记录
type Analysis struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Kind        string          `json:"kind"`
	Source      string          `json:"source"`
	Payload     json.RawMessage `json:"payload"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AnalysisPage 分页结果
type AnalysisPage struct {
	Items    []*Analysis `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}
