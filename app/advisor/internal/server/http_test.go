package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/data"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/service"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/usecase"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
)

const testKey = "test-secret"

func newTestServer() *khttp.Server {
	logger := log.DefaultLogger
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	auth := &conf.Auth{JwtKey: testKey}
	d := &data.Data{}

	users := usecase.NewUserUseCase(data.NewUserRepo(d, logger), auth, logger)
	analyses := usecase.NewAnalysisUseCase(engine.New(cfg, nil, nil, nil), data.NewAnalysisRepo(d, logger), logger)
	svc := service.NewAdvisorService(users, analyses, usecase.NewPortfolioUseCase(logger), logger)
	return NewHTTPServer(&conf.Server{Http: &conf.HTTP{}}, auth, svc, logger)
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func do(t *testing.T, srv *khttp.Server, method, target, body, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func sign(t *testing.T, key, username string) string {
	t.Helper()
	tok, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"username": username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func TestHTTP_Health(t *testing.T) {
	srv := newTestServer()

	code, env := do(t, srv, "GET", "/health", "", "")
	assert.Equal(t, 200, code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.Timestamp)
	assert.Contains(t, string(env.Data), "healthy")

	code, env = do(t, srv, "GET", "/", "", "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), "RAG-powered")
}

func TestHTTP_GenerateStrategy(t *testing.T) {
	srv := newTestServer()

	body := `{"user_profile":{"age":35,"annual_income":75000,"risk_tolerance":"moderate",` +
		`"financial_goals":["retirement"],"time_horizon":20,"monthly_expenses":4000}}`
	code, env := do(t, srv, "POST", "/api/v1/generate-strategy", body, "")
	require.Equal(t, 200, code)
	assert.True(t, env.Success)

	var res struct {
		Source   string `json:"source"`
		Strategy struct {
			Allocations []struct {
				Percentage float64 `json:"allocation_percentage"`
			} `json:"investment_recommendations"`
		} `json:"strategy"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "fallback", res.Source)
	var total float64
	for _, a := range res.Strategy.Allocations {
		total += a.Percentage
	}
	assert.InDelta(t, 100, total, 1e-6)
}

func TestHTTP_InvalidProfile(t *testing.T) {
	srv := newTestServer()

	code, env := do(t, srv, "POST", "/api/v1/generate-strategy",
		`{"user_profile":{"age":12,"risk_tolerance":"yolo","time_horizon":0}}`, "")
	assert.Equal(t, 400, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "age")
	assert.Contains(t, env.Message, "risk_tolerance")
	assert.Contains(t, string(env.Data), "INVALID_PROFILE")
}

func TestHTTP_QuickStrategyAndPortfolioTools(t *testing.T) {
	srv := newTestServer()

	code, _ := do(t, srv, "POST",
		"/api/v1/quick-strategy?age=30&annual_income=60000&risk_tolerance=aggressive&time_horizon=10&primary_goal=house", "", "")
	assert.Equal(t, 200, code)

	code, env := do(t, srv, "POST", "/api/v1/stress-test",
		`{"portfolio_value":100000,"portfolio_allocation":{"stocks":60,"bonds":40}}`, "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), "market_crash")

	code, _ = do(t, srv, "POST", "/api/v1/stress-test", `{"portfolio_value":-1,"portfolio_allocation":{"stocks":1}}`, "")
	assert.Equal(t, 400, code)

	code, _ = do(t, srv, "GET", "/api/v1/strategy-templates", "", "")
	assert.Equal(t, 200, code)
	code, _ = do(t, srv, "GET", "/api/v1/risk-metrics", "", "")
	assert.Equal(t, 200, code)

	code, env = do(t, srv, "POST", "/api/v1/risk-tolerance-quiz", `{"answers":{"age":25,"investment_experience":"expert"}}`, "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), "risk_tolerance")

	code, _ = do(t, srv, "POST", "/api/v1/optimize-portfolio",
		`{"current_allocation":{"stocks":90,"bonds":10},"target_risk_level":"moderate","investment_amount":10000}`, "")
	assert.Equal(t, 200, code)
}

func TestHTTP_DocumentEndpoints(t *testing.T) {
	srv := newTestServer()

	code, env := do(t, srv, "POST", "/api/v1/analyze-document",
		`{"document_text":"This investment policy describes the portfolio risk and return."}`, "")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(env.Data), `"document_type":"policy"`)

	code, _ = do(t, srv, "POST", "/api/v1/analyze-document", `{"document_text":"   "}`, "")
	assert.Equal(t, 400, code)

	code, _ = do(t, srv, "GET", "/api/v1/document-stats", "", "")
	assert.Equal(t, 200, code)
}

func TestHTTP_HistoryRequiresToken(t *testing.T) {
	srv := newTestServer()

	code, env := do(t, srv, "GET", "/api/v1/history", "", "")
	assert.Equal(t, 401, code)
	assert.False(t, env.Success)

	code, _ = do(t, srv, "GET", "/api/v1/history", "", sign(t, "wrong-key", "ann"))
	assert.Equal(t, 401, code)

	// 令牌有效但没有数据库
	code, _ = do(t, srv, "GET", "/api/v1/history?page=1&page_size=5", "", sign(t, testKey, "ann"))
	assert.Equal(t, 503, code)
}

func TestHTTP_InvalidTokenOnOptionalAuth(t *testing.T) {
	srv := newTestServer()

	code, _ := do(t, srv, "POST", "/api/v1/assess-risk", `{"financial_data":{"income":1}}`, "garbage")
	assert.Equal(t, 401, code)

	code, _ = do(t, srv, "POST", "/api/v1/assess-risk", `{"financial_data":{"income":1}}`, sign(t, testKey, "ann"))
	assert.Equal(t, 200, code)
}
