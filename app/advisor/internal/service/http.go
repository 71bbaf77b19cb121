package service

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// Response 所有接口统一的响应包装
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func ok(msg string, data any) *Response {
	return &Response{Success: true, Message: msg, Data: data}
}

// result 降级结果仍然成功，只在消息里注明
func result(msg string, degraded bool, data any) *Response {
	if degraded {
		msg += " (rule-based fallback)"
	}
	return ok(msg, data)
}

const (
	OperationHistory = "/api/v1/history"
)

type bindMode int

const (
	bindBody bindMode = iota
	bindQuery
	bindNone
)

// handle 把服务方法包装成 kratos 路由处理函数，请求经过服务端中间件链
func handle[T any](op string, mode bindMode, fn func(context.Context, *T) (*Response, error)) khttp.HandlerFunc {
	return func(ctx khttp.Context) error {
		var in T
		switch mode {
		case bindBody:
			if err := ctx.Bind(&in); err != nil {
				return errors.BadRequest("INVALID_BODY", err.Error())
			}
		case bindQuery:
			if err := ctx.BindQuery(&in); err != nil {
				return errors.BadRequest("INVALID_QUERY", err.Error())
			}
		}
		khttp.SetOperation(ctx, op)
		h := ctx.Middleware(func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*T))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*Response)
		reply.Timestamp = now()
		return ctx.Result(nethttp.StatusOK, reply)
	}
}

// RegisterAdvisorHTTPServer 注册全部路由
func RegisterAdvisorHTTPServer(s *khttp.Server, svc *AdvisorService) {
	root := s.Route("/")
	root.GET("/", handle("/", bindNone, svc.Root))
	root.GET("/health", handle("/health", bindNone, svc.Health))

	r := s.Route("/api/v1")
	r.POST("/analyze-document", handle("/api/v1/analyze-document", bindBody, svc.AnalyzeDocument))
	r.POST("/analyze-document-url", handle("/api/v1/analyze-document-url", bindBody, svc.AnalyzeDocumentURL))
	r.POST("/store-document", handle("/api/v1/store-document", bindBody, svc.StoreDocument))
	r.POST("/delete-documents", handle("/api/v1/delete-documents", bindBody, svc.DeleteDocuments))
	r.GET("/document-stats", handle("/api/v1/document-stats", bindNone, svc.DocumentStats))

	r.POST("/generate-strategy", handle("/api/v1/generate-strategy", bindBody, svc.GenerateStrategy))
	r.POST("/quick-strategy", handle("/api/v1/quick-strategy", bindQuery, svc.QuickStrategy))
	r.GET("/strategy-templates", handle("/api/v1/strategy-templates", bindNone, svc.StrategyTemplates))
	r.POST("/optimize-portfolio", handle("/api/v1/optimize-portfolio", bindBody, svc.OptimizePortfolio))

	r.POST("/assess-risk", handle("/api/v1/assess-risk", bindBody, svc.AssessRisk))
	r.POST("/stress-test", handle("/api/v1/stress-test", bindBody, svc.StressTest))
	r.GET("/risk-metrics", handle("/api/v1/risk-metrics", bindNone, svc.RiskMetrics))
	r.POST("/risk-tolerance-quiz", handle("/api/v1/risk-tolerance-quiz", bindBody, svc.RiskToleranceQuiz))

	r.POST("/auth/register", handle("/api/v1/auth/register", bindBody, svc.Register))
	r.POST("/auth/login", handle("/api/v1/auth/login", bindBody, svc.Login))
	r.GET("/history", handle(OperationHistory, bindQuery, svc.History))
}

// ErrorEncoder 错误也使用统一包装，状态码取自 kratos 错误
func ErrorEncoder(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	se := errors.FromError(err)
	codec, _ := khttp.CodecForRequest(r, "Accept")
	body, merr := codec.Marshal(&Response{
		Success:   false,
		Message:   se.Message,
		Data:      map[string]any{"reason": se.Reason, "metadata": se.Metadata},
		Timestamp: now(),
	})
	if merr != nil {
		w.WriteHeader(nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/"+codec.Name())
	w.WriteHeader(int(se.Code))
	_, _ = w.Write(body)
}

var now = func() string {
	return time.Now().UTC().Format(time.RFC3339)
}
