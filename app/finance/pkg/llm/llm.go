// Package llm 封装 OpenAI 兼容的对话模型：限流、熔断，以及仅针对 429 的有限重试。
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
)

var (
	// ErrUnavailable 熔断期间直接返回
	ErrUnavailable = errors.New("llm temporarily unavailable")
	// ErrEmptyCompletion 模型返回空文本
	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

// Completer 文本补全服务
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options 客户端行为参数
type Options struct {
	// MaxRetries 429 时的最大重试次数，0 表示只调用一次
	MaxRetries int
	BaseDelay  time.Duration
	// Timeout 单次调用超时，0 表示不额外设置
	Timeout time.Duration
	Limiter *rate.Limiter
	Guard   *Guard
}

// Client 基于 eino ChatModel 的 Completer 实现
type Client struct {
	chatModel model.BaseChatModel
	opts      Options
}

// New 用已有的 ChatModel 创建客户端
func New(cm model.BaseChatModel, opts Options) *Client {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 2 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{chatModel: cm, opts: opts}
}

// NewFromConfig 初始化 OpenAI 兼容模型与限流器
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, cc config.ConcurrencyConfig) (*Client, error) {
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	limit := rate.Limit(float64(cc.RPM) / 60.0)
	return New(chatModel, Options{
		MaxRetries: cfg.MaxRetries,
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		Limiter:    rate.NewLimiter(limit, cc.QPS),
		Guard:      NewGuard(cfg.FailureThreshold, time.Duration(cfg.CooldownSeconds)*time.Second),
	}), nil
}

// Complete 发送 system + user 两条消息并返回去除首尾空白的文本
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.opts.Guard.Allow() {
		return "", ErrUnavailable
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}

	var lastErr error
	for i := 0; i <= c.opts.MaxRetries; i++ {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return "", err
		}

		content, err := c.generate(ctx, messages)
		if err == nil {
			c.opts.Guard.RecordSuccess()
			return content, nil
		}
		lastErr = err
		if !isRateLimited(err) || i == c.opts.MaxRetries {
			break
		}
		if err := sleep(ctx, c.opts.BaseDelay*time.Duration(1<<i)); err != nil {
			return "", err
		}
	}
	c.opts.Guard.RecordFailure()
	return "", lastErr
}

func (c *Client) generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Content), nil
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
