package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/usecase"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/config"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/engine"
	finLogger "github.com/iWorld-y/fin_advisor/app/finance/pkg/logger"
)

// NewAdvisorEngine 初始化分析引擎，未配置时全部使用默认值
func NewAdvisorEngine(c *config.Config, logger log.Logger) (usecase.Advisor, func(), error) {
	helper := log.NewHelper(logger)
	cfg := config.Config{}
	if c != nil {
		cfg = *c
	}
	cfg.Resolve()

	// 初始化日志
	if err := finLogger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		helper.Errorf("Failed to init engine logger: %v", err)
		_ = finLogger.InitLogger("info", "") // 降级处理
	}

	eng, err := engine.NewEngine(context.Background(), &cfg)
	if err != nil {
		helper.Errorf("Failed to init engine: %v", err)
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("Cleaning up advisor engine")
	}
	return eng, cleanup, nil
}
