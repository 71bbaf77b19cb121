package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/data"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/service"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/usecase"
)

// ProviderSet 是理财顾问服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,
	NewAdvisorEngine,

	// Data providers
	data.NewData,
	data.NewUserRepo,
	data.NewAnalysisRepo,

	// UseCase providers
	usecase.NewUserUseCase,
	usecase.NewAnalysisUseCase,
	usecase.NewPortfolioUseCase,

	// Service providers
	service.NewAdvisorService,
)
