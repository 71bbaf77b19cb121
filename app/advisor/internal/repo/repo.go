package repo

import (
	"context"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
)

// UserRepo 用户仓库接口
type UserRepo interface {
	// CreateUser 创建用户
	CreateUser(ctx context.Context, u *domain.User) error
	// GetUserByUsername 根据用户名获取用户
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AnalysisRepo 分析历史仓库接口
type AnalysisRepo interface {
	// SaveAnalysis 保存一条分析记录
	SaveAnalysis(ctx context.Context, a *domain.Analysis) error
	// ListAnalyses 分页获取某个用户的分析记录
	ListAnalyses(ctx context.Context, username string, page, pageSize int) ([]*domain.Analysis, int, error)
}
