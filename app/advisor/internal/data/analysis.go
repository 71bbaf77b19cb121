package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/repo"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/model"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/normalize"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/storage"
)

type analysisRepo struct {
	data *Data
	log  *log.Helper
}

func NewAnalysisRepo(data *Data, logger log.Logger) repo.AnalysisRepo {
	return &analysisRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SaveAnalysis 未配置数据库时静默跳过
func (r *analysisRepo) SaveAnalysis(ctx context.Context, a *domain.Analysis) error {
	if !r.data.Enabled() {
		r.log.Debugf("skip saving analysis %s: no database", a.ID)
		return nil
	}
	return r.data.store.SaveAnalyses(ctx, &storage.Analysis{
		ID:          a.ID,
		Username:    a.Username,
		Kind:        model.Kind(a.Kind),
		Source:      normalize.Source(a.Source),
		Payload:     a.Payload,
		Diagnostics: a.Diagnostics,
	})
}

func (r *analysisRepo) ListAnalyses(ctx context.Context, username string, page, pageSize int) ([]*domain.Analysis, int, error) {
	if !r.data.Enabled() {
		return nil, 0, ErrNoDatabase
	}
	rows, total, err := r.data.store.ListAnalyses(ctx, username, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Analysis, 0, len(rows))
	for _, a := range rows {
		out = append(out, &domain.Analysis{
			ID:          a.ID,
			Username:    a.Username,
			Kind:        string(a.Kind),
			Source:      string(a.Source),
			Payload:     a.Payload,
			Diagnostics: a.Diagnostics,
			CreatedAt:   a.CreatedAt,
		})
	}
	return out, total, nil
}
