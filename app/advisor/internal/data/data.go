package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/storage"
)

// ErrNoDatabase 未配置数据库时历史与账号接口不可用
var ErrNoDatabase = errors.ServiceUnavailable("DB_UNAVAILABLE", "database not configured")

type Data struct {
	store *storage.Storage
}

func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	if c == nil || c.Database == nil || c.Database.Source == "" {
		helper.Warn("database not configured, history and accounts disabled")
		return &Data{}, func() {}, nil
	}
	if c.Database.Driver != "" && c.Database.Driver != "postgres" {
		return nil, nil, errors.InternalServer("DB_DRIVER", "unsupported driver "+c.Database.Driver)
	}

	store, err := storage.NewStorage(context.Background(), c.Database.Source)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		store.Close()
	}
	return &Data{store: store}, cleanup, nil
}

// Enabled 是否连接了数据库
func (d *Data) Enabled() bool {
	return d != nil && d.store != nil
}
