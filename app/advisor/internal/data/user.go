package data

import (
	"context"
	stderrors "errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/repo"
	"github.com/iWorld-y/fin_advisor/app/finance/pkg/storage"
)

type userRepo struct {
	data *Data
	log  *log.Helper
}

func NewUserRepo(data *Data, logger log.Logger) repo.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *userRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if !r.data.Enabled() {
		return ErrNoDatabase
	}
	err := r.data.store.CreateUser(ctx, u.Username, u.PasswordHash)
	if stderrors.Is(err, storage.ErrDuplicateUser) {
		return errors.Conflict("USER_EXISTS", "username already exists")
	}
	return err
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if !r.data.Enabled() {
		return nil, ErrNoDatabase
	}
	u, err := r.data.store.GetUserByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NotFound("USER_NOT_FOUND", "user not found")
		}
		return nil, err
	}
	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}, nil
}
