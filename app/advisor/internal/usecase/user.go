package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/domain"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/repo"
)

const defaultTokenTTL = 24 * time.Hour

// UserUseCase 用户业务逻辑
type UserUseCase struct {
	repo   repo.UserRepo
	log    *log.Helper
	jwtKey string
	ttl    time.Duration
	now    func() time.Time
}

// NewUserUseCase 创建用户业务逻辑实例
func NewUserUseCase(repo repo.UserRepo, auth *conf.Auth, logger log.Logger) *UserUseCase {
	ttl := defaultTokenTTL
	if auth != nil && auth.TokenTTL != "" {
		if d, err := time.ParseDuration(auth.TokenTTL); err == nil && d > 0 {
			ttl = d
		}
	}
	return &UserUseCase{
		repo:   repo,
		log:    log.NewHelper(logger),
		jwtKey: auth.Key(),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register 用户注册
func (uc *UserUseCase) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.BadRequest("INVALID_CREDENTIALS", "username and password are required")
	}
	// 使用 bcrypt 对密码进行哈希处理
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return uc.repo.CreateUser(ctx, &domain.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
}

// Login 用户登录，成功返回 HS256 签名的 JWT
func (uc *UserUseCase) Login(ctx context.Context, username, password string) (string, error) {
	u, err := uc.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.IsNotFound(err) {
			return "", errors.Unauthorized("AUTH_FAILED", "invalid username or password")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", errors.Unauthorized("AUTH_FAILED", "invalid username or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": u.Username,
		"exp":      uc.now().Add(uc.ttl).Unix(),
	})
	return token.SignedString([]byte(uc.jwtKey))
}

// Identify 解析令牌得到用户名。空令牌视为匿名用户
func (uc *UserUseCase) Identify(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return domain.AnonymousUser, nil
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(uc.jwtKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(uc.now))
	if err != nil {
		return "", errors.Unauthorized("TOKEN_INVALID", err.Error())
	}
	return UsernameFromClaims(claims)
}

// UsernameFromClaims 从令牌声明中取出用户名
func UsernameFromClaims(claims jwt.Claims) (string, error) {
	mc, ok := claims.(jwt.MapClaims)
	if !ok {
		if p, isPtr := claims.(*jwt.MapClaims); isPtr && p != nil {
			mc, ok = *p, true
		}
	}
	if ok {
		if name, _ := mc["username"].(string); name != "" {
			return name, nil
		}
	}
	return "", errors.Unauthorized("TOKEN_INVALID", "token has no username")
}

// Key 签名密钥，供 jwt 中间件使用
func (uc *UserUseCase) Key() []byte {
	return []byte(uc.jwtKey)
}
