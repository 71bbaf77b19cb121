package server

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
	"github.com/iWorld-y/fin_advisor/app/advisor/internal/service"
)

func NewHTTPServer(c *conf.Server, auth *conf.Auth, s *service.AdvisorService, logger log.Logger) *http.Server {
	key := []byte(auth.Key())
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			// 只有历史记录接口强制登录，其余接口按需识别调用者
			selector.Server(
				jwt.Server(func(*jwtv5.Token) (any, error) {
					return key, nil
				}, jwt.WithSigningMethod(jwtv5.SigningMethodHS256)),
			).Path(service.OperationHistory).Build(),
		),
		http.ErrorEncoder(service.ErrorEncoder),
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			}
		}
	}

	srv := http.NewServer(opts...)
	service.RegisterAdvisorHTTPServer(srv, s)
	log.NewHelper(logger).Infof("advisor http server registered")
	return srv
}
