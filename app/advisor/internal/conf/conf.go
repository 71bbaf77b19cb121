package conf

import "github.com/iWorld-y/fin_advisor/app/finance/pkg/config"

type Bootstrap struct {
	Server *Server        `json:"server"`
	Data   *Data          `json:"data"`
	Auth   *Auth          `json:"auth"`
	Engine *config.Config `json:"engine"`
}

type Auth struct {
	JwtKey string `json:"jwt_key"`
	// TokenTTL 令牌有效期，time.ParseDuration 格式，默认 24h
	TokenTTL string `json:"token_ttl"`
}

// Key 返回签名密钥，未配置时使用默认值
func (a *Auth) Key() string {
	if a == nil || a.JwtKey == "" {
		return "default-secret"
	}
	return a.JwtKey
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
}

type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}
