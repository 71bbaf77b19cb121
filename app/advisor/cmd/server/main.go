package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/fin_advisor/app/advisor/internal/conf"
)

// Version 构建时注入：-ldflags "-X main.Version=x.y.z"
var Version string

const serviceName = "fin_advisor"

var (
	confPath = flag.String("conf", "app/advisor/configs/config.yaml", "bootstrap yaml (server/data/auth/engine)")
	hostID, _ = os.Hostname()
)

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(hostID),
		kratos.Name(serviceName),
		kratos.Version(Version),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}

func loadBootstrap(path string) (*conf.Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return &bc, nil
}

func run(logger log.Logger) error {
	bc, err := loadBootstrap(*confPath)
	if err != nil {
		return err
	}
	app, cleanup, err := initApp(bc.Server, bc.Data, bc.Auth, bc.Engine, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	return app.Run()
}

func main() {
	flag.Parse()
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", hostID,
		"service.name", serviceName,
		"service.version", Version,
	)
	if err := run(logger); err != nil {
		log.NewHelper(logger).Errorf("advisor server stopped: %v", err)
		os.Exit(1)
	}
}
