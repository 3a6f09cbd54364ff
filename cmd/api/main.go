package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/dues-ledger/internal/app"
	"github.com/nimasrn/dues-ledger/internal/config"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/prom"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	cfg, err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	logger.Info("starting api", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	db, err := app.OpenStore(cfg)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	defer db.Close()

	redisAdap, err := app.OpenRedis(cfg, "default")
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	notifier, err := app.NewNotifier(context.Background(), cfg, redisAdap)
	if err != nil {
		logger.Error("failed creating notification queue", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.PromListenAddr, "/metrics")

	s := xhttp.CreateServer()
	s.Server.ReadBufferSize = cfg.HttpServerReadBufferSize
	s.Server.WriteBufferSize = cfg.HttpServerWriteBufferSize
	s.Server.ReadTimeout = cfg.HttpServerReadTimeout
	s.Server.WriteTimeout = cfg.HttpServerWriteTimeout
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))
	s.Use(xhttp.CompressMiddleware(6))

	app.RegisterRoutes(s.Router, app.NewServices(cfg, db, redisAdap, notifier))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "path", path, "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
