package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/dues-ledger/internal/app"
	"github.com/nimasrn/dues-ledger/internal/config"
	gateway "github.com/nimasrn/dues-ledger/internal/gateways"
	"github.com/nimasrn/dues-ledger/internal/processor"
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
	logger.Info("starting processor", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

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

	client, err := gateway.NewClient(&gateway.Config{
		Endpoints: []gateway.EndpointConfig{
			{Name: "primary", URL: cfg.WebhookPrimaryUrl, HealthURL: cfg.WebhookPrimaryHealthUrl, Weight: 100},
			{Name: "secondary", URL: cfg.WebhookSecondaryUrl, HealthURL: cfg.WebhookSecondaryHealthUrl, Weight: 80},
		},
		Timeout:                 cfg.WebhookTimeout,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                64,
		HealthCheckInterval:     30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   time.Minute,
	})
	if err != nil {
		logger.Error("failed to create webhook client", "error", err)
		return
	}
	defer client.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.PromListenAddr, "/metrics")

	// the sweeper only needs the reset service; notifications it raises go
	// back onto the same stream
	notifier, err := app.NewNotifier(context.Background(), cfg, redisAdap)
	if err != nil {
		logger.Error("failed creating notification queue", "error", err)
		return
	}
	svcs := app.NewServices(cfg, db, redisAdap, notifier)

	idempotency := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())
	service := processor.NewProcessorService(redisAdap, processor.Config{
		Queue:         app.QueueConfig(cfg),
		Consumers:     cfg.QueueConsumers,
		Workers:       cfg.QueueWorkers,
		SweepInterval: cfg.ResetSweepInterval,
	}, processor.NewNotificationProcessor(client, idempotency), svcs.Resets)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
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
