package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/nimasrn/dues-ledger/internal/app"
	"github.com/nimasrn/dues-ledger/internal/config"
	"github.com/nimasrn/dues-ledger/internal/model"
	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

const usage = "usage: cli <migrate|generate|sweep> [--env=.env] [--dir=./migrations] [--period=YYYY-MM]"

// cli migrate  --dir=./migrations
// cli generate --period=2025-01
// cli sweep
func main() {
	defer logger.Sync()

	if len(os.Args) < 2 {
		logger.Error(usage)
		os.Exit(2)
	}

	cfg, err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		err = migrate(cfg)
	case "generate":
		err = generate(cfg)
	case "sweep":
		err = sweep(cfg)
	default:
		logger.Error("unknown command", "command", os.Args[1], "usage", usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func migrate(cfg *config.Config) error {
	dir := getFlag("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	return pg.Migrate(cfg.PostgresWrite(), dir)
}

// generate bills every active member for --period, defaulting to the
// current month.
func generate(cfg *config.Config) error {
	period := getFlag("period")
	if period == "" {
		period = model.PeriodOf(time.Now().UTC())
	}

	svcs, closeFn, err := services(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svcs.Invoices.GenerateInvoices(context.Background(), period)
	if err != nil {
		return err
	}
	logger.Info("invoices generated", "period", res.Period, "generated", res.Generated, "skipped", res.Skipped, "errors", res.Errors)
	for _, f := range res.Failures {
		logger.Warn("invoice generation failed", "member_id", f.MemberID, "error", f.Error)
	}
	return nil
}

func sweep(cfg *config.Config) error {
	svcs, closeFn, err := services(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := svcs.Resets.PurgeExpired(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}
	logger.Info("expired resets purged", "count", n)
	return nil
}

func services(cfg *config.Config) (*app.Services, func(), error) {
	db, err := app.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := app.OpenRedis(cfg, "cli")
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	notifier, err := app.NewNotifier(context.Background(), cfg, adapter)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return app.NewServices(cfg, db, adapter, notifier), func() { _ = db.Close() }, nil
}

func getFlag(name string) string {
	prefix := "--" + name + "="
	for _, v := range os.Args[2:] {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

func getEnvPath() string {
	if path := getFlag("env"); path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Error("failed to open the passed env file", "path", path, "error", err)
			return ""
		}
		return path
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}
