// Package app wires the store, repositories, services and HTTP routes shared
// by the binaries.
package app

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/internal/config"
	"github.com/nimasrn/dues-ledger/internal/handlers"
	"github.com/nimasrn/dues-ledger/internal/queue"
	"github.com/nimasrn/dues-ledger/internal/repository"
	"github.com/nimasrn/dues-ledger/internal/services"
	xhttp "github.com/nimasrn/dues-ledger/pkg/http"
	"github.com/nimasrn/dues-ledger/pkg/pg"
	"github.com/nimasrn/dues-ledger/pkg/redis"
)

type Services struct {
	Invoices  *services.InvoiceService
	Payments  *services.PaymentService
	Recording *services.RecordingService
	Registry  *services.RegistryService
	Reports   *services.ReportService
	Resets    *services.ResetService
	Health    *services.HealthService
}

func OpenStore(cfg *config.Config) (*pg.DB, error) {
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppEnv == "dev")
	if err != nil {
		return nil, errors.Wrap(err, "connect to postgres")
	}
	return db, nil
}

func OpenRedis(cfg *config.Config, name string) (redis.RedisAdapter, error) {
	adapter, err := redis.NewRedisAdapter(name, cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-" + name,
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}
	return adapter, nil
}

func QueueConfig(cfg *config.Config) queue.Config {
	return queue.Config{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	}
}

// NewNotifier returns the redis stream publisher for admin notifications.
func NewNotifier(ctx context.Context, cfg *config.Config, adapter redis.RedisAdapter) (*queue.NotificationPublisher, error) {
	q, err := queue.NewQueue(ctx, adapter, QueueConfig(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "create notification queue")
	}
	return queue.NewNotificationPublisher(q), nil
}

func NewServices(cfg *config.Config, db *pg.DB, adapter redis.RedisAdapter, notifier services.Notifier) *Services {
	members := repository.NewMemberRepository(db)
	accounts := repository.NewBankAccountRepository(db)
	invoices := repository.NewInvoiceRepository(db)
	payments := repository.NewPaymentRepository(db)
	entries := repository.NewLedgerEntryRepository(db)
	donations := repository.NewDonationRepository(db)
	expenses := repository.NewExpenseRepository(db)
	incomes := repository.NewIncomeRepository(db)
	categories := repository.NewCategoryRepository(db)

	ledger := services.NewLedgerRecorder(db, entries, accounts, payments, donations, expenses, incomes)
	billing := services.NewInvoiceService(db, members, invoices, services.InvoiceConfig{
		DueDay:      cfg.BillingDueDay,
		InvoiceType: cfg.BillingInvoiceType,
	})

	return &Services{
		Invoices:  billing,
		Payments:  services.NewPaymentService(db, members, invoices, payments, ledger, billing, cfg.BulkMaxEntries),
		Recording: services.NewRecordingService(db, members, donations, expenses, incomes, categories, ledger),
		Registry:  services.NewRegistryService(members, accounts, categories),
		Reports:   services.NewReportService(members, invoices, payments, entries, accounts),
		Resets: services.NewResetService(
			db,
			repository.NewResetRepository(db),
			repository.NewPhraseStore(adapter),
			repository.NewAuditRepository(db),
			notifier,
			services.ResetConfig{RecoveryWindow: cfg.ResetRecoveryWindow, PhraseTTL: cfg.ResetPhraseTTL},
		),
		Health: services.NewHealthService(map[string]services.Pinger{
			"store": db,
			"redis": adapter,
		}),
	}
}

// RegisterRoutes mounts every v1 handler under /api/v1.
func RegisterRoutes(r *xhttp.Router, s *Services) {
	g := r.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(s.Health))
	handlers.RegisterBillingRoutes(g, handlers.NewBillingHandler(s.Invoices, s.Payments))
	handlers.RegisterRecordingRoutes(g, handlers.NewRecordingHandler(s.Recording))
	handlers.RegisterResetRoutes(g, handlers.NewResetHandler(s.Resets))
	handlers.RegisterReportRoutes(g, handlers.NewReportHandler(s.Reports))
	handlers.RegisterRegistryRoutes(g, handlers.NewRegistryHandler(s.Registry))
}
