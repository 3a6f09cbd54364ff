package helpers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nimasrn/dues-ledger/internal/config"
	"github.com/nimasrn/dues-ledger/internal/repository"
	"github.com/nimasrn/dues-ledger/pkg/pg"
	"github.com/nimasrn/dues-ledger/pkg/redis"
)

// SetupTestDB returns an in-memory sqlite store with the full schema.
func SetupTestDB(t *testing.T) *pg.DB {
	t.Helper()
	db, err := pg.NewSQLite(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(context.Background(), db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)

	// adapters are cached by name, so every test gets its own
	name := fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
	adapter, err := redis.NewRedisAdapter(name, "test:", &redis.Options{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

// TestConfig carries the settings the services read, with fast queue timings.
func TestConfig() *config.Config {
	return &config.Config{
		AppName:                "dues-ledger-test",
		AppEnv:                 "test",
		BillingDueDay:          10,
		BillingInvoiceType:     "Sanda",
		ResetRecoveryWindow:    72 * time.Hour,
		ResetPhraseTTL:         10 * time.Minute,
		ResetSweepInterval:     time.Minute,
		BulkMaxEntries:         50,
		QueueName:              "notifications",
		QueueConsumerGroup:     "notifiers",
		QueueConsumerName:      "notifier",
		QueueMaxRetries:        3,
		QueueVisibilityTimeout: 5 * time.Second,
		QueuePollInterval:      20 * time.Millisecond,
		QueueBatchSize:         10,
		QueueMaxLen:            1000,
		QueueEnableDLQ:         true,
		QueueConsumers:         1,
		QueueWorkers:           2,
	}
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	if !WaitForCondition(t, timeout, condition) {
		t.Fatal(msg)
	}
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
