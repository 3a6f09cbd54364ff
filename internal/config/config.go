package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/nimasrn/dues-ledger/pkg/logger"
	"github.com/nimasrn/dues-ledger/pkg/pg"
)

// Config holds every setting the binaries read. Values come from the process
// environment, optionally seeded from a dotenv file.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=dues_ledger"`
	AppDebug bool   `env:"APP_DEBUG,default=false"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpServerReadTimeout     time.Duration `env:"HTTP_SERVER_READ_TIMEOUT,default=5s"`
	HttpServerWriteTimeout    time.Duration `env:"HTTP_SERVER_WRITE_TIMEOUT,default=5s"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE,default=4096"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE,default=4096"`
	HttpRequestTimeout        time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=30s"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST,default=localhost"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT,default=5432"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER,default=postgres"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME,default=dues_ledger"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST,default=localhost"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER,default=postgres"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME,default=dues_ledger"`
	PostgresSSLMode       string `env:"POSTGRES_SSLMODE,default=disable"`
	MigrationsDir         string `env:"MIGRATIONS_DIR,default=migrations"`

	RedisAddr               string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE,default=0"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX,default=dues:"`

	PromNamespace  string `env:"PROM_NAMESPACE,default=dues_ledger"`
	PromListenAddr string `env:"PROM_LISTEN_ADDR,default=:9090"`

	QueueName              string        `env:"QUEUE_NAME,default=notifications"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=notifiers"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=notifier"`
	QueueConsumers         int           `env:"QUEUE_CONSUMERS,default=2"`
	QueueWorkers           int           `env:"QUEUE_WORKERS,default=8"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=20"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=10000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	WebhookPrimaryUrl         string        `env:"WEBHOOK_PRIMARY_URL,default=http://localhost:8081/notify"`
	WebhookPrimaryHealthUrl   string        `env:"WEBHOOK_PRIMARY_HEALTH_URL,default=http://localhost:8081/health"`
	WebhookSecondaryUrl       string        `env:"WEBHOOK_SECONDARY_URL"`
	WebhookSecondaryHealthUrl string        `env:"WEBHOOK_SECONDARY_HEALTH_URL"`
	WebhookTimeout            time.Duration `env:"WEBHOOK_TIMEOUT,default=5s"`

	BillingDueDay      int    `env:"BILLING_DUE_DAY,default=10"`
	BillingInvoiceType string `env:"BILLING_INVOICE_TYPE,default=Sanda"`

	ResetRecoveryWindow time.Duration `env:"RESET_RECOVERY_WINDOW,default=72h"`
	ResetPhraseTTL      time.Duration `env:"RESET_PHRASE_TTL,default=10m"`
	ResetSweepInterval  time.Duration `env:"RESET_SWEEP_INTERVAL,default=5m"`

	BulkMaxEntries int `env:"BULK_MAX_ENTRIES,default=500"`
}

// Load reads an optional dotenv file into the environment and maps the
// environment onto a Config.
func Load(path string) (*Config, error) {
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return nil, errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return nil, errors.Wrap(err, "failed to map env variables to Config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.BillingDueDay < 1 || c.BillingDueDay > 31 {
		return errors.Errorf("BILLING_DUE_DAY must be between 1 and 31, got %d", c.BillingDueDay)
	}
	if c.BillingInvoiceType == "" {
		return errors.New("BILLING_INVOICE_TYPE must not be empty")
	}
	if c.ResetRecoveryWindow <= 0 {
		return errors.New("RESET_RECOVERY_WINDOW must be positive")
	}
	if c.BulkMaxEntries <= 0 {
		return errors.New("BULK_MAX_ENTRIES must be positive")
	}
	return nil
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresSSLMode,
	}
}
