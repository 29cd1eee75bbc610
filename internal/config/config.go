package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/xpensemate/pkg/db"
	"github.com/nimasrn/xpensemate/pkg/logger"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every setting of the ledger binaries. Nothing else reads the
// environment directly.
type Config struct {
	AppEnv   string `env:"APP_ENV,default=dev"`
	AppName  string `env:"APP_NAME,default=xpensemate"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	CurrencySymbol string `env:"LEDGER_CURRENCY_SYMBOL,default=$"`
	ImageDir       string `env:"LEDGER_IMAGE_DIR,default=data/images"`
	AlertDedupe    bool   `env:"LEDGER_ALERT_DEDUPE,default=false"`

	DBDriver       string `env:"DB_DRIVER,default=sqlite"`
	DBSQLitePath   string `env:"DB_SQLITE_PATH,default=data/xpensemate.db"`
	DBPostgresDSN  string `env:"DB_POSTGRES_DSN"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS,default=0"`
	DBDebug        bool   `env:"DB_DEBUG,default=false"`

	HttpListenAddr   string        `env:"HTTP_LISTEN_ADDR,default=:8080"`
	HttpReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=10s"`
	HttpWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=10s"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDatabase  int    `env:"REDIS_DB,default=0"`
	RedisPoolSize  int    `env:"REDIS_POOL_SIZE,default=10"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX,default=xpensemate:"`

	QueueStream       string        `env:"QUEUE_STREAM,default=alerts"`
	QueueGroup        string        `env:"QUEUE_GROUP,default=alert-processor"`
	QueueBatchSize    int64         `env:"QUEUE_BATCH_SIZE,default=10"`
	QueueMaxRetries   int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueRetryDelay   time.Duration `env:"QUEUE_RETRY_DELAY,default=30s"`
	QueuePollInterval time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueMaxLen       int64         `env:"QUEUE_MAX_LEN,default=10000"`

	ProcessorConsumers      int           `env:"PROCESSOR_CONSUMERS,default=2"`
	ProcessorWorkers        int           `env:"PROCESSOR_WORKERS,default=8"`
	ProcessorIdempotencyTTL time.Duration `env:"PROCESSOR_IDEMPOTENCY_TTL,default=24h"`

	PromNamespace     string `env:"PROM_NAMESPACE,default=xpensemate"`
	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR"`

	PushPrimaryURL   string        `env:"PUSH_PRIMARY_URL,default=http://localhost:9090"`
	PushSecondaryURL string        `env:"PUSH_SECONDARY_URL"`
	PushTimeout      time.Duration `env:"PUSH_TIMEOUT,default=5s"`

	PushSimPort        int     `env:"PUSHSIM_PORT,default=9090"`
	PushSimFailureRate float64 `env:"PUSHSIM_FAILURE_RATE,default=0"`
}

// Load reads the optional .env file at path, then maps the environment onto Config.
func Load(path string) error {
	c, err := Parse(path)
	if err != nil {
		return err
	}
	config = c
	return nil
}

func Parse(path string) (*Config, error) {
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return nil, errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return nil, errors.Wrap(err, "failed to map env variables to configuration")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case db.DriverSQLite:
	case db.DriverPostgres:
		if c.DBPostgresDSN == "" {
			return errors.New("DB_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.PushSimFailureRate < 0 || c.PushSimFailureRate > 1 {
		return errors.Errorf("PUSHSIM_FAILURE_RATE must be within [0, 1], got %v", c.PushSimFailureRate)
	}
	return nil
}

func (c *Config) Database() db.Config {
	return db.Config{
		Driver:       c.DBDriver,
		SQLitePath:   c.DBSQLitePath,
		PostgresDSN:  c.DBPostgresDSN,
		MaxOpenConns: c.DBMaxOpenConns,
		Debug:        c.DBDebug,
	}
}

// RedisEnabled reports whether alert delivery and de-duplication can use Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func Get() *Config {
	if config == nil {
		logger.Panic("config is not initialized")
	}
	return config
}
