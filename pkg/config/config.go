package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Catalog      CatalogConfig
	Session      SessionConfig
	HTTP         HTTPConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRANCHPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"BRANCHPOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRANCHPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRANCHPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BRANCHPOS_DB_DSN"`

	LegacyHost     string `envconfig:"BRANCHPOS_DB_HOST"`
	LegacyPort     int    `envconfig:"BRANCHPOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRANCHPOS_DB_USER"`
	LegacyPassword string `envconfig:"BRANCHPOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRANCHPOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRANCHPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRANCHPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRANCHPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRANCHPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRANCHPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRANCHPOS_REDIS_URL"`
	Address      string        `envconfig:"BRANCHPOS_REDIS_ADDR"`
	Password     string        `envconfig:"BRANCHPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRANCHPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRANCHPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRANCHPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRANCHPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRANCHPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRANCHPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool   `envconfig:"BRANCHPOS_USE_SQLITE" default:"false"`
	SQLitePath  string `envconfig:"BRANCHPOS_SQLITE_PATH" default:"branchpos.db"`
	AutoMigrate bool   `envconfig:"BRANCHPOS_AUTO_MIGRATE" default:"false"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"BRANCHPOS_CATALOG_CACHE_TTL" default:"10m"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"BRANCHPOS_SESSION_IDLE_TTL" default:"2h"`
	SweepInterval time.Duration `envconfig:"BRANCHPOS_SESSION_SWEEP_INTERVAL" default:"5m"`
	MaxLines      int           `envconfig:"BRANCHPOS_SESSION_MAX_LINES" default:"500"`
}

type HTTPConfig struct {
	AllowedOrigins []string `envconfig:"BRANCHPOS_HTTP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type OutboxConfig struct {
	BatchSize       int    `envconfig:"BRANCHPOS_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS  int    `envconfig:"BRANCHPOS_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts     int    `envconfig:"BRANCHPOS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	SalesStream     string `envconfig:"BRANCHPOS_OUTBOX_SALES_STREAM" default:"branchpos.sales"`
	TransfersStream string `envconfig:"BRANCHPOS_OUTBOX_TRANSFERS_STREAM" default:"branchpos.transfers"`
	StreamMaxLen    int64  `envconfig:"BRANCHPOS_OUTBOX_STREAM_MAXLEN" default:"100000"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BRANCHPOS_CRON_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"BRANCHPOS_CRON_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
