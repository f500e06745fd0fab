package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pharmasearch"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PHARMASEARCH_DB_DSN"
	EnvDBHost = "PHARMASEARCH_DB_HOST"
	EnvDBUser = "PHARMASEARCH_DB_USER"
	EnvDBName = "PHARMASEARCH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Scrape       ScrapeConfig
	Ingest       IngestConfig
	Search       SearchConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHARMASEARCH_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMASEARCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PHARMASEARCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMASEARCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHARMASEARCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMASEARCH_DB_DSN"`
	Driver string `envconfig:"PHARMASEARCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHARMASEARCH_DB_HOST"`
	LegacyPort     int    `envconfig:"PHARMASEARCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHARMASEARCH_DB_USER"`
	LegacyPassword string `envconfig:"PHARMASEARCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHARMASEARCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHARMASEARCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMASEARCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMASEARCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMASEARCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMASEARCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMASEARCH_REDIS_URL"`
	Address      string        `envconfig:"PHARMASEARCH_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMASEARCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMASEARCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMASEARCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMASEARCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMASEARCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMASEARCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMASEARCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ScrapeConfig bounds the collection run: how many source tasks run at once
// and how failed ones are retried on the sequential second pass.
type ScrapeConfig struct {
	SourcesFile    string        `envconfig:"PHARMASEARCH_SCRAPE_SOURCES_FILE" default:"sources.yaml"`
	Concurrency    int           `envconfig:"PHARMASEARCH_SCRAPE_CONCURRENCY" default:"6"`
	SourceTimeout  time.Duration `envconfig:"PHARMASEARCH_SCRAPE_SOURCE_TIMEOUT" default:"15m"`
	RetryAttempts  int           `envconfig:"PHARMASEARCH_SCRAPE_RETRY_ATTEMPTS" default:"2"`
	RetryBaseDelay time.Duration `envconfig:"PHARMASEARCH_SCRAPE_RETRY_BASE_DELAY" default:"2s"`
	RunLockTTL     time.Duration `envconfig:"PHARMASEARCH_SCRAPE_RUN_LOCK_TTL" default:"2h"`
}

// IngestConfig shapes the backpressure valve between scraped batches and the
// shared connection pool.
type IngestConfig struct {
	ChunkSize      int           `envconfig:"PHARMASEARCH_INGEST_CHUNK_SIZE" default:"50"`
	ChunkPause     time.Duration `envconfig:"PHARMASEARCH_INGEST_CHUNK_PAUSE" default:"100ms"`
	RetryAttempts  int           `envconfig:"PHARMASEARCH_INGEST_RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"PHARMASEARCH_INGEST_RETRY_BASE_DELAY" default:"250ms"`
}

type SearchConfig struct {
	MaxCandidates    int           `envconfig:"PHARMASEARCH_SEARCH_MAX_CANDIDATES" default:"1000"`
	DefaultLimit     int           `envconfig:"PHARMASEARCH_SEARCH_DEFAULT_LIMIT" default:"20"`
	FeaturedLimit    int           `envconfig:"PHARMASEARCH_SEARCH_FEATURED_LIMIT" default:"24"`
	FeaturedCacheTTL time.Duration `envconfig:"PHARMASEARCH_SEARCH_FEATURED_CACHE_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PHARMASEARCH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
