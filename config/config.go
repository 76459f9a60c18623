package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Storage     Storage
	Postgres    Postgres
	SQLite      SQLite
	Redis       Redis
	API         API
	PriceSync   PriceSync
	Jobs        Jobs
	HTTP        HTTP
	GoogleDrive GoogleDrive
	Calculator  Calculator
}

type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:"localhost"`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"stock_ledger"`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" envDefault:"stock_ledger.db"`
}

type Redis struct {
	Enabled       bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host          string `env:"REDIS_HOST" envDefault:"localhost"`
	Port          int    `env:"REDIS_PORT" envDefault:"6379"`
	Password      string `env:"REDIS_PASSWORD" envDefault:""`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	ChannelPrefix string `env:"REDIS_CHANNEL_PREFIX" envDefault:"stock_ledger"`
}

type API struct {
	Debug           bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout         time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi        YahooApi
	ExchangeRateApi ExchangeRateApi
}

type YahooApi struct {
	Url string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
}

type ExchangeRateApi struct {
	Url      string          `env:"EXCHANGE_RATE_API_URL" envDefault:"https://api.frankfurter.app"`
	Timeout  time.Duration   `env:"EXCHANGE_RATE_API_TIMEOUT" envDefault:"5s"`
	Fallback decimal.Decimal `env:"EXCHANGE_RATE_FALLBACK" envDefault:"1350"`
}

type PriceSync struct {
	FetchTimeout     time.Duration `env:"PRICE_SYNC_FETCH_TIMEOUT" envDefault:"10s"`
	MaxParallelFetch int           `env:"PRICE_SYNC_MAX_PARALLEL_FETCH" envDefault:"8"`
}

type Jobs struct {
	PriceRefreshInterval time.Duration `env:"PRICE_REFRESH_JOB_INTERVAL" envDefault:"5m"`
	ReportCleanupCrontab string        `env:"REPORT_CLEANUP_JOB_CRONTAB" envDefault:"0 0 4 * * *"`
}

type HTTP struct {
	Addr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	AllowedOrigins []string      `env:"HTTP_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"24h"`
}

// Calculator - ставки в процентах
type Calculator struct {
	DefaultFeeRate decimal.Decimal `env:"CALCULATOR_DEFAULT_FEE_RATE" envDefault:"0.015"`
	DefaultTaxRate decimal.Decimal `env:"CALCULATOR_DEFAULT_TAX_RATE" envDefault:"0.15"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
