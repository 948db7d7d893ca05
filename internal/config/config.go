package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// CORSAllowedOriginsEnv is a comma separated list of origins allowed to call the API.
	CORSAllowedOriginsEnv = "CORS_ALLOWED_ORIGINS"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// RedisURLEnv is the environment variable for the Redis connection URL. Optional.
	RedisURLEnv = "REDIS_URL"

	// PriceCheckIntervalEnv is how often all active products are re-checked.
	PriceCheckIntervalEnv = "PRICE_CHECK_INTERVAL"

	// OutboxIntervalEnv is how often pending outbox events are published.
	OutboxIntervalEnv = "OUTBOX_INTERVAL"

	// HistoryRetentionEnv is how long price history entries are kept.
	HistoryRetentionEnv = "HISTORY_RETENTION"

	// CleanupHourEnv is the local hour (0-23) of the daily history cleanup.
	CleanupHourEnv = "CLEANUP_HOUR"

	// ScraperUserAgentEnv overrides the User-Agent sent when fetching product pages.
	ScraperUserAgentEnv = "SCRAPER_USER_AGENT"

	// ScraperTimeoutEnv is the per-request timeout for product page fetches.
	ScraperTimeoutEnv = "SCRAPER_TIMEOUT"

	// ScraperRetryTimesEnv is the number of retries for retryable fetch failures.
	ScraperRetryTimesEnv = "SCRAPER_RETRY_TIMES"

	// ScraperDownloadDelayEnv is the base delay between consecutive scheduled fetches.
	ScraperDownloadDelayEnv = "SCRAPER_DOWNLOAD_DELAY"

	// SMTPServerEnv is the SMTP host used for price alerts.
	SMTPServerEnv = "SMTP_SERVER"

	// SMTPPortEnv is the SMTP port used for price alerts.
	SMTPPortEnv = "SMTP_PORT"

	// SMTPUserEnv is the SMTP user, also used as the sender address.
	SMTPUserEnv = "SMTP_USER"

	// SMTPPasswordEnv is the SMTP password.
	SMTPPasswordEnv = "SMTP_PASSWORD"

	// AlertRecipientEnv is the fallback alert recipient when no users are registered.
	AlertRecipientEnv = "ALERT_RECIPIENT"
)

const (
	defaultCORSAllowedOrigins   = "http://localhost:3000"
	defaultPriceCheckInterval   = time.Hour
	defaultOutboxInterval       = 2 * time.Second
	defaultHistoryRetention     = 30 * 24 * time.Hour
	defaultCleanupHour          = 2
	defaultScraperUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	defaultScraperTimeout       = 30 * time.Second
	defaultScraperRetryTimes    = 2
	defaultScraperDownloadDelay = 3 * time.Second
	defaultSMTPServer           = "smtp.gmail.com"
	defaultSMTPPort             = "587"
	defaultAlertRecipient       = "user@example.com"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Redis         Redis
	CORS          CORS
	Scheduler     Scheduler
	Scraper       Scraper
	SMTP          SMTP
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Redis holds the optional Redis connection settings.
type Redis struct {
	URL string
}

// CORS holds the origins allowed to call the HTTP API.
type CORS struct {
	AllowedOrigins []string
}

// Scheduler holds the background job settings.
type Scheduler struct {
	PriceCheckInterval time.Duration
	OutboxInterval     time.Duration
	HistoryRetention   time.Duration
	CleanupHour        int
}

// Scraper holds the product page fetching settings.
type Scraper struct {
	UserAgent     string
	Timeout       time.Duration
	RetryTimes    int
	DownloadDelay time.Duration
}

// SMTP holds the e-mail delivery settings for price alerts.
type SMTP struct {
	Server         string
	Port           string
	User           string
	Password       string
	AlertRecipient string
}

// Enabled reports whether credentials are present to actually send mail.
func (s SMTP) Enabled() bool {
	return s.User != "" && s.Password != ""
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
		SMTPPortEnv:          c.SMTP.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		SQSQueueURLEnv: c.AWS.SQSQueueURL,
	}); err != nil {
		return fmt.Errorf("AWS configuration incomplete: %w", err)
	}

	if c.Scheduler.CleanupHour < 0 || c.Scheduler.CleanupHour > 23 {
		return fmt.Errorf("invalid %s: %d is not an hour of the day", CleanupHourEnv, c.Scheduler.CleanupHour)
	}

	if c.Scraper.RetryTimes < 0 {
		return fmt.Errorf("invalid %s: must not be negative", ScraperRetryTimesEnv)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if val, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		slog.Warn("ignoring invalid duration", slog.String("key", name), slog.String("value", raw))
		return defaultValue
	}
	return val
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     os.Getenv(DBPortEnv),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
		Redis: Redis{
			URL: os.Getenv(RedisURLEnv),
		},
		CORS: CORS{
			AllowedOrigins: splitList(getEnv(CORSAllowedOriginsEnv, defaultCORSAllowedOrigins)),
		},
		Scheduler: Scheduler{
			PriceCheckInterval: getEnvAsDuration(PriceCheckIntervalEnv, defaultPriceCheckInterval),
			OutboxInterval:     getEnvAsDuration(OutboxIntervalEnv, defaultOutboxInterval),
			HistoryRetention:   getEnvAsDuration(HistoryRetentionEnv, defaultHistoryRetention),
			CleanupHour:        getEnvAsInt(CleanupHourEnv, defaultCleanupHour),
		},
		Scraper: Scraper{
			UserAgent:     getEnv(ScraperUserAgentEnv, defaultScraperUserAgent),
			Timeout:       getEnvAsDuration(ScraperTimeoutEnv, defaultScraperTimeout),
			RetryTimes:    getEnvAsInt(ScraperRetryTimesEnv, defaultScraperRetryTimes),
			DownloadDelay: getEnvAsDuration(ScraperDownloadDelayEnv, defaultScraperDownloadDelay),
		},
		SMTP: SMTP{
			Server:         getEnv(SMTPServerEnv, defaultSMTPServer),
			Port:           getEnv(SMTPPortEnv, defaultSMTPPort),
			User:           os.Getenv(SMTPUserEnv),
			Password:       os.Getenv(SMTPPasswordEnv),
			AlertRecipient: getEnv(AlertRecipientEnv, defaultAlertRecipient),
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
