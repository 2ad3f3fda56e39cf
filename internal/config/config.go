package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the SMS dispatch service.
type Config struct {
	App       AppConfig
	Kafka     KafkaConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Search    SearchConfig
	Provider  ProviderConfig
	Retry     RetryConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
	OTEL      OTELConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env         string
	Port        int
	MetricsPort int
	LogLevel    string
	CORSOrigins []string
}

// KafkaConfig defines broker information, topics and the consumer group.
type KafkaConfig struct {
	Brokers             []string
	RequestTopic        string
	ResponseTopic       string
	ConsumerGroup       string
	CommitOnSuccessOnly bool
}

// DatabaseConfig selects the gorm driver and connection settings.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	SlowQuery    time.Duration
}

// RedisConfig holds cache connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// SearchConfig selects the document store backing the search projector.
type SearchConfig struct {
	Backend   string
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// ProviderConfig configures the outbound SMS provider.
type ProviderConfig struct {
	Backend string
	URL     string
	APIKey  string
	Timeout time.Duration
}

// RetryConfig controls the optional bounded retry around the gateway call.
type RetryConfig struct {
	Enabled     bool
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// RateLimitConfig controls the optional per-phone token bucket.
type RateLimitConfig struct {
	Enabled   bool
	PerMinute int
	PerHour   int
}

// WorkerConfig bounds orchestrator processing.
type WorkerConfig struct {
	Concurrency int
	MsgMaxBytes int
}

// OTELConfig configures tracing export.
type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.Port = ldr.getInt("APP_PORT", 8080, false)
	cfg.App.MetricsPort = ldr.getInt("METRICS_PORT", 9091, false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)
	cfg.App.CORSOrigins = ldr.getStringSlice("CORS_ALLOWED_ORIGINS", false)

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", true)
	cfg.Kafka.RequestTopic = ldr.getString("KAFKA_SMS_REQUEST_TOPIC", "sms-requests", false)
	cfg.Kafka.ResponseTopic = ldr.getString("KAFKA_SMS_RESPONSE_TOPIC", "sms-responses", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("SMS_CONSUMER_GROUP", "sms-notification-group", false)
	cfg.Kafka.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)

	cfg.Database.Driver = strings.ToLower(ldr.getString("DB_DRIVER", "postgres", false))
	cfg.Database.DSN = ldr.getString("DB_DSN", "", true)
	cfg.Database.MaxOpenConns = ldr.getInt("DB_MAX_OPEN_CONNS", 10, false)
	cfg.Database.MaxIdleConns = ldr.getInt("DB_MAX_IDLE_CONNS", 10, false)
	cfg.Database.SlowQuery = ldr.getDuration("DB_SLOW_QUERY", 200*time.Millisecond, false)

	cfg.Redis.Addr = ldr.getString("REDIS_ADDR", "localhost:6379", false)
	cfg.Redis.Password = ldr.getString("REDIS_PASSWORD", "", false)
	cfg.Redis.DB = ldr.getInt("REDIS_DB", 0, false)
	cfg.Redis.CacheTTL = ldr.getDuration("CACHE_TTL", 24*time.Hour, false)

	cfg.Search.Backend = strings.ToLower(ldr.getString("SEARCH_BACKEND", "elastic", false))
	cfg.Search.Addresses = ldr.getStringSlice("ELASTICSEARCH_ADDRESSES", false)
	cfg.Search.Index = ldr.getString("ELASTICSEARCH_INDEX", "sms_requests", false)
	cfg.Search.Username = ldr.getString("ELASTICSEARCH_USERNAME", "", false)
	cfg.Search.Password = ldr.getString("ELASTICSEARCH_PASSWORD", "", false)

	cfg.Provider.Backend = strings.ToLower(ldr.getString("SMS_PROVIDER", "mock", false))
	cfg.Provider.URL = ldr.getString("SMS_PROVIDER_URL", "", false)
	cfg.Provider.APIKey = ldr.getString("SMS_PROVIDER_API_KEY", "", false)
	cfg.Provider.Timeout = time.Duration(ldr.getInt("PROVIDER_TIMEOUT_SECONDS", 10, false)) * time.Second

	cfg.Retry.Enabled = ldr.getBool("RETRY_ENABLED", false, false)
	cfg.Retry.MaxAttempts = ldr.getInt("MAX_ATTEMPTS", 3, false)
	cfg.Retry.BaseBackoff = ldr.getDuration("BASE_BACKOFF", time.Second, false)
	cfg.Retry.MaxBackoff = ldr.getDuration("MAX_BACKOFF", 10*time.Second, false)

	cfg.RateLimit.Enabled = ldr.getBool("RATE_LIMIT_ENABLED", false, false)
	cfg.RateLimit.PerMinute = ldr.getInt("RATE_LIMIT_PER_MINUTE", 100, false)
	cfg.RateLimit.PerHour = ldr.getInt("RATE_LIMIT_PER_HOUR", 1000, false)

	cfg.Worker.Concurrency = ldr.getInt("WORKER_CONCURRENCY", 10, false)
	cfg.Worker.MsgMaxBytes = ldr.getInt("MSG_MAX_BYTES", 64000, false)

	cfg.OTEL.Enabled = ldr.getBool("OTEL_ENABLED", false, false)
	cfg.OTEL.Endpoint = ldr.getString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317", false)
	cfg.OTEL.Insecure = ldr.getBool("OTEL_INSECURE", true, false)
	cfg.OTEL.SampleRatio = ldr.getFloat("OTEL_SAMPLE_RATIO", 1.0, false)
	cfg.OTEL.ServiceName = ldr.getString("OTEL_SERVICE_NAME", "sms-dispatch-service", false)

	ldr.check(cfg)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

// check applies cross-field rules once every value has been read.
func (l *envLoader) check(cfg *Config) {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		l.addError(fmt.Sprintf("DB_DRIVER %q is not supported", cfg.Database.Driver))
	}
	switch cfg.Search.Backend {
	case "elastic":
		if len(cfg.Search.Addresses) == 0 {
			l.addError("ELASTICSEARCH_ADDRESSES is required when SEARCH_BACKEND=elastic")
		}
	case "db":
	default:
		l.addError(fmt.Sprintf("SEARCH_BACKEND %q is not supported", cfg.Search.Backend))
	}
	switch cfg.Provider.Backend {
	case "http":
		if cfg.Provider.URL == "" {
			l.addError("SMS_PROVIDER_URL is required when SMS_PROVIDER=http")
		}
	case "mock":
	default:
		l.addError(fmt.Sprintf("SMS_PROVIDER %q is not supported", cfg.Provider.Backend))
	}
	if cfg.Provider.Timeout <= 0 {
		l.addError("PROVIDER_TIMEOUT_SECONDS must be positive")
	}
	if cfg.Retry.MaxAttempts < 1 {
		l.addError("MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Worker.Concurrency < 1 {
		l.addError("WORKER_CONCURRENCY must be >= 1")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.PerMinute < 1 || cfg.RateLimit.PerHour < 1) {
		l.addError("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_PER_HOUR must be >= 1 when rate limiting is enabled")
	}
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

// lookup returns the trimmed value and whether a non-empty value was present,
// recording a missing-required error otherwise.
func (l *envLoader) lookup(key string, required bool) (string, bool) {
	val, ok := os.LookupEnv(key)
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		if required {
			l.addError(fmt.Sprintf("%s is required", key))
		}
		return "", false
	}
	return val, true
}

func (l *envLoader) getString(key, def string, required bool) string {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	return val
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getFloat(key string, def float64, required bool) float64 {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid number", key))
		return def
	}
	return f
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getDuration(key string, def time.Duration, required bool) time.Duration {
	val, ok := l.lookup(key, required)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid duration", key))
		return def
	}
	return d
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
