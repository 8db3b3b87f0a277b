package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	JWT            JWTConfig
	Log            LogConfig
	Scheduler      SchedulerConfig
	TLS            TLSConfig
	Telemetry      TelemetryConfig
	Firebase       FirebaseConfig
	Gemini         GeminiConfig
	Reconciliation ReconciliationConfig
	RateLimit      RateLimitConfig
	Storage        StorageConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	DBName        string
	SSLMode       string
	RunMigrations bool
	MaxOpenConns  int
	MaxIdleConns  int
	ConnLifetime  time.Duration
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level string
	JSON  bool
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TLSConfig struct {
	Enabled  bool
	CertPath string
	KeyPath  string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

type FirebaseConfig struct {
	CredentialsFile string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// ReconciliationConfig holds the matching thresholds. Defaults mirror the
// values the matching engine was tuned with.
type ReconciliationConfig struct {
	MatchThreshold        float64
	MatchLimit            int
	PoolWindowDays        int
	AutoAmountTolerance   float64
	AutoDateToleranceDays int
	TriggerDedupeTTL      time.Duration
}

// StorageConfig locates uploaded documents. Paths that are not gs:// URIs
// are resolved under LocalDir.
type StorageConfig struct {
	LocalDir string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}

	matchThreshold, err := strconv.ParseFloat(getEnv("RECONCILE_MATCH_THRESHOLD", "0.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_MATCH_THRESHOLD: %w", err)
	}
	matchLimit, err := strconv.Atoi(getEnv("RECONCILE_MATCH_LIMIT", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_MATCH_LIMIT: %w", err)
	}
	poolWindow, err := strconv.Atoi(getEnv("RECONCILE_POOL_WINDOW_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_POOL_WINDOW_DAYS: %w", err)
	}
	autoAmountTolerance, err := strconv.ParseFloat(getEnv("RECONCILE_AUTO_AMOUNT_TOLERANCE", "0.02"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_AUTO_AMOUNT_TOLERANCE: %w", err)
	}
	autoDateTolerance, err := strconv.Atoi(getEnv("RECONCILE_AUTO_DATE_TOLERANCE_DAYS", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_AUTO_DATE_TOLERANCE_DAYS: %w", err)
	}
	dedupeTTL, err := time.ParseDuration(getEnv("RECONCILE_TRIGGER_DEDUPE_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_TRIGGER_DEDUPE_TTL: %w", err)
	}

	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	connLifetime, err := time.ParseDuration(getEnv("DB_CONN_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_LIFETIME: %w", err)
	}

	rateRPS, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	rateBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          dbPort,
			User:          getEnv("DB_USER", "kesef"),
			Password:      getEnv("DB_PASSWORD", ""),
			DBName:        getEnv("DB_NAME", "kesef"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
			MaxOpenConns:  maxOpen,
			MaxIdleConns:  maxIdle,
			ConnLifetime:  connLifetime,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getBoolEnv("LOG_JSON", false),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
			ScheduleTimes: splitList(getEnv("SCHEDULER_TIMES", "03:30")),
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		TLS: TLSConfig{
			Enabled:  getBoolEnv("TLS_ENABLED", false),
			CertPath: getEnv("TLS_CERT_PATH", ""),
			KeyPath:  getEnv("TLS_KEY_PATH", ""),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "kesef-api"),
			Environment:  getEnv("APP_ENV", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Reconciliation: ReconciliationConfig{
			MatchThreshold:        matchThreshold,
			MatchLimit:            matchLimit,
			PoolWindowDays:        poolWindow,
			AutoAmountTolerance:   autoAmountTolerance,
			AutoDateToleranceDays: autoDateTolerance,
			TriggerDedupeTTL:      dedupeTTL,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: rateRPS,
			Burst:             rateBurst,
		},
		Storage: StorageConfig{
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "./uploads"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Reconciliation.MatchThreshold < 0 || cfg.Reconciliation.MatchThreshold > 1 {
		return nil, fmt.Errorf("RECONCILE_MATCH_THRESHOLD must be between 0 and 1")
	}
	if cfg.Reconciliation.MatchLimit <= 0 {
		return nil, fmt.Errorf("RECONCILE_MATCH_LIMIT must be positive")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
