package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Storage    StorageConfig
	Extraction ExtractionConfig
	Ingestion  IngestionConfig
	Swagger    SwaggerConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	Currency string // ISO currency code used in exports and summaries
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64 // request body cap; uploads are the largest payloads
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// StorageConfig holds invoice document storage configuration. Uploaded
// files land in the temp prefix and are promoted to the durable layout
// once parsing succeeds.
type StorageConfig struct {
	Driver          string // s3 or local
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores (MinIO)
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	LocalDir        string // root directory for the local driver
	TempPrefix      string
}

// ProviderConfig holds the connection settings for one vision extraction
// provider
type ProviderConfig struct {
	Provider        string // openai or gemini
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// ExtractionConfig holds the dual-provider extraction setup. The
// secondary provider is optional; when set it is tried once after the
// primary fails.
type ExtractionConfig struct {
	Primary   ProviderConfig
	Secondary ProviderConfig
}

// IngestionConfig holds parse worker configuration
type IngestionConfig struct {
	WorkerConcurrency  int
	QueueSize          int
	UnlinkedItemPolicy string // ledger-only or block
	MaxUploadBytes     int64
	ShutdownTimeout    time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require authentication to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	LogsEnabled       bool    // Bridge zap records to the OTEL collector
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBMetricsEnabled  bool          // Enable database query/pool metrics
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	// Continuous profiling (Pyroscope)
	ProfilingEnabled    bool   // Enable continuous profiling
	ProfilingServerAddr string // Pyroscope server address (e.g., "http://localhost:4040")
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CLINIC_ prefix (e.g., CLINIC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			Currency: v.GetString("app.currency"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Driver:          v.GetString("storage.driver"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			ForcePathStyle:  v.GetBool("storage.force_path_style"),
			LocalDir:        v.GetString("storage.local_dir"),
			TempPrefix:      v.GetString("storage.temp_prefix"),
		},
		Extraction: ExtractionConfig{
			Primary: ProviderConfig{
				Provider:        v.GetString("extraction.primary.provider"),
				BaseURL:         v.GetString("extraction.primary.base_url"),
				APIKey:          v.GetString("extraction.primary.api_key"),
				Model:           v.GetString("extraction.primary.model"),
				Timeout:         v.GetDuration("extraction.primary.timeout"),
				MaxOutputTokens: v.GetInt("extraction.primary.max_output_tokens"),
			},
			Secondary: ProviderConfig{
				Provider:        v.GetString("extraction.secondary.provider"),
				BaseURL:         v.GetString("extraction.secondary.base_url"),
				APIKey:          v.GetString("extraction.secondary.api_key"),
				Model:           v.GetString("extraction.secondary.model"),
				Timeout:         v.GetDuration("extraction.secondary.timeout"),
				MaxOutputTokens: v.GetInt("extraction.secondary.max_output_tokens"),
			},
		},
		Ingestion: IngestionConfig{
			WorkerConcurrency:  v.GetInt("ingestion.worker_concurrency"),
			QueueSize:          v.GetInt("ingestion.queue_size"),
			UnlinkedItemPolicy: v.GetString("ingestion.unlinked_item_policy"),
			MaxUploadBytes:     v.GetInt64("ingestion.max_upload_bytes"),
			ShutdownTimeout:    v.GetDuration("ingestion.shutdown_timeout"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:             v.GetBool("telemetry.enabled"),
			CollectorEndpoint:   v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:       v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:         v.GetString("telemetry.service_name"),
			Insecure:            v.GetBool("telemetry.insecure"),
			LogsEnabled:         v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:      v.GetBool("telemetry.db_trace_enabled"),
			DBMetricsEnabled:    v.GetBool("telemetry.db_metrics_enabled"),
			DBLogFullSQL:        v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:   v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:    v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddr: v.GetString("telemetry.profiling_server_address"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "clinicware-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.Currency == "" {
		cfg.App.Currency = "INR"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "clinicware"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "clinicware-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 25 << 20 // 25MB, invoice scans can be large
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "ap-south-1"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "./data/invoices"
	}
	if cfg.Storage.TempPrefix == "" {
		cfg.Storage.TempPrefix = "tmp/uploads"
	}
	// Extraction defaults
	if cfg.Extraction.Primary.Provider == "" {
		cfg.Extraction.Primary.Provider = "openai"
	}
	if cfg.Extraction.Primary.Model == "" {
		cfg.Extraction.Primary.Model = "gpt-4o-mini"
	}
	if cfg.Extraction.Primary.Timeout == 0 {
		cfg.Extraction.Primary.Timeout = 90 * time.Second
	}
	if cfg.Extraction.Primary.MaxOutputTokens == 0 {
		cfg.Extraction.Primary.MaxOutputTokens = 4096
	}
	if cfg.Extraction.Secondary.Provider == "" && cfg.Extraction.Secondary.APIKey != "" {
		cfg.Extraction.Secondary.Provider = "gemini"
	}
	if cfg.Extraction.Secondary.Model == "" && cfg.Extraction.Secondary.Provider == "gemini" {
		cfg.Extraction.Secondary.Model = "gemini-2.0-flash"
	}
	if cfg.Extraction.Secondary.Timeout == 0 {
		cfg.Extraction.Secondary.Timeout = 90 * time.Second
	}
	if cfg.Extraction.Secondary.MaxOutputTokens == 0 {
		cfg.Extraction.Secondary.MaxOutputTokens = 4096
	}
	// Ingestion defaults
	if cfg.Ingestion.WorkerConcurrency == 0 {
		cfg.Ingestion.WorkerConcurrency = 2
	}
	if cfg.Ingestion.QueueSize == 0 {
		cfg.Ingestion.QueueSize = 64
	}
	if cfg.Ingestion.UnlinkedItemPolicy == "" {
		cfg.Ingestion.UnlinkedItemPolicy = "ledger-only"
	}
	if cfg.Ingestion.MaxUploadBytes == 0 {
		cfg.Ingestion.MaxUploadBytes = 20 << 20 // 20MB per invoice document
	}
	if cfg.Ingestion.ShutdownTimeout == 0 {
		cfg.Ingestion.ShutdownTimeout = 30 * time.Second
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "clinicware-backend"
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.ProfilingServerAddr == "" {
		cfg.Telemetry.ProfilingServerAddr = "http://localhost:4040"
	}
	// Note: DBLogFullSQL defaults to false for security (disable in production)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Driver {
	case "s3", "local":
	default:
		return fmt.Errorf("storage.driver must be s3 or local, got %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the s3 driver")
	}

	if err := validateProvider("extraction.primary", c.Extraction.Primary, true); err != nil {
		return err
	}
	if err := validateProvider("extraction.secondary", c.Extraction.Secondary, false); err != nil {
		return err
	}

	switch c.Ingestion.UnlinkedItemPolicy {
	case "ledger-only", "block":
	default:
		return fmt.Errorf("ingestion.unlinked_item_policy must be ledger-only or block, got %q", c.Ingestion.UnlinkedItemPolicy)
	}
	if c.Ingestion.WorkerConcurrency < 1 {
		return fmt.Errorf("ingestion.worker_concurrency must be at least 1")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Driver == "local" {
			return fmt.Errorf("storage.driver must be s3 in production, local is for development only")
		}
		if c.Extraction.Primary.APIKey == "" {
			return fmt.Errorf("extraction.primary.api_key is required in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Swagger must be disabled OR protected in production
		if c.Swagger.Enabled {
			if !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
				return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// validateProvider checks one extraction provider block. The secondary
// block may be left entirely empty.
func validateProvider(key string, p ProviderConfig, required bool) error {
	if !required && p.Provider == "" && p.APIKey == "" {
		return nil
	}
	switch p.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("%s.provider must be openai or gemini, got %q", key, p.Provider)
	}
	if p.Model == "" {
		return fmt.Errorf("%s.model is required", key)
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
