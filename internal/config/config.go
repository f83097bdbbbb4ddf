// Package config loads the intake service configuration from environment
// variables, applies defaults, and validates the result. Exactly one storage
// backend is selected here and stays fixed for the life of the process.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend identifiers accepted in STORAGE_BACKEND.
const (
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendS3     = "s3"
	BackendSQLite = "sqlite"
)

// CORSConfig defines Cross-Origin Resource Sharing settings for /api routes.
// An empty allowlist permits every origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// FileConfig configures the append-only JSONL backend.
type FileConfig struct {
	Path string // SUBMISSIONS_FILE
}

// MongoConfig configures the document-store backend.
type MongoConfig struct {
	URI            string        // MONGO_URI (required for the mongo backend)
	Database       string        // MONGO_DB
	Collection     string        // MONGO_COLLECTION
	ConnectTimeout time.Duration // MONGO_CONNECT_TIMEOUT
}

// S3Config configures the object-store backend.
type S3Config struct {
	Region         string // AWS_REGION
	Bucket         string // S3_BUCKET
	Prefix         string // S3_PREFIX, defaults to the bucket name
	Endpoint       string // S3_ENDPOINT for S3-compatible stores
	ForcePathStyle bool   // S3_FORCE_PATH_STYLE
}

// NotifyConfig configures the optional owner e-mail sent after each stored
// submission. Notification is disabled unless both SMTPHost and To are set.
type NotifyConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
	From         string
	To           []string
	Timeout      time.Duration
}

// Enabled reports whether owner notification is configured.
func (n NotifyConfig) Enabled() bool {
	return n.SMTPHost != "" && len(n.To) > 0
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	GinMode           string // debug|release|test
	// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers are
	// honoured for the client IP. Empty means RemoteAddr is used as is.
	TrustedProxies    []string

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	LogFile        string // optional rotating log file
	LogRedact      bool   // scrub emails/phones from access logs
	SwaggerEnabled bool
	APIBasePath    string

	// Storage
	Backend string
	File    FileConfig
	Mongo   MongoConfig
	S3      S3Config
	DBPath  string // SQLite path (sqlite backend and idempotency ledger)

	// Rate limiting; RateRPS 0 disables the limiter.
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration

	Notify NotifyConfig
	OTEL   OTELConfig
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	bucket := getenv("S3_BUCKET", "contact-form-submissions")

	cfg := Config{
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		TrustedProxies:    splitCSV(getenv("TRUSTED_PROXIES", "")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogFile:        strings.TrimSpace(getenv("LOG_FILE", "")),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		Backend: strings.ToLower(strings.TrimSpace(getenv("STORAGE_BACKEND", BackendFile))),
		File: FileConfig{
			Path: getenv("SUBMISSIONS_FILE", "submissions.jsonl"),
		},
		Mongo: MongoConfig{
			URI:            strings.TrimSpace(getenv("MONGO_URI", "")),
			Database:       getenv("MONGO_DB", "portfolio"),
			Collection:     getenv("MONGO_COLLECTION", "contact_submissions"),
			ConnectTimeout: getdur("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		S3: S3Config{
			Region:         getenv("AWS_REGION", "ap-south-1"),
			Bucket:         bucket,
			Prefix:         strings.Trim(getenv("S3_PREFIX", bucket), "/"),
			Endpoint:       strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			ForcePathStyle: getbool("S3_FORCE_PATH_STYLE", false),
		},
		DBPath: getenv("DB_PATH", "contact.db"),

		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 5),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyEnabled: getbool("IDEMPOTENCY_ENABLED", true),
		IdempotencyTTL:     getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Notify: NotifyConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getint("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPUseTLS:   getbool("SMTP_USE_TLS", false),
			From:         getenv("NOTIFY_FROM", "no-reply@localhost"),
			To:           splitCSV(getenv("NOTIFY_TO", "")),
			Timeout:      getdur("NOTIFY_TIMEOUT", 10*time.Second),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "contact-intake"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.S3.Prefix == "" {
		cfg.S3.Prefix = cfg.S3.Bucket
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 || cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES and MAX_BODY_BYTES must be > 0")
	}

	switch cfg.Backend {
	case BackendFile:
		if strings.TrimSpace(cfg.File.Path) == "" {
			return cfg, errors.New("SUBMISSIONS_FILE must not be empty")
		}
	case BackendMongo:
		if cfg.Mongo.URI == "" {
			return cfg, errors.New("MONGO_URI is required for the mongo backend")
		}
		if strings.TrimSpace(cfg.Mongo.Database) == "" || strings.TrimSpace(cfg.Mongo.Collection) == "" {
			return cfg, errors.New("MONGO_DB and MONGO_COLLECTION must not be empty")
		}
	case BackendS3:
		if strings.TrimSpace(cfg.S3.Bucket) == "" || strings.TrimSpace(cfg.S3.Region) == "" {
			return cfg, errors.New("S3_BUCKET and AWS_REGION must not be empty")
		}
	case BackendSQLite:
	default:
		return cfg, fmt.Errorf("STORAGE_BACKEND must be one of: file, mongo, s3, sqlite (got %q)", cfg.Backend)
	}

	if (cfg.Backend == BackendSQLite || cfg.IdempotencyEnabled) && strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.Notify.SMTPPort <= 0 {
		return cfg, errors.New("SMTP_PORT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
