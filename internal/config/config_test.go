package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "TRUSTED_PROXIES", "LOG_REDACT", "RATE_RPS", "STORAGE_BACKEND", "MONGO_URI", "S3_BUCKET", "S3_PREFIX", "AWS_REGION", "SMTP_HOST", "NOTIFY_TO"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend != BackendFile || cfg.File.Path != "submissions.jsonl" {
		t.Fatalf("file backend defaults unexpected: %+v", cfg)
	}
	if cfg.APIBasePath != "/api" {
		t.Fatalf("API base path default = %q, want /api", cfg.APIBasePath)
	}
	if cfg.Mongo.Database != "portfolio" || cfg.Mongo.Collection != "contact_submissions" {
		t.Fatalf("mongo defaults unexpected: %+v", cfg.Mongo)
	}
	if cfg.S3.Region != "ap-south-1" || cfg.S3.Bucket != "contact-form-submissions" || cfg.S3.Prefix != "contact-form-submissions" {
		t.Fatalf("s3 defaults unexpected: %+v", cfg.S3)
	}
	if !cfg.IdempotencyEnabled || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("idempotency defaults unexpected: %v %v", cfg.IdempotencyEnabled, cfg.IdempotencyTTL)
	}
	if cfg.Notify.Enabled() {
		t.Fatalf("notify should be disabled by default")
	}
	if len(cfg.CORS.AllowedOrigins) != 0 {
		t.Fatalf("CORS allowlist should be empty (allow all) by default")
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default: %v", cfg.TrustedProxies)
	}
	if !cfg.LogRedact {
		t.Fatalf("access log redaction should be on by default")
	}
}

func TestLoad_ProxiesRedactAndRateLimitOff(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")
	t.Setenv("LOG_REDACT", "false")
	t.Setenv("RATE_RPS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.TrustedProxies, []string{"10.0.0.0/8", "127.0.0.1"}) {
		t.Fatalf("trusted proxies = %#v", cfg.TrustedProxies)
	}
	if cfg.LogRedact {
		t.Fatalf("LOG_REDACT=false should disable redaction")
	}
	if cfg.RateRPS != 0 {
		t.Fatalf("RATE_RPS=0 should be accepted as disabled, got %v", cfg.RateRPS)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("GIN_MODE", "weird") // normalizes to release
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("LOG_FILE", " /var/log/contact.log ")
	t.Setenv("API_BASE_PATH", "api/")
	t.Setenv("STORAGE_BACKEND", " S3 ")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("S3_BUCKET", "forms")
	t.Setenv("S3_PREFIX", "/inbox/")
	t.Setenv("S3_FORCE_PATH_STYLE", "on")
	t.Setenv("RATE_RPS", "x") // bad parse -> default
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("NOTIFY_TO", "me@example.com, you@example.com")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || cfg.LogFile != "/var/log/contact.log" || cfg.APIBasePath != "/api" {
		t.Fatalf("logging fields unexpected: %+v", cfg)
	}
	if cfg.Backend != BackendS3 || cfg.S3.Region != "eu-west-1" || cfg.S3.Bucket != "forms" || cfg.S3.Prefix != "inbox" || !cfg.S3.ForcePathStyle {
		t.Fatalf("s3 fields unexpected: %+v", cfg.S3)
	}
	if cfg.RateRPS != 1.0 {
		t.Fatalf("RATE_RPS fallback = %v", cfg.RateRPS)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Notify.Enabled() || !reflect.DeepEqual(cfg.Notify.To, []string{"me@example.com", "you@example.com"}) {
		t.Fatalf("notify unexpected: %+v", cfg.Notify)
	}
	if cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel sample ratio = %v", cfg.OTEL.SampleRatio)
	}
}

func TestLoad_S3PrefixFollowsBucket(t *testing.T) {
	t.Setenv("S3_BUCKET", "my-bucket")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.S3.Prefix != "my-bucket" {
		t.Fatalf("prefix = %q, want bucket name", cfg.S3.Prefix)
	}
}

func TestLoad_MongoBackend(t *testing.T) {
	t.Run("missing uri is a startup error", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "mongo")
		if _, err := Load(); err == nil || !containsErr(err, "MONGO_URI") {
			t.Fatalf("expected MONGO_URI error, got %v", err)
		}
	})
	t.Run("uri present", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "mongo")
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cfg.Mongo.URI != "mongodb://localhost:27017" || cfg.Mongo.ConnectTimeout != 10*time.Second {
			t.Fatalf("mongo unexpected: %+v", cfg.Mongo)
		}
	})
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name, key, val, want string
	}{
		{"invalid LOG_LEVEL", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"empty PORT via spaces", "PORT", "   ", "PORT must not be empty"},
		{"non-positive timeouts", "READ_TIMEOUT", "0s", "timeouts must be positive"},
		{"max header bytes <= 0", "MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"max body bytes <= 0", "MAX_BODY_BYTES", "-1", "MAX_BODY_BYTES"},
		{"unknown backend", "STORAGE_BACKEND", "ftp", "STORAGE_BACKEND"},
		{"empty submissions file", "SUBMISSIONS_FILE", "   ", "SUBMISSIONS_FILE"},
		{"empty DB_PATH", "DB_PATH", "   ", "DB_PATH must not be empty"},
		{"rate rps negative", "RATE_RPS", "-1", "RATE_RPS"},
		{"rate burst < 1", "RATE_BURST", "0", "RATE_BURST"},
		{"hsts max age negative", "HSTS_MAX_AGE", "-1s", "HSTS_MAX_AGE"},
		{"idempotency ttl non-positive", "IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"smtp port", "SMTP_PORT", "0", "SMTP_PORT"},
		{"otel sample ratio out of range", "OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !containsErr(err, tc.want) {
				t.Fatalf("expected %q error, got: %v", tc.want, err)
			}
		})
	}
}

func TestLoad_DBPathOnlyRequiredWhenUsed(t *testing.T) {
	t.Setenv("DB_PATH", "   ")
	t.Setenv("IDEMPOTENCY_ENABLED", "false")
	if _, err := Load(); err != nil {
		t.Fatalf("file backend without idempotency should not need DB_PATH: %v", err)
	}
	t.Setenv("STORAGE_BACKEND", "sqlite")
	if _, err := Load(); err == nil || !containsErr(err, "DB_PATH") {
		t.Fatalf("sqlite backend should require DB_PATH, got %v", err)
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", " no ", "N", "off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_GARBAGE", "maybe")
	if !getbool("B_GARBAGE", true) {
		t.Fatalf("unparseable bool should fall back to default")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: %#v", got)
	}
	for in, want := range map[string]string{"": "/", "api": "/api", "/api/": "/api", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
