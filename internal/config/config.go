package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr         = ":8000"
	defaultDatabaseURL      = "cognis.db"
	defaultStoragePath      = "./data/uploads"
	defaultJWTSecret        = "change-me-jwt-secret"
	defaultJWTAlgorithm     = "HS256"
	defaultAccessTTLMinutes = "60"
	defaultEmbeddingModel   = "all-MiniLM-L6-v2"
	defaultMaxUploadSize    = "1073741824" // 1 GiB
	defaultAuditQueueSize   = "256"
	defaultLoginRateLimit   = "10"
	defaultLoginRateWindow  = "1m"
	defaultShutdownTimeout  = "10s"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL string
	RedisURL    string
	StoragePath string

	JWTSecret    string
	JWTAlgorithm string
	JWTAccessTTL time.Duration

	// Not used by request handling; kept so deployments can configure them
	// ahead of semantic search.
	EmbeddingModel string
	GeminiAPIKey   string

	MaxUploadSize   int64
	AuditQueueSize  int
	LoginRateLimit  int
	LoginRateWindow time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For. Empty trusts none, so the
	// client IP is the TCP peer.
	TrustedProxies []string

	OTLPEndpoint string
	OTLPInsecure bool
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.StoragePath = strings.TrimSpace(getEnv("LOCAL_STORAGE_PATH", defaultStoragePath))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(getEnv("JWT_ALGORITHM", defaultJWTAlgorithm)))

	minutes, err := parseIntEnv("ACCESS_TOKEN_EXPIRE_MINUTES", defaultAccessTTLMinutes)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = time.Duration(minutes) * time.Minute

	cfg.EmbeddingModel = strings.TrimSpace(getEnv("EMBEDDING_MODEL", defaultEmbeddingModel))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	maxUpload, err := parseIntEnv("MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSize = int64(maxUpload)

	if cfg.AuditQueueSize, err = parseIntEnv("AUDIT_QUEUE_SIZE", defaultAuditQueueSize); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = parseIntEnv("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return nil, err
	}
	if cfg.LoginRateWindow, err = parseDurationEnv("LOGIN_RATE_WINDOW", defaultLoginRateWindow); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))

	cfg.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.OTLPInsecure = parseBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s storage=%s jwt_alg=%s access_ttl=%s redis=%t otlp=%t",
		cfg.AppEnv, cfg.HTTPAddr, cfg.StoragePath, cfg.JWTAlgorithm, cfg.JWTAccessTTL, cfg.RedisURL != "", cfg.OTLPEndpoint != "")

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("LOCAL_STORAGE_PATH must not be empty")
	}
	switch cfg.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM must be one of: HS256, HS384, HS512")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be > 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}
	if cfg.AuditQueueSize < 0 {
		return fmt.Errorf("AUDIT_QUEUE_SIZE must be >= 0")
	}
	if cfg.LoginRateLimit <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must be > 0")
	}
	if cfg.LoginRateWindow <= 0 {
		return fmt.Errorf("LOGIN_RATE_WINDOW must be > 0")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if len(cfg.JWTSecret) < 32 {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least 32 bytes")
		}
	}

	return nil
}

// IsProdLike reports whether env names a production deployment.
func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
