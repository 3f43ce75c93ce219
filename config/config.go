package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// InsecureDefaultAdminPassword is the password the default admin gets when
// DEFAULT_ADMIN_PASSWORD is not set. Startup warns whenever it is in use.
const InsecureDefaultAdminPassword = "admin123"

// Config holds application configuration
type Config struct {
	DatabaseURL   string `mapstructure:"database_url"`
	RedisURL      string `mapstructure:"redis_url" validate:"required"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`

	// Dependency readiness
	DBWaitAddr    string        `mapstructure:"db_wait_addr" validate:"required,hostname_port"`
	RedisWaitAddr string        `mapstructure:"redis_wait_addr" validate:"required,hostname_port"`
	WaitInterval  time.Duration `mapstructure:"wait_interval" validate:"gt=0"`
	WaitTimeout   time.Duration `mapstructure:"wait_timeout" validate:"gte=0"`
	StartupDelay  time.Duration `mapstructure:"startup_delay" validate:"gte=0"`

	// Static assets
	StaticDirs []string `mapstructure:"static_dirs"`
	StaticRoot string   `mapstructure:"static_root" validate:"required"`

	// Default admin settings
	DefaultAdminUsername string `mapstructure:"default_admin_username" validate:"required,max=150"`
	DefaultAdminEmail    string `mapstructure:"default_admin_email" validate:"omitempty,email"`
	DefaultAdminPassword string `mapstructure:"default_admin_password" validate:"required"`

	// Application server
	BindAddress  string        `mapstructure:"bind_address" validate:"required,ip"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	Workers      int           `mapstructure:"workers" validate:"min=1,max=64"`
	ServerBinary string        `mapstructure:"server_binary" validate:"required"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" validate:"gt=0"`

	// Caching
	CacheTTL       time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	DetailCacheTTL time.Duration `mapstructure:"detail_cache_ttl" validate:"gt=0"`

	Environment       string `mapstructure:"app_env"`
	Debug             bool   `mapstructure:"debug"`
	EnableMetrics     bool   `mapstructure:"enable_metrics"`
	TrustProxyHeaders bool   `mapstructure:"trust_proxy_headers"`
	LogFormat         string `mapstructure:"log_format" validate:"oneof=console json"`

	// Browser origins allowed to call the JSON API. Empty disables CORS.
	AllowedOrigins []string `mapstructure:"cors_origins"`
}

var validate = validator.New()

// UsesDefaultAdminPassword reports whether the admin password was left at its insecure default
func (c *Config) UsesDefaultAdminPassword() bool {
	return c.DefaultAdminPassword == InsecureDefaultAdminPassword
}

// IsProduction reports whether APP_ENV names a production deployment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "redis:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("db_wait_addr", "db:5432")
	v.SetDefault("redis_wait_addr", "redis:6379")
	v.SetDefault("wait_interval", time.Second)
	v.SetDefault("wait_timeout", time.Duration(0))
	v.SetDefault("startup_delay", time.Duration(0))
	v.SetDefault("static_dirs", []string{"static"})
	v.SetDefault("static_root", "staticfiles")
	v.SetDefault("default_admin_username", "admin")
	v.SetDefault("default_admin_email", "admin@example.com")
	v.SetDefault("default_admin_password", InsecureDefaultAdminPassword)
	v.SetDefault("bind_address", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("workers", 3)
	v.SetDefault("server_binary", "/app/listings")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("detail_cache_ttl", time.Hour)
	v.SetDefault("app_env", "development")
	v.SetDefault("debug", false)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("trust_proxy_headers", false)
	v.SetDefault("log_format", "console")
	v.SetDefault("cors_origins", []string{})
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		// Try platform-provided Postgres envs first
		if built := buildDatabaseURLFromEnv(); built != "" {
			cfg.DatabaseURL = built
		} else {
			cfg.DatabaseURL = "postgres://postgres:postgres@db:5432/listings?sslmode=disable"
		}
	}

	rawRedis := cfg.RedisURL
	cfg.RedisURL = normalizeRedisAddress(rawRedis)
	cfg.RedisPassword = resolveRedisPassword(rawRedis, cfg.RedisPassword)
	cfg.StaticDirs = cleanList(cfg.StaticDirs)
	cfg.AllowedOrigins = cleanList(cfg.AllowedOrigins)
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.Environment)
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JWTSecret = secret
		// Exported so exec'd servers and prefork children sign with the same key.
		_ = os.Setenv("JWT_SECRET", secret)
	}

	return &cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// normalizeRedisAddress converts redis:// URLs into host[:port] that go-redis expects.
func normalizeRedisAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return trimmed
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if u.Host != "" {
		return u.Host
	}
	return trimmed
}

// resolveRedisPassword returns an explicit password if provided, otherwise pulls
// the password component from a redis:// URL when available.
func resolveRedisPassword(redisURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	trimmed := strings.TrimSpace(redisURL)
	if trimmed == "" || !strings.Contains(trimmed, "://") {
		return explicit
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		return explicit
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			return pw
		}
	}
	return explicit
}

// buildDatabaseURLFromEnv builds a postgres URL from the libpq-style PG* variables
// (and POSTGRES_* as set by the official postgres image).
func buildDatabaseURLFromEnv() string {
	host := strings.TrimSpace(os.Getenv("PGHOST"))
	if host == "" {
		host = strings.TrimSpace(os.Getenv("POSTGRES_HOST"))
	}
	user := strings.TrimSpace(os.Getenv("PGUSER"))
	if user == "" {
		user = strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	}
	pass := os.Getenv("PGPASSWORD") // may contain spaces/specials
	if pass == "" {
		pass = os.Getenv("POSTGRES_PASSWORD")
	}
	db := strings.TrimSpace(os.Getenv("PGDATABASE"))
	if db == "" {
		db = strings.TrimSpace(os.Getenv("POSTGRES_DB"))
	}
	if host == "" || user == "" || db == "" {
		return ""
	}
	port := strings.TrimSpace(os.Getenv("PGPORT"))
	if port == "" {
		port = "5432"
	}
	sslmode := strings.TrimSpace(os.Getenv("PGSSLMODE"))
	if sslmode == "" {
		sslmode = "disable"
	}
	u := &neturl.URL{
		Scheme: "postgres",
		User:   neturl.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := neturl.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
