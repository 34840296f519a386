package appconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ErrMissingAccessSecret  = ErrConfig("auth.access_secret is required")
	ErrMissingRefreshSecret = ErrConfig("auth.refresh_secret is required")
	ErrMissingPostgresDSN   = ErrConfig("postgres.dsn is required for the postgres driver")
	ErrMissingNATSURL       = ErrConfig("nats.url is required for the nats driver")
	ErrMissingRedisAddr     = ErrConfig("redis.addr is required for the redis driver")
)

// EnvPrefix namespaces environment overrides, e.g. GOSESSION_AUTH_ACCESS_SECRET.
const EnvPrefix = "GOSESSION"

// Load reads path when given, then applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gosessiond")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.graceful_timeout", "15s")
	v.SetDefault("http.request_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("auth.access_secret", "")
	v.SetDefault("auth.refresh_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.issuer", "gosession")
	v.SetDefault("auth.leeway", "0s")
	v.SetDefault("auth.hash_algorithm", "argon2id")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.min_password_length", 8)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.timeout", "3s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "gs")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 20)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "30m")
	v.SetDefault("postgres.max_conn_idle_time", "10m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.query_timeout", "2s")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.prefix", "gosession.users")
	v.SetDefault("nats.queue", "gosession-user-store")
	v.SetDefault("nats.handler_timeout", "2s")
	v.SetDefault("nats.backend", "postgres")

	v.SetDefault("throttle.login", true)
	v.SetDefault("throttle.ip", false)
	v.SetDefault("throttle.refresh", true)
	v.SetDefault("throttle.max_login_attempts", 5)
	v.SetDefault("throttle.login_cooldown", "15m")
	v.SetDefault("throttle.max_refresh_attempts", 20)
	v.SetDefault("throttle.refresh_cooldown", "1m")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.buffer_size", 1024)
	v.SetDefault("audit.drop_if_full", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.histograms", true)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")
	v.SetDefault("otel.service_name", "gosessiond")
	v.SetDefault("otel.interval", "10s")
	v.SetDefault("otel.insecure", false)
}

func (c *Config) check() error {
	if c.Auth.AccessSecret == "" {
		return ErrMissingAccessSecret
	}
	if c.Auth.RefreshSecret == "" {
		return ErrMissingRefreshSecret
	}
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return ErrMissingPostgresDSN
		}
	case "nats":
		if c.NATS.URL == "" {
			return ErrMissingNATSURL
		}
	default:
		return ErrConfig(fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	return nil
}
