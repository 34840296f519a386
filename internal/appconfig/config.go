// Package appconfig loads the gosessiond configuration from an optional YAML
// file and GOSESSION_* environment variables.
package appconfig

import (
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/obs"
	"github.com/MrEthical07/goSession/store/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTP struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	AccessSecret   string        `mapstructure:"access_secret"`
	RefreshSecret  string        `mapstructure:"refresh_secret"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	Leeway         time.Duration `mapstructure:"leeway"`
	HashAlgorithm  string        `mapstructure:"hash_algorithm"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	MinPasswordLen int           `mapstructure:"min_password_length"`
}

// Store selects the user store driver: memory, redis, postgres or nats.
type Store struct {
	Driver  string        `mapstructure:"driver"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type Postgres struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (p *Postgres) AsPoolConfig() postgres.Config {
	return postgres.Config{
		URL:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		QueryTimeout:      p.QueryTimeout,
	}
}

type NATS struct {
	URL            string        `mapstructure:"url"`
	Prefix         string        `mapstructure:"prefix"`
	Queue          string        `mapstructure:"queue"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
	// Backend is the store the user-service responder serves: memory or postgres.
	Backend string `mapstructure:"backend"`
}

type Throttle struct {
	Login           bool          `mapstructure:"login"`
	IP              bool          `mapstructure:"ip"`
	Refresh         bool          `mapstructure:"refresh"`
	MaxLogin        int           `mapstructure:"max_login_attempts"`
	LoginCooldown   time.Duration `mapstructure:"login_cooldown"`
	MaxRefresh      int           `mapstructure:"max_refresh_attempts"`
	RefreshCooldown time.Duration `mapstructure:"refresh_cooldown"`
}

type Audit struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type Metrics struct {
	Enabled    bool `mapstructure:"enabled"`
	Histograms bool `mapstructure:"histograms"`
}

type OTEL struct {
	Enable       bool          `mapstructure:"enable"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	ServiceName  string        `mapstructure:"service_name"`
	Interval     time.Duration `mapstructure:"interval"`
	Insecure     bool          `mapstructure:"insecure"`
}

func (oc *OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		Interval:    oc.Interval,
		Insecure:    oc.Insecure,
	}
}

type Config struct {
	App      App      `mapstructure:"app"`
	HTTP     HTTP     `mapstructure:"http"`
	Log      Log      `mapstructure:"log"`
	Auth     Auth     `mapstructure:"auth"`
	Store    Store    `mapstructure:"store"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
	NATS     NATS     `mapstructure:"nats"`
	Throttle Throttle `mapstructure:"throttle"`
	Audit    Audit    `mapstructure:"audit"`
	Metrics  Metrics  `mapstructure:"metrics"`
	OTEL     OTEL     `mapstructure:"otel"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

// ToEngineConfig maps the daemon settings onto the engine defaults. Argon2
// parameters keep their library defaults.
func (c *Config) ToEngineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()

	cfg.JWT.AccessSecret = []byte(c.Auth.AccessSecret)
	cfg.JWT.RefreshSecret = []byte(c.Auth.RefreshSecret)
	cfg.JWT.AccessTTL = c.Auth.AccessTTL
	cfg.JWT.RefreshTTL = c.Auth.RefreshTTL
	cfg.JWT.Issuer = c.Auth.Issuer
	cfg.JWT.Leeway = c.Auth.Leeway

	if c.Auth.HashAlgorithm != "" {
		cfg.Password.Algorithm = c.Auth.HashAlgorithm
	}
	if c.Auth.BcryptCost > 0 {
		cfg.Password.BcryptCost = c.Auth.BcryptCost
	}
	if c.Auth.MinPasswordLen > 0 {
		cfg.Password.MinLength = c.Auth.MinPasswordLen
	}

	cfg.Store.Timeout = c.Store.Timeout

	cfg.Security.EnableLoginThrottle = c.Throttle.Login
	cfg.Security.EnableIPThrottle = c.Throttle.IP
	cfg.Security.EnableRefreshThrottle = c.Throttle.Refresh
	cfg.Security.MaxLoginAttempts = c.Throttle.MaxLogin
	cfg.Security.LoginCooldownDuration = c.Throttle.LoginCooldown
	cfg.Security.MaxRefreshAttempts = c.Throttle.MaxRefresh
	cfg.Security.RefreshCooldownDuration = c.Throttle.RefreshCooldown
	if c.Redis.Prefix != "" {
		cfg.Security.RedisPrefix = c.Redis.Prefix
	}

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Audit.BufferSize = c.Audit.BufferSize
	cfg.Audit.DropIfFull = c.Audit.DropIfFull

	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Histograms

	return cfg
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
