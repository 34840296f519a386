package goSession

import (
	"testing"
	"time"

	"github.com/MrEthical07/goSession/store/memory"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "test config valid", mutate: func(*Config) {}, wantValid: true},
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:      "jwt leeway invalid",
			mutate:    func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
			wantValid: false,
		},
		{
			name:      "access ttl zero",
			mutate:    func(c *Config) { c.JWT.AccessTTL = 0 },
			wantValid: false,
		},
		{
			name:      "refresh shorter than access",
			mutate:    func(c *Config) { c.JWT.RefreshTTL = time.Second },
			wantValid: false,
		},
		{
			name:      "missing access secret",
			mutate:    func(c *Config) { c.JWT.AccessSecret = nil },
			wantValid: false,
		},
		{
			name:      "missing refresh secret",
			mutate:    func(c *Config) { c.JWT.RefreshSecret = nil },
			wantValid: false,
		},
		{
			name:      "argon2 memory too low",
			mutate:    func(c *Config) { c.Password.Memory = 1024 },
			wantValid: false,
		},
		{
			name: "bcrypt valid",
			mutate: func(c *Config) {
				c.Password.Algorithm = "bcrypt"
				c.Password.BcryptCost = 10
			},
			wantValid: true,
		},
		{
			name: "bcrypt cost too low",
			mutate: func(c *Config) {
				c.Password.Algorithm = "bcrypt"
				c.Password.BcryptCost = 4
			},
			wantValid: false,
		},
		{
			name:      "unknown algorithm",
			mutate:    func(c *Config) { c.Password.Algorithm = "md5" },
			wantValid: false,
		},
		{
			name:      "min length zero",
			mutate:    func(c *Config) { c.Password.MinLength = 0 },
			wantValid: false,
		},
		{
			name:      "store timeout zero",
			mutate:    func(c *Config) { c.Store.Timeout = 0 },
			wantValid: false,
		},
		{
			name:      "login throttle without attempts",
			mutate:    func(c *Config) { c.Security.MaxLoginAttempts = 0 },
			wantValid: false,
		},
		{
			name: "login throttle disabled ignores attempts",
			mutate: func(c *Config) {
				c.Security.EnableLoginThrottle = false
				c.Security.MaxLoginAttempts = 0
			},
			wantValid: true,
		},
		{
			name:      "refresh throttle without cooldown",
			mutate:    func(c *Config) { c.Security.RefreshCooldownDuration = 0 },
			wantValid: false,
		},
		{
			name:      "throttle without prefix",
			mutate:    func(c *Config) { c.Security.RedisPrefix = "" },
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigNeedsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without secrets must not validate")
	}
	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected default TTLs %v/%v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
}

func TestWithConfigCopiesSecrets(t *testing.T) {
	cfg := testConfig()
	b := New().WithConfig(cfg)
	cfg.JWT.AccessSecret[0] ^= 0xff

	if b.config.JWT.AccessSecret[0] == cfg.JWT.AccessSecret[0] {
		t.Fatal("builder must not alias caller secrets")
	}
}

func TestBuildRequirements(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("Build without a store must fail")
	}

	same := testConfig()
	same.JWT.RefreshSecret = same.JWT.AccessSecret
	if _, err := New().WithConfig(same).WithStore(memory.New()).Build(); err == nil {
		t.Fatal("identical access and refresh secrets must be rejected")
	}

	weak := testConfig()
	weak.JWT.AccessSecret = []byte("short")
	if _, err := New().WithConfig(weak).WithStore(memory.New()).Build(); err == nil {
		t.Fatal("short secrets must be rejected")
	}

	b := New().WithConfig(testConfig()).WithStore(memory.New())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("a builder must be single use")
	}
}
