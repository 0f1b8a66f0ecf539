// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "auth.yaml", `
server:
  http_addr: "0.0.0.0:8080"
  grpc_addr: "0.0.0.0:50051"

database:
  driver: "sqlite"
  path: "./auth.db"

auth:
  jwt_secret: "`+testSecret+`"
  token_lifetime: "12h"
  registry_timeout: "500ms"
  bcrypt_cost: 12

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	want := &Config{
		Server:   ServerConfig{HTTPAddr: "0.0.0.0:8080", GRPCAddr: "0.0.0.0:50051"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "./auth.db"},
		Auth: AuthConfig{
			JWTSecret:          testSecret,
			BcryptCost:         12,
			LoginRatePerMinute: DefaultLoginRatePerMinute,
			LoginBurst:         DefaultLoginBurst,
			DenylistSize:       DefaultDenylistSize,
			TokenLifetime:      12 * time.Hour,
			RegistryTimeout:    500 * time.Millisecond,
			TokenRetention:     DefaultTokenRetention,
			PruneInterval:      DefaultPruneInterval,
			TokenLifetimeRaw:   "12h",
			RegistryTimeoutRaw: "500ms",
		},
		Logging: LoggingConfig{Level: "debug", Format: "json"},
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "auth.toml", `
[server]
http_addr = "127.0.0.1:9000"

[database]
driver = "pgx"
dsn = "postgres://budget@localhost/budget"

[auth]
jwt_secret = "`+testSecret+`"
token_retention = "48h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://budget@localhost/budget", cfg.Database.DataSource())
	assert.Equal(t, 48*time.Hour, cfg.Auth.TokenRetention)
	assert.Equal(t, DefaultTokenLifetime, cfg.Auth.TokenLifetime)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("UNDERBUDGET_TEST_SECRET", testSecret)
	t.Setenv("UNDERBUDGET_TEST_DB", "/tmp/from-env.db")

	path := writeConfig(t, "auth.yaml", `
database:
  path: "${UNDERBUDGET_TEST_DB}"
auth:
  jwt_secret: "${UNDERBUDGET_TEST_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.Path)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth.yaml", `
database:
  path: "auth.db"
auth:
  jwt_secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.HTTPAddr)
	assert.Empty(t, cfg.Server.GRPCAddr)
	assert.Equal(t, DefaultDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultTokenLifetime, cfg.Auth.TokenLifetime)
	assert.Equal(t, DefaultRegistryTimeout, cfg.Auth.RegistryTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "auth.yaml", `
database:
  path: "auth.db"
auth:
  jwt_secret: "`+testSecret+`"
  token_lifetime: "forever"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_lifetime")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{HTTPAddr: ":8080"},
			Database: DatabaseConfig{Driver: "sqlite", Path: "auth.db"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Logging:  LoggingConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "http_addr"},
		{"tailscale without hostname", func(c *Config) { c.Tailscale.Enabled = true }, "tailscale.hostname"},
		{"tailscale replaces http addr", func(c *Config) {
			c.Server.HTTPAddr = ""
			c.Tailscale = TailscaleConfig{Enabled: true, Hostname: "underbudget"}
		}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, "not supported"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"pgx without dsn", func(c *Config) { c.Database.Driver = "pgx" }, "database.dsn"},
		{"negative duration", func(c *Config) { c.Auth.TokenLifetime = -time.Second }, "negative"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("UNDERBUDGET_CONFIG", "/etc/underbudget/custom.yaml")
	assert.Equal(t, "/etc/underbudget/custom.yaml", DefaultPath())

	t.Setenv("UNDERBUDGET_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "underbudget", "auth.yaml"), DefaultPath())
}
