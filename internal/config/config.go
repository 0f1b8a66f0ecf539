// ABOUTME: Configuration loading and parsing for underbudget-auth
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MinSecretLength is the minimum accepted length of auth.jwt_secret in bytes.
const MinSecretLength = 32

// Config represents the complete underbudget-auth configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration.
// GRPCAddr is optional; the token verification service is disabled when empty.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`
}

// DatabaseConfig holds database configuration.
// Driver is one of "sqlite" (pure Go), "sqlite3" (cgo) or "pgx" (PostgreSQL).
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// AuthConfig holds authentication and token lifecycle configuration
type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret" toml:"jwt_secret"`
	BcryptCost         int    `yaml:"bcrypt_cost" toml:"bcrypt_cost"`
	LoginRatePerMinute int    `yaml:"login_rate_per_minute" toml:"login_rate_per_minute"`
	LoginBurst         int    `yaml:"login_burst" toml:"login_burst"`
	DenylistSize       int    `yaml:"denylist_size" toml:"denylist_size"`

	TokenLifetime   time.Duration `yaml:"-" toml:"-"`
	RegistryTimeout time.Duration `yaml:"-" toml:"-"`
	TokenRetention  time.Duration `yaml:"-" toml:"-"`
	PruneInterval   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	TokenLifetimeRaw   string `yaml:"token_lifetime" toml:"token_lifetime"`
	RegistryTimeoutRaw string `yaml:"registry_timeout" toml:"registry_timeout"`
	TokenRetentionRaw  string `yaml:"token_retention" toml:"token_retention"`
	PruneIntervalRaw   string `yaml:"prune_interval" toml:"prune_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Defaults applied to fields left empty in the config file.
const (
	DefaultHTTPAddr           = "localhost:8080"
	DefaultDriver             = "sqlite"
	DefaultTokenLifetime      = 24 * time.Hour
	DefaultRegistryTimeout    = 2 * time.Second
	DefaultTokenRetention     = 30 * 24 * time.Hour
	DefaultPruneInterval      = time.Hour
	DefaultLoginRatePerMinute = 10
	DefaultLoginBurst         = 5
	DefaultDenylistSize       = 10000
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw config content. ext selects the format (".toml" or YAML otherwise).
func Parse(ext string, data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(ext, ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Auth.TokenLifetime == 0 {
		c.Auth.TokenLifetime = DefaultTokenLifetime
	}
	if c.Auth.RegistryTimeout == 0 {
		c.Auth.RegistryTimeout = DefaultRegistryTimeout
	}
	if c.Auth.TokenRetention == 0 {
		c.Auth.TokenRetention = DefaultTokenRetention
	}
	if c.Auth.PruneInterval == 0 {
		c.Auth.PruneInterval = DefaultPruneInterval
	}
	if c.Auth.LoginRatePerMinute == 0 {
		c.Auth.LoginRatePerMinute = DefaultLoginRatePerMinute
	}
	if c.Auth.LoginBurst == 0 {
		c.Auth.LoginBurst = DefaultLoginBurst
	}
	if c.Auth.DenylistSize == 0 {
		c.Auth.DenylistSize = DefaultDenylistSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", c.Database.Driver)
		}
	case "pgx", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}

	if len(c.Auth.JWTSecret) < MinSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinSecretLength)
	}

	if c.Auth.TokenLifetime < 0 || c.Auth.RegistryTimeout < 0 || c.Auth.TokenRetention < 0 || c.Auth.PruneInterval < 0 {
		return fmt.Errorf("auth durations must not be negative")
	}

	if c.Auth.LoginRatePerMinute < 0 || c.Auth.LoginBurst < 0 {
		return fmt.Errorf("auth.login_rate_per_minute and auth.login_burst must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (text or json)", c.Logging.Format)
	}

	return nil
}

// DataSource returns the driver-specific connection string.
func (d DatabaseConfig) DataSource() string {
	if d.Driver == "pgx" || d.Driver == "postgres" {
		return d.DSN
	}
	return d.Path
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"token_lifetime", cfg.Auth.TokenLifetimeRaw, &cfg.Auth.TokenLifetime},
		{"registry_timeout", cfg.Auth.RegistryTimeoutRaw, &cfg.Auth.RegistryTimeout},
		{"token_retention", cfg.Auth.TokenRetentionRaw, &cfg.Auth.TokenRetention},
		{"prune_interval", cfg.Auth.PruneIntervalRaw, &cfg.Auth.PruneInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}

// DefaultPath resolves the config file location.
// Priority: UNDERBUDGET_CONFIG env var > XDG_CONFIG_HOME/underbudget/auth.yaml > ~/.config/underbudget/auth.yaml
func DefaultPath() string {
	if p := os.Getenv("UNDERBUDGET_CONFIG"); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "auth.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "underbudget", "auth.yaml")
}
