// ABOUTME: init subcommand that writes a starter config with a random signing secret
// ABOUTME: The generated file is parsed back before it is written so it always loads

package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/vimofthevine/underbudget-auth/internal/config"
)

// initOptions are the values written by runInit.
type initOptions struct {
	DBPath   string
	HTTPAddr string
	GRPCAddr string
	Force    bool
}

func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "auth.db"
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "underbudget", "auth.db")
}

func runInit(args []string) error {
	var configPath string
	var opts initOptions
	fs := newFlagSet("init", &configPath)
	fs.StringVar(&opts.DBPath, "db", defaultDBPath(), "SQLite database path")
	fs.StringVar(&opts.HTTPAddr, "http", config.DefaultHTTPAddr, "HTTP listen address")
	fs.StringVar(&opts.GRPCAddr, "grpc", "", "gRPC listen address for the token service (disabled when empty)")
	fs.BoolVarP(&opts.Force, "force", "f", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := writeConfig(configPath, opts); err != nil {
		return err
	}

	color.Green("  ✓ Created config: %s", configPath)
	fmt.Printf("  Database: %s\n", opts.DBPath)
	fmt.Println()
	fmt.Println("  To start the server:")
	fmt.Println("    underbudget serve")
	return nil
}

// generateSecret returns a base64 encoded 32 byte random secret.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating signing secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func writeConfig(path string, opts initOptions) error {
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	cfg := config.Config{
		Server: config.ServerConfig{
			HTTPAddr: opts.HTTPAddr,
			GRPCAddr: opts.GRPCAddr,
		},
		Database: config.DatabaseConfig{
			Driver: config.DefaultDriver,
			Path:   opts.DBPath,
		},
		Auth: config.AuthConfig{
			JWTSecret:          secret,
			LoginRatePerMinute: config.DefaultLoginRatePerMinute,
			LoginBurst:         config.DefaultLoginBurst,
			DenylistSize:       config.DefaultDenylistSize,
			TokenLifetimeRaw:   config.DefaultTokenLifetime.String(),
			RegistryTimeoutRaw: config.DefaultRegistryTimeout.String(),
			TokenRetentionRaw:  config.DefaultTokenRetention.String(),
			PruneIntervalRaw:   config.DefaultPruneInterval.String(),
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}

	body, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	data := append([]byte("# underbudget auth configuration\n# Generated by underbudget init\n\n"), body...)

	if _, err := config.Parse(".yaml", data); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
