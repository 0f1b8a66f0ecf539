// Package config handles configuration loading for underbudget-auth.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Files ending in .toml are decoded as TOML; everything else is
// treated as YAML. Missing optional values receive defaults before Validate
// runs.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from UNDERBUDGET_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/underbudget/auth.yaml (or ~/.config/underbudget/auth.yaml)
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${UNDERBUDGET_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # REST API
//	  grpc_addr: "0.0.0.0:50051"  # token verification for sibling services (optional)
//
//	database:
//	  driver: "sqlite"            # sqlite, sqlite3, pgx
//	  path: "/var/lib/underbudget/auth.db"
//	  dsn: "postgres://..."       # pgx only
//
//	auth:
//	  jwt_secret: "${UNDERBUDGET_JWT_SECRET}"  # at least 32 bytes
//	  token_lifetime: "24h"
//	  registry_timeout: "2s"
//	  token_retention: "720h"
//	  prune_interval: "1h"
//	  bcrypt_cost: 10
//	  login_rate_per_minute: 10
//	  login_burst: 5
//	  denylist_size: 10000
//
//	tailscale:
//	  enabled: false
//	  hostname: "underbudget"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: true
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
