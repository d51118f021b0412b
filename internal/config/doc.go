// Package config handles configuration loading for pairchat.
//
// # Overview
//
// Configuration is loaded from a YAML file, or a TOML file when the name ends
// in ".toml", with environment variable expansion, duration parsing, defaults,
// and validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PAIRCHAT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/pairchat/config.yaml
//  3. ~/.config/pairchat/config.yaml
//
// "pairchat init" writes a starter file with a random JWT secret.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PAIRCHAT_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "24h"
//	server:
//	  shutdown_timeout: "5s"
//
// # Relative Paths
//
// database.path and client.session_path are resolved relative to the
// directory holding the config file.
//
// # Validation
//
// Load fails on a missing or short auth.jwt_secret, a client.server_url
// without an http or https scheme, or an unknown logging level or format.
package config
