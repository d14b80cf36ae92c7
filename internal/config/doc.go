// Package config handles configuration loading for coven-bot.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension),
// with environment variable expansion, defaults, environment overrides and
// validation, in that order.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	matrix:
//	  access_token: "${MATRIX_TOKEN}"
//
// # Environment Overrides
//
// Any field can be overridden with COVEN_BOT_<SECTION>_<FIELD>:
//
//	COVEN_BOT_MATRIX_ACCESS_TOKEN=syt_...
//	COVEN_BOT_DISPATCH_WORKERS=8
//	COVEN_BOT_MATRIX_ALLOWED_ROOMS='!a:example.org,!b:example.org'
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	dispatch:
//	  dedupe_ttl: "5m"
//	tasks:
//	  retention: "10m"
//	  reap_interval: "1m"
//
// # Configuration Sections
//
//	bot:
//	  name: "coven-bot"
//	  command_prefix: "!"
//	  owners: ["@admin:example.org"]
//
//	matrix:
//	  homeserver: "https://matrix.example.org"
//	  user_id: "@bot:example.org"
//	  access_token: "${MATRIX_TOKEN}"   # or username + password
//	  recovery_key: ""                  # verifies the device for E2EE
//	  crypto_database: ""               # enables E2EE when set
//	  allowed_rooms: []
//	  typing_indicator: true
//
//	server:
//	  http_addr: "127.0.0.1:8080"       # /health and /api/commands
//
//	database:
//	  path: "~/.local/share/coven/bot.db"
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text or json
package config
