// Package config loads runtime configuration for the todo-list CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or $CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   API server base URL
//	-w int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://localhost:3000/api",
//	  "request_timeout": "10s"
//	}
package config
