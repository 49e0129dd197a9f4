// Package config loads application configuration from environment
// variables with sensible defaults.
package config
