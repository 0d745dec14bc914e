// Package config holds app-wide constants and small env helpers.
package config

import "os"

// AppName doubles as the PostgreSQL schema name.
const AppName = "billplan"

// GetEnv returns the value of the environment variable or the fallback when
// unset or empty.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
