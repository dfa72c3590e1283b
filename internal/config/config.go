// Package config loads the small set of settings the exchange daemon
// needs at startup. There is no configuration-file format or precedence
// chain to speak of; every field comes from an environment variable
// with a sane default, the way the teacher wires its server from two
// constructor arguments in main.go.
package config

import "os"

// Config holds everything cmd/exchanged needs to start serving traffic.
type Config struct {
	ListenAddr   string
	SnapshotPath string
	PostgresDSN  string
	RedisAddr    string
	JWTSecret    string
}

// FromEnv builds a Config from the process environment, falling back to
// development-friendly defaults for anything unset.
func FromEnv() Config {
	return Config{
		ListenAddr:   getenv("EXCHANGE_LISTEN_ADDR", ":8080"),
		SnapshotPath: getenv("EXCHANGE_SNAPSHOT_PATH", "snapshot.json"),
		PostgresDSN:  getenv("EXCHANGE_POSTGRES_DSN", "postgres://localhost:5432/exchange?sslmode=disable"),
		RedisAddr:    getenv("EXCHANGE_REDIS_ADDR", "localhost:6379"),
		JWTSecret:    getenv("EXCHANGE_JWT_SECRET", "development-secret-change-me"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
