package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             int
	OTelServiceName  string
	OTelEndpoint     string
	Environment      string
	LayoutFile       string
	SnapshotDB       string
	ContinuityWindow time.Duration
	ShutdownTimeout  time.Duration
}

func Load() *Config {
	return &Config{
		Port:             envOrInt("PORT", 8080),
		OTelServiceName:  envOr("OTEL_SERVICE_NAME", "parking-engine"),
		OTelEndpoint:     envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Environment:      envOr("ENVIRONMENT", "development"),
		LayoutFile:       os.Getenv("LAYOUT_FILE"),
		SnapshotDB:       os.Getenv("SNAPSHOT_DB"),
		ContinuityWindow: envOrDuration("CONTINUITY_WINDOW", time.Hour),
		ShutdownTimeout:  envOrDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
