package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	APIBaseURL     string
	StateDir       string
	ExportDir      string
	IdleTimeout    time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	LogRequests    bool
}

func Load() Config {
	return Config{
		APIBaseURL:     getenv("API_BASE_URL", "http://127.0.0.1:8000"),
		StateDir:       getenv("STATE_DIR", defaultStateDir()),
		ExportDir:      getenv("EXPORT_DIR", "."),
		IdleTimeout:    getenvDuration("IDLE_TIMEOUT", 15*time.Minute),
		PollInterval:   getenvDuration("POLL_INTERVAL", 5*time.Second),
		RequestTimeout: getenvDuration("REQUEST_TIMEOUT", 30*time.Second),
		LogRequests:    getenvBool("REQUEST_LOG", false),
	}
}

func defaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".esp32-console"
	}
	return filepath.Join(base, "esp32-console")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
