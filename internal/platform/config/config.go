package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration returns the time.Duration value of the environment variable
// named by key (e.g. "30m"), or fallback if unset, empty, or unparsable.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Config is the process configuration shared by the server and the CLI.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	FFmpegPath    string
	EngineTimeout time.Duration

	PublishedRoot string
	CatalogPath   string
	PublicBaseURL string
	PublicPrefix  string

	MaxConcurrentJobs int
	AuditSchedule     string
	AuditWorkers      int
}

// FromEnv builds a Config from the environment, applying defaults.
// AUDIT_SCHEDULE set to "off" disables scheduled audits.
func FromEnv() Config {
	schedule := GetEnv("AUDIT_SCHEDULE", "@every 1h")
	if schedule == "off" {
		schedule = ""
	}
	return Config{
		Port:              GetEnv("PORT", "8000"),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
		FFmpegPath:        GetEnv("FFMPEG_PATH", "ffmpeg"),
		EngineTimeout:     GetEnvDuration("ENGINE_TIMEOUT", 30*time.Minute),
		PublishedRoot:     GetEnv("PUBLISHED_ROOT", "./uploads/hls-videos"),
		CatalogPath:       GetEnv("CATALOG_PATH", "./videoLinks.txt"),
		PublicBaseURL:     GetEnv("PUBLIC_BASE_URL", "http://localhost:8000"),
		PublicPrefix:      GetEnv("PUBLIC_PREFIX", "uploads/hls-videos"),
		MaxConcurrentJobs: GetEnvInt("MAX_CONCURRENT_JOBS", 2),
		AuditSchedule:     schedule,
		AuditWorkers:      GetEnvInt("AUDIT_WORKERS", 4),
	}
}
