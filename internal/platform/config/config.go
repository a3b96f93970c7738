package config

import (
	"os"
	"strconv"
)

// Config captures everything the server needs from the environment.
type Config struct {
	Addr          string
	PostgresDSN   string // empty means in-memory store
	RedisAddr     string // empty disables the stats cache
	UploadDir     string
	InferenceURL  string // empty means no detection capability (degraded mode)
	JWTSigningKey string

	RenderScale      float64
	DefaultThreshold float64
	PageWorkers      int
	ReaperSchedule   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("DOCSCAN_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("DOCSCAN_POSTGRES_DSN"),
		RedisAddr:        os.Getenv("DOCSCAN_REDIS_ADDR"),
		UploadDir:        envOr("DOCSCAN_UPLOAD_DIR", "uploads/scans"),
		InferenceURL:     os.Getenv("DOCSCAN_INFERENCE_URL"),
		JWTSigningKey:    envOr("DOCSCAN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		RenderScale:      envFloatOr("DOCSCAN_RENDER_SCALE", 2.0),
		DefaultThreshold: envFloatOr("DOCSCAN_DEFAULT_THRESHOLD", 0.25),
		PageWorkers:      envIntOr("DOCSCAN_PAGE_WORKERS", 4),
		ReaperSchedule:   envOr("DOCSCAN_REAPER_SCHEDULE", "0 3 * * *"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
