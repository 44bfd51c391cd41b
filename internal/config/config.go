package config

import (
	"os"
	"strings"
)

// Config carries process-level settings, all sourced from the environment.
// cmd entry points call godotenv.Load before Load so a local .env works.
type Config struct {
	HTTPAddr       string
	DatabaseURL    string
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	ServiceName    string
	AllowedOrigins []string
}

// Load reads the configuration from the environment with sane defaults.
// DatabaseURL has no default on purpose: connecting to the wrong database is
// worse than failing to start.
func Load() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getenv("KAFKA_TOPIC", "backoffice.movements"),
		ServiceName:    getenv("SERVICE_NAME", "backoffice"),
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
