package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config is read from the environment after an optional .env file.
type Config struct {
	Port           string
	DBDriver       string
	DBDSN          string
	JWTSecret      string
	GeminiAPIKey   string
	GeminiBaseURL  string
	GeminiModel    string
	GeminiProModel string
	AllowedOrigins []string
	SeedFile       string
	StaticDir      string
}

// LoadConfig loads envFile into the environment, if it exists, and reads
// the configuration. Variables already set take precedence over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "3001"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:          getEnv("DB_DSN", "./vieira.db"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiBaseURL:  os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiProModel: getEnv("GEMINI_PRO_MODEL", "gemini-3-pro-preview"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		SeedFile:       os.Getenv("SEED_FILE"),
		StaticDir:      os.Getenv("STATIC_DIR"),
	}

	switch cfg.DBDriver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite3 or postgres)", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
