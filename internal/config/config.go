package config

import (
	"os"
)

// Config holds application configuration read from the environment.
type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	BaseURL           string
	GeminiAPIKey      string
	AllowRegistration bool
	AllowOversell     bool // when true, sales may drive stock negative (backorder mode)
}

// Load reads configuration from environment variables with reasonable defaults.
// Call godotenv.Load() before this if a .env file should be honoured.
func Load() Config {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	return Config{
		HTTPPort:          port,
		DatabaseDSN:       os.Getenv("DB_DSN"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		BaseURL:           baseURL,
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		AllowRegistration: os.Getenv("ALLOW_REGISTRATION") == "true",
		AllowOversell:     os.Getenv("ALLOW_OVERSELL") == "true",
	}
}
