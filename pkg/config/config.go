package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the environment-driven configuration surface for the grounded
// search service.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	ProxyURL       string
	CacheTTL       time.Duration
	CacheMaxSize   int
	RetryCount     int
	RetryDelay     time.Duration
	SearchDelayMin time.Duration
	SearchDelayMax time.Duration
	Port           string
}

func Load() *Config {
	return &Config{
		APIKey:         getEnv("GEMINI_API_KEY", ""),
		Model:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		ProxyURL:       getEnv("GEMINI_PROXY_URL", ""),
		CacheTTL:       getEnvAsSeconds("GEMINI_CACHE_TTL", 3600),
		CacheMaxSize:   getEnvAsInt("GEMINI_CACHE_MAXSIZE", 100),
		RetryCount:     getEnvAsInt("GEMINI_RETRY_COUNT", 3),
		RetryDelay:     getEnvAsSeconds("GEMINI_RETRY_DELAY", 5),
		SearchDelayMin: getEnvAsSeconds("GEMINI_SEARCH_DELAY_MIN", 0),
		SearchDelayMax: getEnvAsSeconds("GEMINI_SEARCH_DELAY_MAX", 0),
		Port:           getEnv("PORT", "8081"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSeconds reads a float number of seconds, matching the units the
// environment surface documents.
func getEnvAsSeconds(key string, defaultSeconds float64) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Duration(defaultSeconds * float64(time.Second))
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return time.Duration(defaultSeconds * float64(time.Second))
	}
	return time.Duration(value * float64(time.Second))
}
