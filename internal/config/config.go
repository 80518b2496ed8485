package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cesargomez89/mediasync/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string

	AniListURL     string
	MALURL         string
	TMDBURL        string
	SteamAPIURL    string
	SteamStoreURL  string
	RAWGURL        string
	GoogleBooksURL string

	TMDBAPIKey        string
	RAWGAPIKey        string
	SteamAPIKey       string
	GoogleBooksAPIKey string

	CacheTTL      time.Duration
	SearchTimeout time.Duration
	SyncTimeout   time.Duration
	FanoutLimit   int
	ProviderRPS   float64

	// MockCatalogs serves canned catalog payloads instead of calling
	// providers. Local development only.
	MockCatalogs bool
}

// Load loads configuration from environment variables with defaults.
// A .env file in the working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", constants.DefaultPort),
		DBPath:    getEnv("DB_PATH", constants.DefaultDBPath),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AniListURL:     getEnv("ANILIST_URL", constants.DefaultAniListURL),
		MALURL:         getEnv("MAL_URL", constants.DefaultMALURL),
		TMDBURL:        getEnv("TMDB_URL", constants.DefaultTMDBURL),
		SteamAPIURL:    getEnv("STEAM_API_URL", constants.DefaultSteamAPIURL),
		SteamStoreURL:  getEnv("STEAM_STORE_URL", constants.DefaultSteamStoreURL),
		RAWGURL:        getEnv("RAWG_URL", constants.DefaultRAWGURL),
		GoogleBooksURL: getEnv("GOOGLE_BOOKS_URL", constants.DefaultGoogleBooksURL),

		TMDBAPIKey:        getEnv("TMDB_API_KEY", ""),
		RAWGAPIKey:        getEnv("RAWG_API_KEY", ""),
		SteamAPIKey:       getEnv("STEAM_API_KEY", ""),
		GoogleBooksAPIKey: getEnv("GOOGLE_BOOKS_API_KEY", ""),

		CacheTTL:      getDuration("CACHE_TTL", constants.DefaultCacheTTL),
		SearchTimeout: getDuration("SEARCH_TIMEOUT", constants.DefaultSearchTimeout),
		SyncTimeout:   getDuration("SYNC_TIMEOUT", constants.DefaultSyncTimeout),
		FanoutLimit:   getInt("FANOUT_LIMIT", constants.DefaultFanoutLimit),
		ProviderRPS:   getFloat("PROVIDER_RPS", constants.DefaultProviderRPS),

		MockCatalogs: getBool("MOCK_CATALOGS", false),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate provider endpoints
	endpoints := []struct {
		key   string
		value string
	}{
		{"ANILIST_URL", c.AniListURL},
		{"MAL_URL", c.MALURL},
		{"TMDB_URL", c.TMDBURL},
		{"STEAM_API_URL", c.SteamAPIURL},
		{"STEAM_STORE_URL", c.SteamStoreURL},
		{"RAWG_URL", c.RAWGURL},
		{"GOOGLE_BOOKS_URL", c.GoogleBooksURL},
	}
	for _, ep := range endpoints {
		if ep.value == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", ep.key))
			continue
		}
		if u, err := url.Parse(ep.value); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("%s is not a valid URL: %s", ep.key, ep.value))
		}
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if c.SearchTimeout <= 0 {
		errors = append(errors, "SEARCH_TIMEOUT must be positive")
	}
	if c.SyncTimeout <= 0 {
		errors = append(errors, "SYNC_TIMEOUT must be positive")
	}
	if c.CacheTTL < 0 {
		errors = append(errors, "CACHE_TTL cannot be negative")
	}
	if c.FanoutLimit < 1 {
		errors = append(errors, fmt.Sprintf("FANOUT_LIMIT must be at least 1, got: %d", c.FanoutLimit))
	}
	if c.ProviderRPS <= 0 {
		errors = append(errors, fmt.Sprintf("PROVIDER_RPS must be positive, got: %g", c.ProviderRPS))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Malformed numeric values become invalid sentinels so Validate reports them.
func getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return -1
	}
	return f
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}
