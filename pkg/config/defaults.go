// Package config provides centralized default values for GarageHub
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database Configuration
	DBDriver                 string
	DBPath                   string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// Anonymous Session Tokens
	TokenIssuer       string
	TokenAudience     string
	TokenTTL          time.Duration
	TokenExpiryBuffer time.Duration
	JWTSecret         string

	// Client Configuration
	APIBaseURL        string
	StatusFeedURL     string
	ClientHTTPTimeout time.Duration
	TokenStorageKey   string

	// Geolocation
	GeoThrottleWindow time.Duration
	GeoAcquireTimeout time.Duration
	GeoEndpointURL    string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "garagehub.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// Anonymous Session Tokens
	TokenIssuer = getEnvString("TOKEN_ISSUER", "garagehub")
	TokenAudience = getEnvString("TOKEN_AUDIENCE", "garagehub-storefront")
	TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	TokenExpiryBuffer = getEnvDuration("TOKEN_EXPIRY_BUFFER", 60*time.Second)
	JWTSecret = getEnvString("JWT_SECRET", "")

	// Client
	APIBaseURL = getEnvString("API_BASE_URL", "http://localhost:8080")
	StatusFeedURL = getEnvString("STATUS_FEED_URL", "")
	ClientHTTPTimeout = getEnvDuration("CLIENT_HTTP_TIMEOUT", 30*time.Second)
	TokenStorageKey = getEnvString("TOKEN_STORAGE_KEY", "anonymousSessionToken")

	// Geolocation
	GeoThrottleWindow = getEnvDuration("GEO_THROTTLE_WINDOW", 3*time.Second)
	GeoAcquireTimeout = getEnvDuration("GEO_ACQUIRE_TIMEOUT", 8*time.Second)
	GeoEndpointURL = getEnvString("GEO_ENDPOINT_URL", "")
}
