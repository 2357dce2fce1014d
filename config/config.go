package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Database
	DBDriver   string // "mysql" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string // SQLite file, used when DBDriver is "sqlite"
	DBLogSQL   bool

	// Redis / descendant cache
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheBackend  string // "redis", "memory" or "none"
	CacheTTLSecs  int

	// MinIO asset storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string
	MinioPublicURL string // base used to build asset URLs; defaults to the endpoint

	// API
	HTTPAddr    string
	JWTSecret   string
	JWTTTLHours int
	StagingDir  string // local directory receiving staged uploads before commit

	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() does not override variables that are already set.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	endpoint := getEnv("MINIO_ENDPOINT", "127.0.0.1:9000")
	useSSL := getEnvBool("MINIO_USE_SSL", false)
	scheme := "http://"
	if useSSL {
		scheme = "https://"
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "labeldesk"),
		DBPath:     getEnv("DB_PATH", filepath.Join("data", "labeldesk.db")),
		DBLogSQL:   getEnvBool("DB_LOG_SQL", false),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheBackend:  getEnv("CACHE_BACKEND", "memory"),
		CacheTTLSecs:  getEnvInt("CACHE_TTL_SECONDS", 300),

		MinioEndpoint:  endpoint,
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "labeldesk"),
		MinioUseSSL:    useSSL,
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioPublicURL: strings.TrimRight(getEnv("MINIO_PUBLIC_URL", scheme+endpoint), "/"),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24),
		StagingDir:  getEnv("STAGING_DIR", filepath.Join(os.TempDir(), "labeldesk-staging")),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
