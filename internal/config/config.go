package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Server struct {
		Port    string
		GinMode string
	}

	Log struct {
		Level  string
		Format string
	}

	Storage struct {
		Type           string
		MigrateOnStart bool
	}

	Auth struct {
		UserTable string
		JWTSecret string
		TokenTTL  time.Duration
	}

	Upload struct {
		MaxFileSize int64
	}

	MinIO struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	CORS struct {
		AllowOrigins string
		AllowMethods string
		AllowHeaders string
	}
}

// Load loads configuration from environment variables
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{}

	config.DB.Host = getEnv("DB_HOST", "localhost")
	config.DB.Port = getEnv("DB_PORT", "5432")
	config.DB.User = getEnv("DB_USER", "poll")
	config.DB.Password = getEnv("DB_PASSWORD", "poll_password")
	config.DB.Name = getEnv("DB_NAME", "poll_db")
	config.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	config.Server.Port = getEnv("PORT", "8080")
	config.Server.GinMode = getEnv("GIN_MODE", "debug")

	config.Log.Level = getEnv("LOG_LEVEL", "info")
	config.Log.Format = getEnv("LOG_FORMAT", "text")

	config.Storage.Type = getEnv("STORAGE_TYPE", "postgres")
	config.Storage.MigrateOnStart = getEnvAsBool("MIGRATE_ON_START", false)

	config.Auth.UserTable = getEnv("AUTH_USER_TABLE", "users")
	config.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	config.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", 7*24*time.Hour)

	config.Upload.MaxFileSize = getEnvAsInt64("UPLOADS_MAX_FILE_SIZE", 5242880)

	config.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", "")
	config.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", "")
	config.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", "")
	config.MinIO.Bucket = getEnv("MINIO_BUCKET", "poll-images")
	config.MinIO.UseSSL = getEnvAsBool("MINIO_USE_SSL", false)

	config.CORS.AllowOrigins = getEnv("CORS_ALLOW_ORIGINS", "*")
	config.CORS.AllowMethods = getEnv("CORS_ALLOW_METHODS", "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS")
	config.CORS.AllowHeaders = getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Length,Content-Type,Authorization")

	return config
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.DB.User + ":" + c.DB.Password + "@" + c.DB.Host + ":" + c.DB.Port + "/" + c.DB.Name + "?sslmode=" + c.DB.SSLMode
}

// IsProduction reports whether gin runs in release mode
func (c *Config) IsProduction() bool {
	return c.Server.GinMode == "release"
}

// SplitList splits a comma separated config value, dropping empty entries
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 gets an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
