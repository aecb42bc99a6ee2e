package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "change-me"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env             string
	LogLevel        string
	ServerPort      string
	MySQLDSN        string
	ResetDB         bool
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SwaggerHost     string
	Storage         StorageConfig
}

// StorageConfig selects and configures the object storage used for uploaded images.
type StorageConfig struct {
	// Backend is "minio", "gcs" or empty to disable uploads.
	Backend        string
	MaxUploadBytes int64
	Minio          MinioConfig
	GCS            GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// Load builds Config from environment with sensible defaults.
// In dev mode a local .env file is read first.
func Load() *Config {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	return &Config{
		Env:             getEnv("ENV", "production"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		MySQLDSN:        getEnv("MYSQL_DSN", "blog:password@tcp(localhost:3306)/blog?charset=utf8mb4&parseTime=True&loc=Local"),
		ResetDB:         getEnvBool("RESET_DB", false),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisPass:       os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       getEnv("JWT_SECRET", defaultJWTSecret),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 5*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
		SwaggerHost:     os.Getenv("SWAGGER_HOST"),
		Storage: StorageConfig{
			Backend:        strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 5<<20)),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    getEnv("MINIO_BUCKET", "blog-media"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          os.Getenv("GCS_BUCKET"),
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			},
		},
	}
}

// IsDev reports whether the service runs in local development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Validate rejects configurations that are unsafe to serve with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if !c.IsDev() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed outside dev")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs":
	default:
		return errors.New("STORAGE_BACKEND must be one of: minio, gcs")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
