package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	DynamoDB    DynamoDBConfig
	Attachments AttachmentsConfig
	Redis       RedisConfig
	JWT         JWTConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint       string
	Region         string
	TableName      string
	CreatedAtIndex string
}

type AttachmentsConfig struct {
	Endpoint        string
	BucketName      string
	UploadURLExpiry time.Duration
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
	CacheTTL time.Duration
}

type JWTConfig struct {
	SecretKey string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:       getEnv("DYNAMODB_ENDPOINT", ""),
			Region:         getEnv("DYNAMODB_REGION", "us-east-1"),
			TableName:      getEnv("TODOS_TABLE_NAME", "Todos"),
			CreatedAtIndex: getEnv("TODOS_CREATED_AT_INDEX", "CreatedAtIndex"),
		},
		Attachments: AttachmentsConfig{
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			BucketName: getEnv("ATTACHMENTS_BUCKET_NAME", ""),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("CACHE_TTL", 30*time.Second),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
	}

	// A malformed expiry must abort startup, not default silently: it governs
	// how long presigned upload URLs stay usable.
	expiry, err := getEnvAsSeconds("UPLOAD_URL_EXPIRY", 300*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Attachments.UploadURLExpiry = expiry

	if cfg.Attachments.BucketName == "" {
		return nil, fmt.Errorf("ATTACHMENTS_BUCKET_NAME environment variable is required")
	}

	if cfg.JWT.SecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}

	if len(cfg.JWT.SecretKey) < 32 {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be at least 32 bytes (256 bits)")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer number of seconds, got %q", key, value)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, seconds)
	}

	return time.Duration(seconds) * time.Second, nil
}
