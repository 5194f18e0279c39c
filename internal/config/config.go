package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds settings for the status cache.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	StatusTTL time.Duration
}

// KafkaConfig holds settings for the submission event log.
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	ClientID       string
	PublishTimeout time.Duration
}

// UploadConfig constrains document uploads accepted by a submission.
type UploadConfig struct {
	MaxFiles          int
	MaxFileBytes      int64
	AllowedTypes      []string
	StageConcurrency  int
	CompensateTimeout time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Upload    UploadConfig
}

// BodyLimit is the largest multipart body the HTTP server accepts: every
// permitted file at full size plus one MiB for the form fields and framing.
func (c UploadConfig) BodyLimit() int {
	return c.MaxFiles*int(c.MaxFileBytes) + 1<<20
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	return &AppConfig{
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		Database: DatabaseConfig{
			Host:               getEnv("POSTGRES_HOST", ""),
			Port:               getEnv("POSTGRES_PORT", "5432"),
			User:               getEnv("POSTGRES_USER", ""),
			Password:           getEnv("POSTGRES_PASSWORD", ""),
			Name:               getEnv("POSTGRES_DB", ""),
			SSLMode:            getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("POSTGRES_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "loan-documents"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Address:   getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			StatusTTL: getEnvDuration("STATUS_CACHE_TTL", 300*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvList("KAFKA_BROKER", []string{"localhost:9092"}),
			Topic:          getEnv("KAFKA_TOPIC", "loan-applications"),
			ClientID:       getEnv("KAFKA_CLIENT_ID", "application-service"),
			PublishTimeout: getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 10*time.Second),
		},
		Upload: UploadConfig{
			MaxFiles:          getEnvInt("UPLOAD_MAX_FILES", 5),
			MaxFileBytes:      int64(getEnvInt("UPLOAD_MAX_FILE_BYTES", 10<<20)),
			AllowedTypes:      getEnvList("UPLOAD_ALLOWED_TYPES", []string{"application/pdf", "image/jpeg", "image/png"}),
			StageConcurrency:  getEnvInt("UPLOAD_STAGE_CONCURRENCY", 5),
			CompensateTimeout: getEnvDuration("COMPENSATE_TIMEOUT", 15*time.Second),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("5m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
