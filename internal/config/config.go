package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Driver             string
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
// Photos and videos are kept in separate buckets so their key spaces never overlap.
type MinIOConfig struct {
	Driver      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	PhotoBucket string
	VideoBucket string
	UseSSL      bool
	// PublicURL is the base that public asset links are derived from,
	// e.g. https://cdn.example.com. Defaults to the endpoint.
	PublicURL string
}

// UploadConfig bounds what the publish pipeline accepts.
type UploadConfig struct {
	PhotoMaxBytes     int64
	VideoMaxBytes     int64
	TitleMaxLen       int
	DescriptionMaxLen int
}

// QRConfig fixes how viewer links are rendered.
type QRConfig struct {
	Level string
	Size  int
}

// CacheConfig sizes the in-process record cache used by resolve. Size 0 disables it.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables once at startup and treated as read-only afterwards.
type AppConfig struct {
	Port        string
	FrontendURL string
	LogLevel    string
	Timezone    string
	CORSOrigins []string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Upload      UploadConfig
	QR          QRConfig
	Cache       CacheConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	useSSL := getEnvBool("MINIO_USE_SSL", false)
	endpoint := getEnv("MINIO_ENDPOINT", "")

	return &AppConfig{
		Port:        getEnv("PORT", "10000"),
		FrontendURL: frontend,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		CORSOrigins: corsOrigins(frontend, getEnv("CORS_EXTRA_ORIGINS", "http://localhost:3000")),
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Driver:      getEnv("STORAGE_DRIVER", "minio"),
			Endpoint:    endpoint,
			AccessKey:   getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:   getEnv("MINIO_SECRET_KEY", ""),
			PhotoBucket: getEnv("MINIO_PHOTO_BUCKET", "ar-photos"),
			VideoBucket: getEnv("MINIO_VIDEO_BUCKET", "ar-videos"),
			UseSSL:      useSSL,
			PublicURL:   strings.TrimRight(getEnv("MINIO_PUBLIC_URL", defaultPublicURL(endpoint, useSSL)), "/"),
		},
		Upload: UploadConfig{
			PhotoMaxBytes:     getEnvInt64("PHOTO_MAX_BYTES", 10<<20),
			VideoMaxBytes:     getEnvInt64("VIDEO_MAX_BYTES", 20<<20),
			TitleMaxLen:       getEnvInt("TITLE_MAX_LEN", 200),
			DescriptionMaxLen: getEnvInt("DESCRIPTION_MAX_LEN", 2000),
		},
		QR: QRConfig{
			Level: getEnv("QR_LEVEL", "M"),
			Size:  getEnvInt("QR_SIZE", 256),
		},
		Cache: CacheConfig{
			Size: getEnvInt("RESOLVE_CACHE_SIZE", 1024),
			TTL:  time.Duration(getEnvInt("RESOLVE_CACHE_TTL_SEC", 600)) * time.Second,
		},
	}
}

// Validate reports configuration that would make the service misbehave at runtime.
func (c *AppConfig) Validate() error {
	if c.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required")
	}
	if c.Upload.PhotoMaxBytes <= 0 || c.Upload.VideoMaxBytes <= 0 {
		return fmt.Errorf("photo and video size ceilings must be positive")
	}
	if c.Upload.TitleMaxLen <= 0 || c.Upload.DescriptionMaxLen <= 0 {
		return fmt.Errorf("title and description length bounds must be positive")
	}
	if c.QR.Size < 200 {
		return fmt.Errorf("QR_SIZE must be at least 200, got %d", c.QR.Size)
	}
	if c.MinIO.PhotoBucket == c.MinIO.VideoBucket {
		return fmt.Errorf("photo and video buckets must differ")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("RESOLVE_CACHE_SIZE must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BodyLimit is the largest request body the upload endpoint needs to accept.
func (c *AppConfig) BodyLimit() int {
	return int(c.Upload.PhotoMaxBytes + c.Upload.VideoMaxBytes + 1<<20)
}

func corsOrigins(frontend, extra string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, o := range append([]string{frontend}, strings.Split(extra, ",")...) {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

func defaultPublicURL(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return "http://localhost:9000"
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
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

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
