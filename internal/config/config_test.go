package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_ENDPOINT", "s3.example.com")
	t.Setenv("FRONTEND_URL", "https://ar.example.com/")
	t.Setenv("VIDEO_MAX_BYTES", "1048576")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "https://s3.example.com", cfg.MinIO.PublicURL)
	assert.Equal(t, "https://ar.example.com", cfg.FrontendURL)
	assert.Equal(t, int64(1<<20), cfg.Upload.VideoMaxBytes)
	assert.Equal(t, int64(10<<20), cfg.Upload.PhotoMaxBytes)
	assert.Equal(t, []string{"https://ar.example.com", "http://localhost:3000"}, cfg.CORSOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "ar-photos", cfg.MinIO.PhotoBucket)
	assert.Equal(t, "ar-videos", cfg.MinIO.VideoBucket)
	assert.Equal(t, int64(20<<20), cfg.Upload.VideoMaxBytes)
	assert.Equal(t, 256, cfg.QR.Size)
	assert.Equal(t, "M", cfg.QR.Level)
	assert.Equal(t, int(10<<20+20<<20+1<<20), cfg.BodyLimit())
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{name: "qr too small", mutate: func(c *AppConfig) { c.QR.Size = 199 }},
		{name: "zero video ceiling", mutate: func(c *AppConfig) { c.Upload.VideoMaxBytes = 0 }},
		{name: "shared bucket", mutate: func(c *AppConfig) { c.MinIO.VideoBucket = c.MinIO.PhotoBucket }},
		{name: "bad timezone", mutate: func(c *AppConfig) { c.Timezone = "Mars/Olympus" }},
		{name: "negative cache", mutate: func(c *AppConfig) { c.Cache.Size = -1 }},
		{name: "no frontend", mutate: func(c *AppConfig) { c.FrontendURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))
	assert.Equal(t, int64(123), getEnvInt64(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))
	assert.Equal(t, int64(10), getEnvInt64(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
