// Package config reads server settings from the environment, loading a .env
// file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const devJWTSecret = "couple-journal-development-secret"

type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	LogLevel      string
	LogFormat     string

	Storage            StorageConfig
	LocalUploadDir     string
	LocalPublicURL     string
	AlbumDownloadDelay time.Duration
	CompressUploads    bool
}

// StorageConfig points at an S3-compatible bucket for photos.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Enabled reports whether enough is set to talk to the bucket.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// Load reads .env (if present) into the process environment and builds the
// config from it.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:          get("PORT", "8080"),
		MongoURI:      get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: get("MONGO_DATABASE", "couple_journal"),
		JWTSecret:     get("JWT_SECRET", ""),
		LogLevel:      get("LOG_LEVEL", "info"),
		LogFormat:     get("LOG_FORMAT", "json"),
		Storage: StorageConfig{
			Endpoint:  get("STORAGE_ENDPOINT", ""),
			AccessKey: get("STORAGE_ACCESS_KEY", ""),
			SecretKey: get("STORAGE_SECRET_KEY", ""),
			Bucket:    get("STORAGE_BUCKET", "photos"),
			PublicURL: get("STORAGE_PUBLIC_URL", ""),
		},
		LocalUploadDir: get("LOCAL_UPLOAD_DIR", "./.uploads"),
	}
	cfg.LocalPublicURL = strings.TrimRight(get("LOCAL_PUBLIC_URL", "http://localhost:"+cfg.Port+"/files"), "/")

	useSSL, err := strconv.ParseBool(get("STORAGE_USE_SSL", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("STORAGE_USE_SSL: %w", err)
	}
	cfg.Storage.UseSSL = useSSL

	delay, err := time.ParseDuration(get("ALBUM_DOWNLOAD_DELAY", "300ms"))
	if err != nil {
		return Config{}, fmt.Errorf("ALBUM_DOWNLOAD_DELAY: %w", err)
	}
	if delay < 0 {
		return Config{}, fmt.Errorf("ALBUM_DOWNLOAD_DELAY: must not be negative")
	}
	cfg.AlbumDownloadDelay = delay

	compress, err := strconv.ParseBool(get("COMPRESS_UPLOADS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("COMPRESS_UPLOADS: %w", err)
	}
	cfg.CompressUploads = compress

	return cfg, nil
}

// ApplyFallbacks fills in defaults for missing settings that have a degraded
// mode and describes each one. None of them stop the server from starting.
func (c *Config) ApplyFallbacks() []string {
	var warnings []string
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
		warnings = append(warnings, "JWT_SECRET is not set; using the development secret")
	}
	if !c.Storage.Enabled() {
		warnings = append(warnings, "object storage is not configured; photos are stored under "+c.LocalUploadDir)
	}
	return warnings
}

// NewLogger builds the process logger. format "console" selects the
// development encoder; anything else logs JSON.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
