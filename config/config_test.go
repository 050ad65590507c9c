package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "couple_journal", cfg.MongoDatabase)
	assert.Equal(t, "./.uploads", cfg.LocalUploadDir)
	assert.Equal(t, "http://localhost:8080/files", cfg.LocalPublicURL)
	assert.True(t, cfg.CompressUploads)
	assert.Equal(t, 300*time.Millisecond, cfg.AlbumDownloadDelay)
	assert.True(t, cfg.Storage.UseSSL)
	assert.False(t, cfg.Storage.Enabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":                 "9000",
		"JWT_SECRET":           "s3cret",
		"STORAGE_ENDPOINT":     "minio:9000",
		"STORAGE_ACCESS_KEY":   "access",
		"STORAGE_SECRET_KEY":   "secret",
		"STORAGE_BUCKET":       "journal",
		"STORAGE_USE_SSL":      "false",
		"ALBUM_DOWNLOAD_DELAY": "1s",
		"LOCAL_PUBLIC_URL":     "https://journal.example.com/files/",
		"COMPRESS_UPLOADS":     "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.Storage.Enabled())
	assert.False(t, cfg.Storage.UseSSL)
	assert.Equal(t, time.Second, cfg.AlbumDownloadDelay)
	assert.Equal(t, "https://journal.example.com/files", cfg.LocalPublicURL)
	assert.False(t, cfg.CompressUploads)
	assert.Empty(t, cfg.ApplyFallbacks())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestFromEnv_RejectsMalformedValues(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{"STORAGE_USE_SSL": "maybe"}))
	assert.ErrorContains(t, err, "STORAGE_USE_SSL")

	_, err = FromEnv(envMap(map[string]string{"ALBUM_DOWNLOAD_DELAY": "soon"}))
	assert.ErrorContains(t, err, "ALBUM_DOWNLOAD_DELAY")

	_, err = FromEnv(envMap(map[string]string{"ALBUM_DOWNLOAD_DELAY": "-1s"}))
	assert.Error(t, err)

	_, err = FromEnv(envMap(map[string]string{"COMPRESS_UPLOADS": "sometimes"}))
	assert.ErrorContains(t, err, "COMPRESS_UPLOADS")
}

func TestFromEnv_LocalPublicURLFollowsPort(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"PORT": "9000"}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/files", cfg.LocalPublicURL)
}

func TestApplyFallbacks_DegradedMode(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{"STORAGE_ENDPOINT": "minio:9000"}))
	require.NoError(t, err)

	warnings := cfg.ApplyFallbacks()
	assert.Len(t, warnings, 2)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DATABASE=from_file\n"), 0o600))
	t.Setenv("MONGO_DATABASE", "")
	os.Unsetenv("MONGO_DATABASE")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.MongoDatabase)
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	log, err = NewLogger("bogus", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))
}
