package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-file\nATTACHMENT_BACKEND=Disk\n"), 0o600))

	// godotenv never overrides variables that are already set; t.Setenv
	// restores both keys after the test.
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ATTACHMENT_BACKEND", "")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("ATTACHMENT_BACKEND")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "disk", cfg.AttachmentBackend)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadWithoutEnvFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("ATTACHMENT_BACKEND", "gridfs")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "gridfs", cfg.AttachmentBackend)
}

func TestValidate(t *testing.T) {
	base := Config{JWTSecret: "s", AttachmentBackend: "disk", MaxUploadBytes: 1}
	assert.NoError(t, base.Validate())

	noSecret := base
	noSecret.JWTSecret = ""
	assert.Error(t, noSecret.Validate())

	badBackend := base
	badBackend.AttachmentBackend = "s3"
	assert.Error(t, badBackend.Validate())

	badSize := base
	badSize.MaxUploadBytes = 0
	assert.Error(t, badSize.Validate())
}
