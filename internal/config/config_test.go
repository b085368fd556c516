package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTITY_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "ecofinds", cfg.MongoDBName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "per-item", cfg.PurchaseCommitMode)
	assert.Equal(t, 5*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 5, cfg.StartupRetries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTITY_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RESERVATION_TTL", "90s")
	t.Setenv("PURCHASE_COMMIT_MODE", "saga")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.ReservationTTL)
	assert.Equal(t, "saga", cfg.PurchaseCommitMode)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IDENTITY_SECRET=fromfile\nHTTP_PORT=9090\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("IDENTITY_SECRET", "")
	t.Setenv("HTTP_PORT", "")
	os.Unsetenv("IDENTITY_SECRET")
	os.Unsetenv("HTTP_PORT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.IdentitySecret)
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTITY_SECRET", "s3cret")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "REQUEST_TIMEOUT")
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTITY_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
