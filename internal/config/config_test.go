package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ARCHIVE_DSN", "REDIS_URL", "REST_PORT", "WS_PORT", "LOG_LEVEL", "LIMITS_FILE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.RESTPort)
	assert.Equal(t, "8081", cfg.WSPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultLimits(), cfg.Limits)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("REST_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LIMITS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.RESTPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLimitsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	content := "max_upload_bytes: 1048576\nmax_decoded_chars: 500000\nanalysis_budget_ms: 2000\nfindings_per_category: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("LIMITS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), cfg.Limits.MaxUploadBytes)
	assert.Equal(t, 500000, cfg.Limits.MaxDecodedChars)
	assert.Equal(t, 2000, cfg.Limits.AnalysisBudgetMS)
	assert.Equal(t, 3, cfg.Limits.FindingsPerCategory)
}

func TestLoadLimitsFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("findings_per_category: 2\n"), 0o644))
	t.Setenv("LIMITS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Limits.FindingsPerCategory)
	assert.Equal(t, DefaultLimits().MaxUploadBytes, cfg.Limits.MaxUploadBytes, "unset keys keep their defaults")
}

func TestLoadLimitsFileRejectsNonPositiveCaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_decoded_chars: 0\n"), 0o644))
	t.Setenv("LIMITS_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLoadLimitsFileMissing(t *testing.T) {
	t.Setenv("LIMITS_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading limits file")
}

func TestAnalysisBudget(t *testing.T) {
	limits := Limits{AnalysisBudgetMS: 2500}
	assert.Equal(t, 2500*time.Millisecond, limits.AnalysisBudget())
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "garbage"} {
		logger, err := NewLogger(level)
		require.NoError(t, err, "level %q", level)
		require.NotNil(t, logger)
	}
}
