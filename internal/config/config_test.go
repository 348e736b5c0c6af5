package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/MoodMetrics/internal/services"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, DevSecret, cfg.Auth.Secret())
	assert.Equal(t, services.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, services.DefaultDashboardOptions(), cfg.Dashboard.DashboardOptions)
	assert.Equal(t, services.DefaultSettings(), cfg.Settings.Record())
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 20*time.Second, cfg.AI.MaxRetryTime)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "moodmetrics.yaml")
	yaml := `
server:
  port: "9000"
thresholds:
  high_answer: 5
  zone_critical: 60
dashboard:
  window_days: 30
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("MOODMETRICS_SERVER_PORT", "9100")
	t.Setenv("MOODMETRICS_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MOODMETRICS_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("MOODMETRICS_THRESHOLDS_PERCENT_RISK", "25")
	t.Setenv("MOODMETRICS_AI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.Secret())
	assert.Equal(t, 5.0, cfg.Thresholds.HighAnswer)
	assert.Equal(t, 60, cfg.Thresholds.ZoneCritical)
	assert.Equal(t, 25, cfg.Thresholds.PercentRisk)
	assert.Equal(t, 30, cfg.Dashboard.WindowDays)
	assert.Equal(t, 8, cfg.Dashboard.DynamicsWeeks)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MOODMETRICS_LOGGING_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MOODMETRICS_LOGGING_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Database.Driver = "postgres"
	bad.Thresholds.HighAnswer = 7
	bad.Thresholds.ZoneRisk = 80
	bad.Settings.AnonymityThreshold = 0
	bad.Auth.AdminPassword = strings.Repeat("p", 73)
	err = bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"database.driver", "high_answer", "zone_risk", "anonymity_threshold", "admin_password"} {
		assert.Contains(t, err.Error(), want)
	}

	mem := *cfg
	mem.Database.Driver = "memory"
	mem.Database.Path = ""
	assert.NoError(t, mem.Validate())
}
