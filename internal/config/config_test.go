package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "DATABASE_URL", "REMINDER_TIME", "TIMEZONE",
		"LOG_LEVEL", "METRICS_ADDR", "REFILL_LEAD_DAYS", "SELFCARE_CONFIG",
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, "selfcare.db", cfg.DatabaseURL)
	assert.Equal(t, "09:00", cfg.ReminderTime)
	assert.Equal(t, 3, cfg.RefillLeadDays)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadRequiresToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "telegram_token: ${TEST_BOT_TOKEN}\n" +
		"database_url: data/app.db\n" +
		"reminder_time: \"08:30\"\n" +
		"refill_lead_days: 7\n" +
		"timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TEST_BOT_TOKEN", "from-file")
	t.Setenv("SELFCARE_CONFIG", path)
	t.Setenv("REMINDER_TIME", "07:15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.TelegramToken)
	assert.Equal(t, "data/app.db", cfg.DatabaseURL)
	assert.Equal(t, "07:15", cfg.ReminderTime)
	assert.Equal(t, 7, cfg.RefillLeadDays)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("REFILL_LEAD_DAYS", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "REFILL_LEAD_DAYS")

	t.Setenv("REFILL_LEAD_DAYS", "")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.ErrorContains(t, err, "timezone")
}

func TestLoadKeepsExplicitZeroLeadDays(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("REFILL_LEAD_DAYS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RefillLeadDays)
}
