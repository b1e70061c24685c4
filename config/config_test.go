package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: Krafttraining
    url: https://example.invalid/kraft.html
    tables:
      - index: 0
        label: Studio
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.IntervalSeconds)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, []string{"bookable", "waitlist", "bookable_from"}, cfg.InterestingStatuses)
	assert.Contains(t, cfg.Key.Candidates, "Kursnummer")
	assert.Equal(t, []string{"Tag", "Zeit", "Leitung"}, cfg.Key.Fallback)
	assert.Equal(t, "kurs_status.json", cfg.StateFile)
	assert.Equal(t, "error_log.json", cfg.Alerts.StateFile)
	assert.Equal(t, time.Hour, cfg.Alerts.Cooldown)
	assert.Equal(t, 1000, cfg.Alerts.HistoryRetention)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSeconds)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "Krafttraining", cfg.Sources[0].Name)
	require.Len(t, cfg.Sources[0].Tables, 1)
	assert.Equal(t, "Studio", cfg.Sources[0].Tables[0].Label)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
interval_seconds: 120
interesting_statuses: [bookable]
key:
  candidates: [Kursnr]
  fallback: [Tag, Zeit]
state_file: /var/lib/zhsd/state.json
alerts:
  cooldown_minutes: 15
  history_retention: -1
server:
  enabled: true
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Interval)
	assert.Equal(t, []string{"bookable"}, cfg.InterestingStatuses)
	assert.Equal(t, []string{"Kursnr"}, cfg.Key.Candidates)
	assert.Equal(t, 15*time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, -1, cfg.Alerts.HistoryRetention, "negative retention keeps the log unbounded")
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_SMTPFromEnvironment(t *testing.T) {
	t.Setenv("SMTP_SERVER", "mail.example.invalid")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USER", "zhs")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("EMAIL_FROM", "zhs@example.invalid")
	t.Setenv("EMAIL_TO", "a@example.invalid, b@example.invalid,")

	cfg, err := Load(writeConfig(t, "sources: []\n"))
	require.NoError(t, err)

	assert.Equal(t, "mail.example.invalid", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, "zhs", cfg.SMTP.User)
	assert.Equal(t, []string{"a@example.invalid", "b@example.invalid"}, cfg.SMTP.To)
}
