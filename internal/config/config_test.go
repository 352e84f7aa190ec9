package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("week_start: Sunday\nlog_level: DEBUG\nshow_weekends: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, time.Sunday, cfg.WeekStartDay())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.ShowWeekends)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, DefaultCron, cfg.Capture.Cron)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"timezone":   "timezone: Mars/Olympus\n",
		"slot order": "slot_min: \"18:00\"\nslot_max: \"08:00\"\n",
		"slot":       "slot_min: \"8h\"\n",
		"term":       "term_start: \"2026-02-01\"\nterm_end: \"2026-01-01\"\n",
		"date":       "initial_date: 05/01/2026\n",
		"auth":       "basic_auth:\n  username: admin\n",
		"width":      "capture:\n  width: 10\n",
		"yaml":       "listen: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.TermStart, cfg.TermEnd = "2026-01-01", "2026-03-31"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", PasswordHash: "$2a$10$abcdefghijklmnopqrstuv"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("COURSECAL_LISTEN=0.0.0.0:9090\nCOURSECAL_LOG_LEVEL=warn\n"), 0o600))
	t.Setenv(EnvLogLevel, "error")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
	assert.Equal(t, "error", cfg.LogLevel, "process env wins over .env")
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
}

func TestApplyEnvMissingFile(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, DefaultListen, cfg.Listen)
}

func TestTermBoundsAndInitialTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	cfg := DefaultConfig()
	start, end, err := cfg.TermBounds(loc)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	cfg.TermStart, cfg.InitialDate = "2026-01-05", "2026-01-19"
	start, _, err = cfg.TermBounds(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, loc), start)

	initial, err := cfg.InitialTime(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 19, 0, 0, 0, 0, loc), initial)

	cfg.TermEnd = "soon"
	_, _, err = cfg.TermBounds(loc)
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())

	cfg.Timezone = "Nowhere/City"
	_, err = cfg.Location()
	assert.Error(t, err)
}
