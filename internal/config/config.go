package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	appLog "coursecal/internal/log"
)

// NOTE: YAML load/save with first-run creation and 0600 permissions, plus
// .env overrides for the handful of settings that differ per deployment.

const (
	DefaultPath     = "/etc/coursecal/config.yaml"
	DefaultListen   = "127.0.0.1:8080"
	DefaultTimezone = "Europe/Paris"
	DefaultOrganism = "FIL 1ère année"
	DefaultCron     = "*/30 * * * *"

	dateLayout = "2006-01-02"
	slotLayout = "15:04"
)

// Environment variables honored by ApplyEnv.
const (
	EnvListen   = "COURSECAL_LISTEN"
	EnvTimezone = "COURSECAL_TIMEZONE"
	EnvLogLevel = "COURSECAL_LOG_LEVEL"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// PasswordHash, when set, is a bcrypt hash and takes precedence over
// Password.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username" validate:"required"`
	Password     string `yaml:"password,omitempty" json:"-"`
	PasswordHash string `yaml:"password_hash,omitempty" json:"-"`
}

// CaptureConfig controls the periodic PNG preview of the calendar page.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron" json:"cron"`
	// URL is the page to capture. Empty means the local /calendar page.
	URL    string `yaml:"url" json:"url" validate:"omitempty,url"`
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width" validate:"gte=320,lte=4096"`
	Height int    `yaml:"height" json:"height" validate:"gte=240,lte=4096"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA zone events are displayed in.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start" validate:"oneof=monday sunday"`

	// ShowWeekends keeps Saturday and Sunday events in the projection.
	ShowWeekends bool `yaml:"show_weekends" json:"show_weekends"`

	// SlotMin and SlotMax bound the time grid of the calendar page (HH:MM).
	SlotMin string `yaml:"slot_min" json:"slot_min" validate:"datetime=15:04"`
	SlotMax string `yaml:"slot_max" json:"slot_max" validate:"datetime=15:04"`

	// InitialDate (YYYY-MM-DD) selects the week shown at startup; empty
	// means today.
	InitialDate string `yaml:"initial_date" json:"initial_date" validate:"omitempty,datetime=2006-01-02"`

	// Organism is shown in the event detail popup.
	Organism string `yaml:"organism" json:"organism"`

	// TermStart and TermEnd (YYYY-MM-DD) bound recurrence expansion.
	TermStart string `yaml:"term_start" json:"term_start" validate:"omitempty,datetime=2006-01-02"`
	TermEnd   string `yaml:"term_end" json:"term_end" validate:"omitempty,datetime=2006-01-02"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    DefaultListen,
		Timezone:  DefaultTimezone,
		WeekStart: "monday",
		SlotMin:   "08:00",
		SlotMax:   "18:00",
		Organism:  DefaultOrganism,
		LogLevel:  "info",
		Capture: CaptureConfig{
			Cron:   DefaultCron,
			Output: "/var/lib/coursecal/preview.png",
			Width:  1280,
			Height: 800,
		},
	}
}

// Normalize fills in missing values so that partially-filled configs still
// behave correctly. Values that are present but malformed are left for
// Validate to report, except the ones with an obvious fallback.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "sunday" {
		c.WeekStart = "monday"
	}
	if c.SlotMin == "" {
		c.SlotMin = def.SlotMin
	}
	if c.SlotMax == "" {
		c.SlotMax = def.SlotMax
	}
	if c.Organism == "" {
		c.Organism = def.Organism
	}
	if _, ok := appLog.ParseLevel(c.LogLevel); ok {
		c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	} else {
		c.LogLevel = def.LogLevel
	}

	if c.Capture.Cron == "" {
		c.Capture.Cron = def.Capture.Cron
	}
	if c.Capture.Output == "" {
		c.Capture.Output = def.Capture.Output
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
}

// Validate reports malformed values the application cannot repair.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.BasicAuth != nil && c.BasicAuth.Password == "" && c.BasicAuth.PasswordHash == "" {
		return errors.New("config: basic_auth needs password or password_hash")
	}
	minT, _ := time.Parse(slotLayout, c.SlotMin)
	maxT, _ := time.Parse(slotLayout, c.SlotMax)
	if !maxT.After(minT) {
		return fmt.Errorf("config: slot_max %s must be after slot_min %s", c.SlotMax, c.SlotMin)
	}
	if c.TermStart != "" && c.TermEnd != "" && c.TermEnd <= c.TermStart {
		return fmt.Errorf("config: term_end %s must be after term_start %s", c.TermEnd, c.TermStart)
	}
	return nil
}

// ApplyEnv overrides listen, timezone and log level from the environment.
// Variables read from envFile (a .env file, optional) are used only where
// the process environment does not set them.
func (c *Config) ApplyEnv(envFile string) error {
	vals := make(map[string]string)
	if envFile != "" {
		fileVals, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: read %s: %w", envFile, err)
		}
		maps.Copy(vals, fileVals)
	}
	for _, key := range []string{EnvListen, EnvTimezone, EnvLogLevel} {
		if v, ok := os.LookupEnv(key); ok {
			vals[key] = v
		}
	}

	if v := vals[EnvListen]; v != "" {
		c.Listen = v
	}
	if v := vals[EnvTimezone]; v != "" {
		c.Timezone = v
	}
	if v := vals[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	c.Normalize()
	return nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// WeekStartDay maps week_start to a weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// TermBounds parses term_start and term_end as midnights in loc. Unset
// bounds are returned as zero times.
func (c *Config) TermBounds(loc *time.Location) (time.Time, time.Time, error) {
	start, err := parseDate(c.TermStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config: term_start: %w", err)
	}
	end, err := parseDate(c.TermEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("config: term_end: %w", err)
	}
	return start, end, nil
}

// InitialTime parses initial_date in loc; zero when unset.
func (c *Config) InitialTime(loc *time.Location) (time.Time, error) {
	t, err := parseDate(c.InitialDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: initial_date: %w", err)
	}
	return t, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			appLog.Info("config: wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
