package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PhilippVn/ZHS-Scraper/internal/model"
)

// Config represents the overall application configuration. It is reloaded
// at the start of every poll cycle; a missing or unreadable file is fatal.
type Config struct {
	IntervalSeconds     int            `yaml:"interval_seconds"`
	Interval            time.Duration  `yaml:"-"` // Ignored by YAML parser
	InterestingStatuses []string       `yaml:"interesting_statuses"`
	Key                 model.KeySpec  `yaml:"key"`
	PriorityFields      []string       `yaml:"priority_fields"`
	StateFile           string         `yaml:"state_file"`
	Fetch               FetchConfig    `yaml:"fetch"`
	Sources             []SourceConfig `yaml:"sources"`
	Server              ServerConfig   `yaml:"server"`
	Database            DatabaseConfig `yaml:"database"`
	SMTP                SMTPConfig     `yaml:"smtp"`
	Push                PushConfig     `yaml:"push"`
	Alerts              AlertConfig    `yaml:"alerts"`
}

// SourceConfig describes one monitored booking page.
type SourceConfig struct {
	Name   string        `yaml:"name"`
	URL    string        `yaml:"url"`
	Tables []TableConfig `yaml:"tables"`
}

// TableConfig selects one course table on a page by position. The label
// replaces the generated "Tabelle_<index>" name in notifications.
type TableConfig struct {
	Index int    `yaml:"index"`
	Label string `yaml:"label"`
}

// FetchConfig holds the HTTP settings of the fetch layer.
type FetchConfig struct {
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
}

// ServerConfig holds the read-only status API configuration.
type ServerConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the change-history database configuration. An empty
// DSN disables the archive entirely.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// SMTPConfig holds mail delivery settings. Host, credentials, and the
// address lists come from the environment (SMTP_SERVER, SMTP_PORT,
// SMTP_USER, SMTP_PASSWORD, EMAIL_FROM, EMAIL_TO), not from the YAML file,
// so secrets stay out of checked-in configuration.
type SMTPConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Host     string   `yaml:"-"`
	Port     int      `yaml:"-"`
	User     string   `yaml:"-"`
	Password string   `yaml:"-"`
	From     string   `yaml:"-"`
	To       []string `yaml:"-"`
}

// PushSubscription is one Web Push endpoint to notify.
type PushSubscription struct {
	Endpoint string `yaml:"endpoint"`
	P256DH   string `yaml:"p256dh"`
	Auth     string `yaml:"auth"`
}

// PushConfig holds the VAPID keys and subscriptions for web push delivery.
type PushConfig struct {
	Enabled       bool               `yaml:"enabled"`
	PublicKey     string             `yaml:"vapid_public_key"`
	PrivateKey    string             `yaml:"vapid_private_key"`
	Subject       string             `yaml:"subject"`
	TTL           int                `yaml:"ttl"`
	Subscriptions []PushSubscription `yaml:"subscriptions"`
}

// AlertConfig holds the error-throttle settings. HistoryRetention caps the
// persisted error log (oldest entries dropped first); a negative value
// keeps the log unbounded.
type AlertConfig struct {
	CooldownMinutes  int           `yaml:"cooldown_minutes"`
	Cooldown         time.Duration `yaml:"-"`
	StateFile        string        `yaml:"state_file"`
	HistoryRetention int           `yaml:"history_retention"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 600
	}
	cfg.Interval = time.Duration(cfg.IntervalSeconds) * time.Second

	if len(cfg.InterestingStatuses) == 0 {
		cfg.InterestingStatuses = []string{
			string(model.StatusBookable),
			string(model.StatusWaitlist),
			string(model.StatusBookableFrom),
		}
	}
	if len(cfg.Key.Candidates) == 0 {
		cfg.Key.Candidates = model.DefaultKeySpec().Candidates
	}
	if len(cfg.Key.Fallback) == 0 {
		cfg.Key.Fallback = model.DefaultKeySpec().Fallback
	}
	if len(cfg.PriorityFields) == 0 {
		cfg.PriorityFields = []string{"KursnrNo.", "TagDay", "ZeitTime", "OrtLocation", "LeitungGuidance", "PreisCost"}
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "kurs_status.json"
	}

	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 10
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Alerts.CooldownMinutes <= 0 {
		cfg.Alerts.CooldownMinutes = 60
	}
	cfg.Alerts.Cooldown = time.Duration(cfg.Alerts.CooldownMinutes) * time.Minute
	if cfg.Alerts.StateFile == "" {
		cfg.Alerts.StateFile = "error_log.json"
	}
	if cfg.Alerts.HistoryRetention == 0 {
		cfg.Alerts.HistoryRetention = 1000
	}

	loadSMTPEnv(&cfg.SMTP)

	return &cfg, nil
}

func loadSMTPEnv(smtp *SMTPConfig) {
	smtp.Host = os.Getenv("SMTP_SERVER")
	smtp.Port = 587
	if p := os.Getenv("SMTP_PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			smtp.Port = n
		}
	}
	smtp.User = os.Getenv("SMTP_USER")
	smtp.Password = os.Getenv("SMTP_PASSWORD")
	smtp.From = os.Getenv("EMAIL_FROM")
	smtp.To = nil
	for _, addr := range strings.Split(os.Getenv("EMAIL_TO"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			smtp.To = append(smtp.To, addr)
		}
	}
}
