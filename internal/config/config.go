// Package config handles application configuration from an optional YAML
// file and environment variables
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/coachbot/internal/adherence"
)

// FileEnvVar names the variable pointing at an optional YAML config file
const FileEnvVar = "COACHBOT_CONFIG"

// Config holds all application configuration
type Config struct {
	Port        string `yaml:"port" env:"PORT"`
	BaseURL     string `yaml:"base_url" env:"BASE_URL"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`

	Session SessionConfig `yaml:"session" envPrefix:"SESSION_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Tracker TrackerConfig `yaml:"tracker" envPrefix:"TRACKER_"`
	Mail    MailConfig    `yaml:"mail" envPrefix:"MAIL_"`
	Worker  WorkerConfig  `yaml:"worker" envPrefix:"WORKER_"`
}

// SessionConfig controls the session cookie
type SessionConfig struct {
	Lifetime time.Duration `yaml:"lifetime" env:"LIFETIME"`
	Secure   bool          `yaml:"secure" env:"SECURE"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// File enables a rotating log file in addition to stdout
	File string `yaml:"file" env:"FILE"`
}

// TrackerConfig holds adherence tracking settings
type TrackerConfig struct {
	Policy       string        `yaml:"policy" env:"POLICY"`
	ReminderLead time.Duration `yaml:"reminder_lead" env:"REMINDER_LEAD"`
}

// Mail drivers
const (
	MailDriverSMTP = "smtp"
	MailDriverLog  = "log"
)

// MailConfig configures reminder delivery
type MailConfig struct {
	// Driver is "smtp" or "log"; log writes reminders to the logger
	Driver   string `yaml:"driver" env:"DRIVER"`
	SMTPAddr string `yaml:"smtp_addr" env:"SMTP_ADDR"`
	From     string `yaml:"from" env:"FROM"`
}

// WorkerConfig configures the reminder worker
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:      "8080",
		BaseURL:   "http://localhost:8080",
		RedisAddr: "",
		Session: SessionConfig{
			Lifetime: 12 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracker: TrackerConfig{
			Policy:       adherence.EveryPass.String(),
			ReminderLead: 0,
		},
		Mail: MailConfig{
			Driver:   MailDriverSMTP,
			SMTPAddr: "localhost:1025",
			From:     "no-reply@coachbot.local",
		},
		Worker: WorkerConfig{
			Concurrency: 4,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// COACHBOT_CONFIG if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnvVar); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EvaluationPolicy returns the parsed streak evaluation policy
func (c *Config) EvaluationPolicy() adherence.Policy {
	p, _ := adherence.ParsePolicy(c.Tracker.Policy)
	return p
}

// HasDatabase returns true if sessions should be persisted in Postgres
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasQueue returns true if dose reminders can be scheduled
func (c *Config) HasQueue() bool {
	return c.RedisAddr != ""
}

// Validate checks values that cannot be expressed as struct tags
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME must be positive, got %s", c.Session.Lifetime)
	}
	if c.Tracker.ReminderLead < 0 {
		return fmt.Errorf("TRACKER_REMINDER_LEAD must not be negative, got %s", c.Tracker.ReminderLead)
	}
	if _, err := adherence.ParsePolicy(c.Tracker.Policy); err != nil {
		return fmt.Errorf("TRACKER_POLICY: %w", err)
	}
	switch c.Mail.Driver {
	case MailDriverSMTP, MailDriverLog:
	default:
		return fmt.Errorf("MAIL_DRIVER must be %q or %q, got %q", MailDriverSMTP, MailDriverLog, c.Mail.Driver)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	return nil
}
