// Package config loads claimdesk settings from a YAML file with
// environment overrides. Credentials, recipients and endpoints live here
// and are handed to components at construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all claimdesk configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Mail    MailConfig    `yaml:"mail"`
	Tracker TrackerConfig `yaml:"tracker"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// CatalogConfig points at the purchase catalog workbook.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"` // empty selects the first sheet
	TTL   string `yaml:"ttl"`
}

// MailConfig describes the outbound SMTP session and the fixed recipients.
type MailConfig struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	From          string   `yaml:"from"`
	To            string   `yaml:"to"`
	Cc            []string `yaml:"cc"`
	Timeout       string   `yaml:"timeout"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	Greeting      string   `yaml:"greeting"`  // e.g. "Dear Shyla,"
	Signature     []string `yaml:"signature"` // sign-off lines under "Best Regards,"
}

// TrackerConfig points at the claim tracking endpoint.
type TrackerConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the HTTP surfaces.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	DatabaseURL string `yaml:"database_url"` // tracker service only
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path: "OSID DATA.xlsx",
			TTL:  "5m",
		},
		Mail: MailConfig{
			Host:          "smtp.gmail.com",
			Port:          587,
			Timeout:       "10s",
			SubjectPrefix: "Warranty Claim Submission",
			Greeting:      "Dear Team,",
		},
		Tracker: TrackerConfig{
			Timeout: "8s",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MaxUploadMB: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path, falling back to defaults when the file does not exist,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Catalog.Path = get("CLAIMDESK_CATALOG_PATH", c.Catalog.Path)
	c.Mail.Host = get("CLAIMDESK_SMTP_HOST", c.Mail.Host)
	if p, err := strconv.Atoi(os.Getenv("CLAIMDESK_SMTP_PORT")); err == nil && p > 0 {
		c.Mail.Port = p
	}
	c.Mail.Username = get("CLAIMDESK_SMTP_USERNAME", c.Mail.Username)
	c.Mail.Password = get("CLAIMDESK_SMTP_PASSWORD", c.Mail.Password)
	c.Mail.From = get("CLAIMDESK_MAIL_FROM", c.Mail.From)
	c.Mail.To = get("CLAIMDESK_MAIL_TO", c.Mail.To)
	if cc := os.Getenv("CLAIMDESK_MAIL_CC"); cc != "" {
		c.Mail.Cc = splitList(cc)
	}
	c.Tracker.URL = get("CLAIMDESK_TRACKER_URL", c.Tracker.URL)
	c.Server.Addr = get("CLAIMDESK_ADDR", c.Server.Addr)
	c.Server.DatabaseURL = get("DATABASE_URL", c.Server.DatabaseURL)
	c.Logging.Level = get("CLAIMDESK_LOG_LEVEL", c.Logging.Level)

	if c.Mail.Username == "" {
		c.Mail.Username = c.Mail.From
	}
}

// Validate checks the settings the claim submission path cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Catalog.Path == "" {
		missing = append(missing, "catalog.path")
	}
	if c.Mail.Host == "" {
		missing = append(missing, "mail.host")
	}
	if c.Mail.From == "" {
		missing = append(missing, "mail.from")
	}
	if c.Mail.To == "" {
		missing = append(missing, "mail.to")
	}
	if c.Tracker.URL == "" {
		missing = append(missing, "tracker.url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// CatalogTTL returns the catalog cache window.
func (c *Config) CatalogTTL() time.Duration { return duration(c.Catalog.TTL, 5*time.Minute) }

// MailTimeout returns the SMTP dial and exchange timeout.
func (c *Config) MailTimeout() time.Duration { return duration(c.Mail.Timeout, 10*time.Second) }

// TrackerTimeout returns the per-request tracker timeout.
func (c *Config) TrackerTimeout() time.Duration { return duration(c.Tracker.Timeout, 8*time.Second) }

// MaxUploadBytes returns the multipart size limit for claim submissions.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
