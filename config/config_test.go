package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
catalog:
  path: data/catalog.xlsx
  ttl: 90s
mail:
  host: smtp.example.com
  port: 2525
  from: desk@example.com
  to: warranty@example.com
  cc: [ops@example.com, audit@example.com]
  timeout: 3s
tracker:
  url: https://tracker.example.com/exec
`

func TestLoad_FileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claimdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/catalog.xlsx", cfg.Catalog.Path)
	assert.Equal(t, 90*time.Second, cfg.CatalogTTL())
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.Equal(t, []string{"ops@example.com", "audit@example.com"}, cfg.Mail.Cc)
	assert.Equal(t, 3*time.Second, cfg.MailTimeout())
	assert.Equal(t, 8*time.Second, cfg.TrackerTimeout())
	assert.Equal(t, "Warranty Claim Submission", cfg.Mail.SubjectPrefix)
	assert.Equal(t, "desk@example.com", cfg.Mail.Username, "username defaults to sender")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "OSID DATA.xlsx", cfg.Catalog.Path)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL())
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mail: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("secrets and recipients come from the environment", func(t *testing.T) {
		t.Setenv("CLAIMDESK_SMTP_PASSWORD", "app-password")
		t.Setenv("CLAIMDESK_MAIL_CC", " a@example.com, ,b@example.com ")
		t.Setenv("CLAIMDESK_TRACKER_URL", "http://localhost:9090/")
		t.Setenv("CLAIMDESK_SMTP_PORT", "465")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "app-password", cfg.Mail.Password)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Mail.Cc)
		assert.Equal(t, "http://localhost:9090/", cfg.Tracker.URL)
		assert.Equal(t, 465, cfg.Mail.Port)
	})

	t.Run("bad port keeps the configured value", func(t *testing.T) {
		t.Setenv("CLAIMDESK_SMTP_PORT", "not-a-port")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, 587, cfg.Mail.Port)
	})
}

func TestValidate_ReportsEveryMissingField(t *testing.T) {
	cfg := Default()
	cfg.Mail.Host = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.host")
	assert.Contains(t, err.Error(), "mail.from")
	assert.Contains(t, err.Error(), "mail.to")
	assert.Contains(t, err.Error(), "tracker.url")
}
