package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:3000", cfg.Target.URL)
	assert.Equal(t, "verification_branches_clean.png", cfg.Target.Output)
	assert.Equal(t, "footer", cfg.Target.FooterSelector)
	assert.Equal(t, "Способ получения", cfg.Modal.Title)
	assert.Equal(t, "Заберите заказ сами", cfg.Modal.Option)
	assert.Equal(t, "Сохранить", cfg.Modal.Save)
	assert.Equal(t, "Наши филиалы", cfg.Heading.Text)
	assert.Equal(t, []string{"heading"}, cfg.Heading.Roles)
	assert.True(t, cfg.Browser.Headless)
	assert.False(t, cfg.Strict)

	assert.Equal(t, 5*time.Second, cfg.ModalAppearTimeout())
	assert.Equal(t, 30*time.Second, cfg.ElementTimeout())
	assert.Equal(t, 2*time.Minute, cfg.RunTimeout())

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty url",
			mutate:  func(c *Config) { c.Target.URL = "" },
			wantErr: "target.url is empty",
		},
		{
			name:    "empty output",
			mutate:  func(c *Config) { c.Target.Output = "" },
			wantErr: "target.output is empty",
		},
		{
			name:    "empty heading",
			mutate:  func(c *Config) { c.Heading.Text = "" },
			wantErr: "heading.text is empty",
		},
		{
			name:    "zero modal timeout",
			mutate:  func(c *Config) { c.Modal.AppearTimeoutMS = 0 },
			wantErr: "modal.appear_timeout_ms must be positive",
		},
		{
			name:    "negative run timeout",
			mutate:  func(c *Config) { c.Timeout.RunSeconds = -1 },
			wantErr: "timeouts.run_seconds must be positive",
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.Browser.WindowWidth = 0 },
			wantErr: "browser window size must be positive",
		},
		{
			name:    "zero watch interval",
			mutate:  func(c *Config) { c.Watch.IntervalMinutes = 0 },
			wantErr: "watch.interval_minutes must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ModalDisabledIgnoresModalFields(t *testing.T) {
	cfg := Default()
	cfg.Modal.Enabled = false
	cfg.Modal.Title = ""
	cfg.Modal.AppearTimeoutMS = 0

	assert.NoError(t, cfg.Validate())
}

func TestValidate_CronReplacesInterval(t *testing.T) {
	cfg := Default()
	cfg.Watch.IntervalMinutes = 0
	cfg.Watch.Cron = "0 9 * * *"

	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[target]
url = "http://127.0.0.1:8080"

[modal]
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Target.URL)
	assert.False(t, cfg.Modal.Enabled)
	assert.Equal(t, "verification_branches_clean.png", cfg.Target.Output)
	assert.Equal(t, "Наши филиалы", cfg.Heading.Text)
	assert.Equal(t, 30, cfg.Timeout.ElementSeconds)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[target\nurl = "), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Target.Output = "out/footer.png"
	cfg.Heading.Roles = []string{"heading", "button"}
	cfg.Browser.RemoteURL = "ws://127.0.0.1:9222"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestHistoryPath(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join(DataDir(), "history.db"), cfg.HistoryPath())

	cfg.History.Path = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", cfg.HistoryPath())
}
