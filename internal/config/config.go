package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// AppName names the config and data directories
const AppName = "verifyshot"

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	Strict  bool          `toml:"strict"`
	Target  TargetConfig  `toml:"target"`
	Modal   ModalConfig   `toml:"modal"`
	Heading HeadingConfig `toml:"heading"`
	Page    PageConfig    `toml:"page"`
	Browser BrowserConfig `toml:"browser"`
	Timeout TimeoutConfig `toml:"timeouts"`
	History HistoryConfig `toml:"history"`
	Watch   WatchConfig   `toml:"watch"`
}

// TargetConfig describes the footer verification run
type TargetConfig struct {
	URL            string `toml:"url"`
	Output         string `toml:"output"`
	FooterSelector string `toml:"footer_selector"`
}

// ModalConfig describes the location modal and how to dismiss it
type ModalConfig struct {
	Enabled           bool   `toml:"enabled"`
	Title             string `toml:"title"`
	Option            string `toml:"option"`
	SelectFirstBranch bool   `toml:"select_first_branch"`
	BranchSelector    string `toml:"branch_selector"`
	Save              string `toml:"save"`
	AppearTimeoutMS   int    `toml:"appear_timeout_ms"`
}

type HeadingConfig struct {
	Text  string   `toml:"text"`
	Roles []string `toml:"roles"`
}

// PageConfig describes the full-page capture
type PageConfig struct {
	URL    string `toml:"url"`
	Output string `toml:"output"`
}

type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	WindowWidth  int    `toml:"window_width"`
	WindowHeight int    `toml:"window_height"`
	UserAgent    string `toml:"user_agent"`
	ExecPath     string `toml:"exec_path"`
	RemoteURL    string `toml:"remote_url"`
	CookiesFile  string `toml:"cookies_file"`
}

type TimeoutConfig struct {
	ElementSeconds int `toml:"element_seconds"`
	RunSeconds     int `toml:"run_seconds"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // empty means <data dir>/history.db
	Keep    int    `toml:"keep"`
}

type WatchConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	Cron            string `toml:"cron"`
	Timezone        string `toml:"timezone"`
}

// ErrNotFound is returned by Load when the config file does not exist
var ErrNotFound = errors.New("config file not found")

// Default returns the built-in configuration used when no file exists
func Default() *Config {
	return &Config{
		Version: 1,
		Target: TargetConfig{
			URL:            "http://localhost:3000",
			Output:         "verification_branches_clean.png",
			FooterSelector: "footer",
		},
		Modal: ModalConfig{
			Enabled:           true,
			Title:             "Способ получения",
			Option:            "Заберите заказ сами",
			SelectFirstBranch: true,
			BranchSelector:    `[role="dialog"] [role="radiogroup"] [role="radiogroup"] [role="radio"]`,
			Save:              "Сохранить",
			AppearTimeoutMS:   5000,
		},
		Heading: HeadingConfig{
			Text:  "Наши филиалы",
			Roles: []string{"heading"},
		},
		Page: PageConfig{
			URL:    "http://localhost:3006",
			Output: "page-screenshot.png",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Timeout: TimeoutConfig{
			ElementSeconds: 30,
			RunSeconds:     120,
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    500,
		},
		Watch: WatchConfig{
			IntervalMinutes: 30,
			Timezone:        "Local",
		},
	}
}

// ModalAppearTimeout is how long to wait for the modal before assuming it is absent
func (c *Config) ModalAppearTimeout() time.Duration {
	return time.Duration(c.Modal.AppearTimeoutMS) * time.Millisecond
}

// ElementTimeout bounds every element wait other than the modal
func (c *Config) ElementTimeout() time.Duration {
	return time.Duration(c.Timeout.ElementSeconds) * time.Second
}

// RunTimeout bounds the lifetime of the browser for a single run
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Timeout.RunSeconds) * time.Second
}

// Validate reports every configuration problem found
func (c *Config) Validate() error {
	var problems []string

	if c.Target.URL == "" {
		problems = append(problems, "target.url is empty")
	}
	if c.Target.Output == "" {
		problems = append(problems, "target.output is empty")
	}
	if c.Target.FooterSelector == "" {
		problems = append(problems, "target.footer_selector is empty")
	}
	if c.Heading.Text == "" {
		problems = append(problems, "heading.text is empty")
	}
	if c.Modal.Enabled {
		if c.Modal.Title == "" || c.Modal.Save == "" {
			problems = append(problems, "modal.title and modal.save are required when the modal is enabled")
		}
		if c.Modal.AppearTimeoutMS <= 0 {
			problems = append(problems, "modal.appear_timeout_ms must be positive")
		}
	}
	if c.Timeout.ElementSeconds <= 0 {
		problems = append(problems, "timeouts.element_seconds must be positive")
	}
	if c.Timeout.RunSeconds <= 0 {
		problems = append(problems, "timeouts.run_seconds must be positive")
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		problems = append(problems, "browser window size must be positive")
	}
	if c.Watch.Cron == "" && c.Watch.IntervalMinutes <= 0 {
		problems = append(problems, "watch.interval_minutes must be positive when watch.cron is empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the XDG data directory holding run history
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// HistoryPath returns the run history database path
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(DataDir(), "history.db")
}

// Load reads config from path, or from ConfigPath when path is empty.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes config to path, or to ConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
