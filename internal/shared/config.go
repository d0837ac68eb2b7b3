package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override the file configuration.
const (
	EnvNotionAPIKey     = "NOTION_API_KEY"
	EnvNotionDatabaseID = "NOTION_DATABASE_ID"
	EnvLetterboxdUser   = "LETTERBOXD_USER"
	EnvDebug            = "DEBUG"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Notion     NotionConfig     `toml:"notion"`
	Letterboxd LetterboxdConfig `toml:"letterboxd"`
	Sync       SyncConfig       `toml:"sync"`
	History    HistoryConfig    `toml:"history"`
	Log        LogConfig        `toml:"log"`
}

// NotionConfig contains the Notion integration credentials and database schema.
type NotionConfig struct {
	APIKey     string           `toml:"api_key"`
	DatabaseID string           `toml:"database_id"`
	BaseURL    string           `toml:"base_url"`
	Version    string           `toml:"version"`
	Properties NotionProperties `toml:"properties"`
}

// NotionProperties names the database columns records are written to.
type NotionProperties struct {
	Title     string `toml:"title"`
	Type      string `toml:"type"`
	TypeLabel string `toml:"type_label"`
	Category  string `toml:"category"`
	Source    string `toml:"source"`
}

// LetterboxdConfig contains scraping settings for the source site.
type LetterboxdConfig struct {
	Username       string   `toml:"username"`
	BaseURL        string   `toml:"base_url"`
	UserAgent      string   `toml:"user_agent"`
	HeadersPath    string   `toml:"headers_path"`
	PageDelay      Duration `toml:"page_delay"`
	ItemDelay      Duration `toml:"item_delay"`
	MaxPages       int      `toml:"max_pages"`
	RenderServices bool     `toml:"render_services"`
	RenderSettle   Duration `toml:"render_settle"`
	RenderTimeout  Duration `toml:"render_timeout"`
	ChromePath     string   `toml:"chrome_path"`
}

// SyncConfig contains run behaviour settings.
type SyncConfig struct {
	AvailableServices []string `toml:"available_services"`
	DryRun            bool     `toml:"dry_run"`
	Strict            bool     `toml:"strict"`
}

// HistoryConfig contains run ledger database settings.
type HistoryConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "3s" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment.
//
// Missing files are ignored; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials and the log level from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvNotionAPIKey)); v != "" {
		c.Notion.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvNotionDatabaseID)); v != "" {
		c.Notion.DatabaseID = v
	}
	if v := strings.TrimSpace(getenv(EnvLetterboxdUser)); v != "" {
		c.Letterboxd.Username = v
	}
	if v := strings.TrimSpace(getenv(EnvDebug)); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil && debug {
			c.Log.Level = "debug"
		}
	}
}

// Validate checks the values required before any network activity.
//
// Missing credentials wrap [ErrMissingConfig]; malformed values wrap [ErrInvalidConfig].
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Notion.APIKey) == "" {
		missing = append(missing, EnvNotionAPIKey)
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		missing = append(missing, EnvNotionDatabaseID)
	}
	if strings.TrimSpace(c.Letterboxd.Username) == "" {
		missing = append(missing, EnvLetterboxdUser)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	return c.validateValues()
}

// ValidateScrape checks only what the Letterboxd side needs.
func (c *Config) ValidateScrape() error {
	if strings.TrimSpace(c.Letterboxd.Username) == "" {
		return fmt.Errorf("%w: set %s", ErrMissingConfig, EnvLetterboxdUser)
	}
	return c.validateValues()
}

// ValidateNotion checks only what the Notion side needs.
func (c *Config) ValidateNotion() error {
	var missing []string
	if strings.TrimSpace(c.Notion.APIKey) == "" {
		missing = append(missing, EnvNotionAPIKey)
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		missing = append(missing, EnvNotionDatabaseID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return c.validateValues()
}

func (c *Config) validateValues() error {
	for name, raw := range map[string]string{
		"notion.base_url":     c.Notion.BaseURL,
		"letterboxd.base_url": c.Letterboxd.BaseURL,
	} {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidConfig, name, raw)
		}
	}
	if c.Letterboxd.PageDelay.Duration < 0 || c.Letterboxd.ItemDelay.Duration < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}
	if c.Letterboxd.MaxPages < 0 {
		return fmt.Errorf("%w: letterboxd.max_pages must not be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Notion.Properties.Title) == "" {
		return fmt.Errorf("%w: notion.properties.title is required", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// NotionDatabaseURL returns the browser URL of the configured database.
func (c *Config) NotionDatabaseURL() string {
	return "https://www.notion.so/" + strings.ReplaceAll(strings.TrimSpace(c.Notion.DatabaseID), "-", "")
}
