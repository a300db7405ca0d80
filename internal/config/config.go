package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultWindowSize     = 8
	DefaultCacheSize      = 100
	DefaultPollInterval   = time.Second
	DefaultRenderInterval = 100 * time.Millisecond
	DefaultLrclibURL      = "https://lrclib.net"
	DefaultHTTPTimeout    = 10 * time.Second
)

// Config is the resolved runtime configuration: built-in defaults, then the
// optional TOML file, then environment, then flags.
type Config struct {
	Player         string
	PlayerPriority []string
	WindowSize     int
	CacheSize      int
	PollInterval   time.Duration
	RenderInterval time.Duration
	LrclibURL      string
	HTTPTimeout    time.Duration
	LogFile        string
	HideHeader     bool
}

// tomlConfig mirrors the config file layout
type tomlConfig struct {
	Player struct {
		Name     string   `toml:"name"`
		Priority []string `toml:"priority"`
		PollMs   int      `toml:"poll_interval_ms"`
	} `toml:"player"`

	Display struct {
		Window     int  `toml:"window"`
		HideHeader bool `toml:"hide_header"`
	} `toml:"display"`

	Lyrics struct {
		URL       string `toml:"url"`
		CacheSize int    `toml:"cache_size"`
		TimeoutMs int    `toml:"timeout_ms"`
	} `toml:"lyrics"`

	Log struct {
		File string `toml:"file"`
	} `toml:"log"`
}

// Load builds the configuration from defaults, the config file when
// present, and environment overrides. flag overrides are applied by the
// caller afterwards.
func Load() (*Config, error) {
	cfg := &Config{
		WindowSize:     DefaultWindowSize,
		CacheSize:      DefaultCacheSize,
		PollInterval:   DefaultPollInterval,
		RenderInterval: DefaultRenderInterval,
		LrclibURL:      DefaultLrclibURL,
		HTTPTimeout:    DefaultHTTPTimeout,
	}

	path := configPath()
	if path != "" {
		err := applyFile(cfg, path)
		if err != nil {
			return nil, err
		}
	}

	if url := os.Getenv("LRCLIB_URL"); url != "" {
		cfg.LrclibURL = url
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg tomlConfig
	err = toml.Unmarshal(data, &fileCfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fileCfg.Player.Name != "" {
		cfg.Player = fileCfg.Player.Name
	}
	if len(fileCfg.Player.Priority) > 0 {
		cfg.PlayerPriority = fileCfg.Player.Priority
	}
	if fileCfg.Player.PollMs > 0 {
		cfg.PollInterval = time.Duration(fileCfg.Player.PollMs) * time.Millisecond
	}
	if fileCfg.Display.Window != 0 {
		cfg.WindowSize = fileCfg.Display.Window
	}
	cfg.HideHeader = fileCfg.Display.HideHeader
	if fileCfg.Lyrics.URL != "" {
		cfg.LrclibURL = fileCfg.Lyrics.URL
	}
	if fileCfg.Lyrics.CacheSize != 0 {
		cfg.CacheSize = fileCfg.Lyrics.CacheSize
	}
	if fileCfg.Lyrics.TimeoutMs > 0 {
		cfg.HTTPTimeout = time.Duration(fileCfg.Lyrics.TimeoutMs) * time.Millisecond
	}
	if fileCfg.Log.File != "" {
		cfg.LogFile = fileCfg.Log.File
	}

	return nil
}

func configPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyrsync", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "lyrsync", "config.toml")
}

// Validate rejects values the engine cannot run with. these are the only
// fatal errors in the program.
func (c *Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be at least 1, got %d", c.WindowSize)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1, got %d", c.CacheSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.RenderInterval <= 0 {
		return fmt.Errorf("render interval must be positive, got %s", c.RenderInterval)
	}
	if c.LrclibURL == "" {
		return fmt.Errorf("lyrics provider url is empty")
	}
	return nil
}
