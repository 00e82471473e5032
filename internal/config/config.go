package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/MadhavanR1204/toonzy/internal/reader"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

const (
	configFileName = "config.yaml"
	appDirName     = "toonzy"
	logFileName    = "toonzy.log"

	// EnvPrefix prefixes environment overrides; "__" separates nested keys
	EnvPrefix = "TOONZY_"
)

// Config holds the application configuration
type Config struct {
	Source        string `yaml:"source" koanf:"source"`
	TotalChapters int    `yaml:"total_chapters" koanf:"total_chapters"`
	Catalog       string `yaml:"catalog,omitempty" koanf:"catalog"`
	Token         string `yaml:"token,omitempty" koanf:"token"`
	Theme         string `yaml:"theme" koanf:"theme"`
	Images        string `yaml:"images" koanf:"images"`
	LogFile       string `yaml:"log_file" koanf:"log_file"`
	CacheDir      string `yaml:"cache_dir" koanf:"cache_dir"`

	Reader   ReaderConfig           `yaml:"reader" koanf:"reader"`
	LastRead models.ReadingPosition `yaml:"last_read" koanf:"last_read"`

	// Path to config file (not persisted)
	path string

	// stored is the file layer without env overrides; Save writes it
	stored *Config
}

// ReaderConfig overrides reader settings; zero values keep the defaults
type ReaderConfig struct {
	CompactBelow   int           `yaml:"compact_below" koanf:"compact_below"`
	CompactScale   float64       `yaml:"compact_scale" koanf:"compact_scale"`
	FullScale      float64       `yaml:"full_scale" koanf:"full_scale"`
	PageGap        int           `yaml:"page_gap" koanf:"page_gap"`
	CellWidth      int           `yaml:"cell_width" koanf:"cell_width"`
	CellHeight     int           `yaml:"cell_height" koanf:"cell_height"`
	ResizeQuiet    time.Duration `yaml:"resize_quiet" koanf:"resize_quiet"`
	ZoomFactor     float64       `yaml:"zoom_factor" koanf:"zoom_factor"`
	SwipeThreshold float64       `yaml:"swipe_threshold" koanf:"swipe_threshold"`
}

// DefaultConfig returns a Config with the stock settings
func DefaultConfig() *Config {
	opts := reader.DefaultOptions()
	cacheDir := defaultCacheDir()
	return &Config{
		Source:        opts.SourcePattern,
		TotalChapters: opts.TotalChapters,
		Theme:         "dark",
		Images:        "auto",
		LogFile:       filepath.Join(cacheDir, logFileName),
		CacheDir:      cacheDir,
		Reader: ReaderConfig{
			CompactBelow:   opts.CompactBelow,
			CompactScale:   opts.Compact.Scale,
			FullScale:      opts.Full.Scale,
			PageGap:        opts.PageGap,
			CellWidth:      opts.CellWidth,
			CellHeight:     opts.CellHeight,
			ResizeQuiet:    opts.ResizeQuiet,
			ZoomFactor:     opts.ZoomFactor,
			SwipeThreshold: opts.Swipe.Threshold,
		},
	}
}

// Load reads configuration from the YAML file at path (the default location
// when empty), then overlays TOONZY_* environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	stored := DefaultConfig()
	if err := k.Unmarshal("", stored); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// TOONZY_READER__PAGE_GAP -> reader.page_gap
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.path = path
	cfg.stored = stored
	return cfg, cfg.Validate()
}

// Validate checks that the configuration contains usable values
func (c *Config) Validate() error {
	if c.Source == "" && c.Catalog == "" {
		return fmt.Errorf("source is required")
	}
	if c.TotalChapters < 1 {
		return fmt.Errorf("total_chapters must be at least 1, got %d", c.TotalChapters)
	}
	if c.Reader.CompactScale < 0 || c.Reader.FullScale < 0 {
		return fmt.Errorf("reader scales must be non-negative")
	}
	if c.Reader.PageGap < 0 {
		return fmt.Errorf("reader.page_gap must be non-negative")
	}
	return nil
}

// Path returns the file the configuration is saved to
func (c *Config) Path() string {
	return c.path
}

// Save persists the configuration to disk. A loaded configuration writes
// its file layer only, with the theme and reading position applied.
func (c *Config) Save() error {
	if c.path == "" {
		path, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = path
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	// Env and flag overrides stay out of the file
	out := c
	if c.stored != nil {
		out = c.stored
	}
	data, err := yamlv3.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", c.path, err)
	}
	return nil
}

// SetTheme updates the theme and saves
func (c *Config) SetTheme(name string) error {
	c.Theme = name
	if c.stored != nil {
		c.stored.Theme = name
	}
	return c.Save()
}

// SetLastRead records the reading position and saves
func (c *Config) SetLastRead(chapter, page int) error {
	c.LastRead = models.ReadingPosition{
		Chapter:   chapter,
		Page:      page,
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if c.stored != nil {
		c.stored.LastRead = c.LastRead
	}
	return c.Save()
}

// ReaderOptions returns the reader settings with overrides applied
func (c *Config) ReaderOptions() reader.Options {
	opts := reader.DefaultOptions()
	if c.Source != "" {
		opts.SourcePattern = c.Source
	}
	if c.TotalChapters > 0 {
		opts.TotalChapters = c.TotalChapters
	}

	r := c.Reader
	if r.CompactBelow > 0 {
		opts.CompactBelow = r.CompactBelow
	}
	if r.CompactScale > 0 {
		opts.Compact.Scale = r.CompactScale
	}
	if r.FullScale > 0 {
		opts.Full.Scale = r.FullScale
	}
	if r.PageGap >= 0 {
		opts.PageGap = r.PageGap
	}
	if r.CellWidth > 0 {
		opts.CellWidth = r.CellWidth
	}
	if r.CellHeight > 0 {
		opts.CellHeight = r.CellHeight
	}
	if r.ResizeQuiet > 0 {
		opts.ResizeQuiet = r.ResizeQuiet
	}
	if r.ZoomFactor > 1 {
		opts.ZoomFactor = r.ZoomFactor
	}
	if r.SwipeThreshold > 0 {
		opts.Swipe.Threshold = r.SwipeThreshold
	}
	return opts
}

// DefaultPath returns the path to the config file
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, appDirName, configFileName), nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appDirName)
}
