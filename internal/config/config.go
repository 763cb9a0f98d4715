// Package config discovers and loads the lanchat configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/lanchat/internal/editor"
	"github.com/daviddao/lanchat/internal/lan"
	"github.com/daviddao/lanchat/internal/region"
)

const (
	envVar     = "LANCHAT_CONFIG"
	defaultCfg = ".lanchat/config.yaml"
)

// Config is the on-disk configuration. Zero fields take defaults.
type Config struct {
	Name   string `yaml:"name"`
	Port   int    `yaml:"port"`
	Bind   string `yaml:"bind"`
	Server string `yaml:"server"`

	Width    int `yaml:"width"`
	Height   int `yaml:"height"`
	InputCap int `yaml:"input_capacity"`

	Theme Theme `yaml:"theme"`
	Log   Log   `yaml:"log"`
}

// Theme holds lipgloss colour strings ("11", "#FFD75F", ...).
type Theme struct {
	Peer   string `yaml:"peer"`
	Local  string `yaml:"local"`
	Border string `yaml:"border"`
	Title  string `yaml:"title"`
}

// Log configures the session log file.
type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     lan.DefaultPort,
		Server:   fmt.Sprintf("127.0.0.1:%d", lan.DefaultPort),
		Width:    region.DefaultWidth,
		Height:   region.DefaultHeight,
		InputCap: editor.DefaultCapacity,
		Theme: Theme{
			Peer: "11", // bright yellow, SGR 93
		},
		Log: Log{Level: "info"},
	}
}

// Discover finds the configuration file path.
// Priority: LANCHAT_CONFIG env var > .lanchat/config.yaml in CWD > walk up
// parents. It returns "" with a nil error when no file exists.
func Discover() (string, error) {
	if env := os.Getenv(envVar); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("%s=%q: %w", envVar, env, os.ErrNotExist)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, defaultCfg)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, cfg.Validate()
}

// Open discovers and loads the configuration. explicit wins over discovery.
func Open(explicit string) (Config, string, error) {
	path := explicit
	if path == "" {
		var err error
		if path, err = Discover(); err != nil {
			return Default(), "", err
		}
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func (c *Config) merge(o Config) {
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.Bind != "" {
		c.Bind = o.Bind
	}
	if o.Server != "" {
		c.Server = o.Server
	}
	if o.Width != 0 {
		c.Width = o.Width
	}
	if o.Height != 0 {
		c.Height = o.Height
	}
	if o.InputCap != 0 {
		c.InputCap = o.InputCap
	}
	c.Theme.merge(o.Theme)
	if o.Log.File != "" {
		c.Log.File = o.Log.File
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
}

func (t *Theme) merge(o Theme) {
	if o.Peer != "" {
		t.Peer = o.Peer
	}
	if o.Local != "" {
		t.Local = o.Local
	}
	if o.Border != "" {
		t.Border = o.Border
	}
	if o.Title != "" {
		t.Title = o.Title
	}
}

// Validate checks ranges the chat cannot work without.
func (c Config) Validate() error {
	var errs []error
	if c.Width < region.MinWidth {
		errs = append(errs, fmt.Errorf("width %d below %d", c.Width, region.MinWidth))
	}
	if c.Height < region.MinHeight {
		errs = append(errs, fmt.Errorf("height %d below %d", c.Height, region.MinHeight))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.InputCap <= 0 {
		errs = append(errs, fmt.Errorf("input_capacity %d must be positive", c.InputCap))
	}
	return errors.Join(errs...)
}
