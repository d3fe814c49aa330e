package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devhatch/devhatch/internal/logger"
)

const (
	DefaultListen        = "127.0.0.1:8099"
	DefaultBasePath      = "/api"
	DefaultDetectTimeout = 30 * time.Second
)

// DefaultRuntimes names the interpreter binaries the process-table sweep
// matches against. Dev servers are overwhelmingly node-hosted.
var DefaultRuntimes = []string{"node"}

// Config is the top-level TOML structure.
type Config struct {
	DetectTimeout time.Duration `toml:"detect_timeout" mapstructure:"detect_timeout"`
	Runtimes      []string      `toml:"runtimes" mapstructure:"runtimes"`
	Server        ServerConfig  `toml:"server" mapstructure:"server"`
	Log           LogConfig     `toml:"log" mapstructure:"log"`
	History       HistoryConfig `toml:"history" mapstructure:"history"`
	Projects      []Project     `toml:"projects" mapstructure:"projects"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type LogConfig struct {
	Level   string        `toml:"level" mapstructure:"level"`
	Color   bool          `toml:"color" mapstructure:"color"`
	Capture logger.Config `toml:"capture" mapstructure:"capture"`
}

// HistoryConfig selects where session history goes. DSN is a sqlite file
// path unless it carries a postgres:// or postgresql:// scheme. Empty
// disables history.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Project is one configured dev server. Path doubles as the registry key
// and the working directory of the spawned command.
type Project struct {
	Name           string `toml:"name" mapstructure:"name"`
	Path           string `toml:"path" mapstructure:"path"`
	Command        string `toml:"command" mapstructure:"command"`
	OpenInBrowser  *bool  `toml:"open_in_browser" mapstructure:"open_in_browser"`
	OpenInTerminal bool   `toml:"open_in_terminal" mapstructure:"open_in_terminal"`
}

// BrowserEnabled applies the default: auto-open unless explicitly disabled.
func (p Project) BrowserEnabled() bool {
	return p.OpenInBrowser == nil || *p.OpenInBrowser
}

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = DefaultBasePath
	}
	if c.DetectTimeout <= 0 {
		c.DetectTimeout = DefaultDetectTimeout
	}
	if len(c.Runtimes) == 0 {
		c.Runtimes = append([]string(nil), DefaultRuntimes...)
	}
}

func (c *Config) validate() error {
	names := make(map[string]struct{}, len(c.Projects))
	paths := make(map[string]struct{}, len(c.Projects))
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("projects[%d]: name is required", i)
		}
		if strings.TrimSpace(p.Path) == "" {
			return fmt.Errorf("project %q: path is required", p.Name)
		}
		if strings.TrimSpace(p.Command) == "" {
			return fmt.Errorf("project %q: command is required", p.Name)
		}
		if _, dup := names[p.Name]; dup {
			return fmt.Errorf("duplicate project name %q", p.Name)
		}
		names[p.Name] = struct{}{}
		if _, dup := paths[p.Path]; dup {
			return fmt.Errorf("duplicate project path %q", p.Path)
		}
		paths[p.Path] = struct{}{}
	}
	return nil
}

// FindProject resolves a CLI argument, matching by name first, then path.
func (c *Config) FindProject(nameOrPath string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == nameOrPath {
			return p, true
		}
	}
	for _, p := range c.Projects {
		if p.Path == nameOrPath {
			return p, true
		}
	}
	return Project{}, false
}
