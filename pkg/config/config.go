// Package config loads the Tractor client configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juliaogris/tractor/pkg/engine"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPath is the configuration file read if no path is given.
const DefaultPath = "~/.config/tractor/client.toml"

// Config holds client settings. Unset fields leave the engine client's
// environment defaults in place.
type Config struct {
	Engine      string
	User        string
	SessionFile string
	URLPrefix   string
	Timeout     time.Duration
	Debug       bool
	NewSession  bool
}

// Load parses the configuration file at path, or DefaultPath if path is
// empty. A missing file yields an empty Config.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}
	b, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Engine      string `toml:"engine"`
		User        string `toml:"user"`
		SessionFile string `toml:"session_file"`
		URLPrefix   string `toml:"url_prefix"`
		Timeout     string `toml:"timeout"`
		Debug       bool   `toml:"debug"`
		NewSession  bool   `toml:"new_session"`
	}
	if err := toml.Unmarshal(b, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg := Config{
		Engine:      strings.TrimSpace(raw.Engine),
		User:        strings.TrimSpace(raw.User),
		SessionFile: strings.TrimSpace(raw.SessionFile),
		URLPrefix:   raw.URLPrefix,
		Debug:       raw.Debug,
		NewSession:  raw.NewSession,
	}
	if t := strings.TrimSpace(raw.Timeout); t != "" {
		if cfg.Timeout, err = time.ParseDuration(t); err != nil {
			return Config{}, fmt.Errorf("parse config %s: timeout: %w", resolved, err)
		}
	}
	if cfg.SessionFile != "" {
		if cfg.SessionFile, err = expandPath(cfg.SessionFile); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// ClientOptions returns the engine client options for the set fields.
func (c Config) ClientOptions() ([]engine.Option, error) {
	var opts []engine.Option
	if c.Engine != "" {
		host, port, err := engine.HostPortForEngine(c.Engine)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithEngine(host, port))
	}
	if c.User != "" {
		opts = append(opts, engine.WithUser(c.User))
	}
	if c.SessionFile != "" {
		opts = append(opts, engine.WithSessionFile(c.SessionFile))
	}
	if c.URLPrefix != "" {
		opts = append(opts, engine.WithURLPrefix(c.URLPrefix))
	}
	if c.Timeout > 0 {
		opts = append(opts, engine.WithTimeout(c.Timeout))
	}
	if c.Debug {
		opts = append(opts, engine.WithDebug(true))
	}
	if c.NewSession {
		opts = append(opts, engine.WithNewSession(true))
	}
	return opts, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
