// Package config loads the watchdog configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

// Config is the on-disk and command-line configuration. Durations are
// in (fractional) seconds.
type Config struct {
	CheckURLs          []string `yaml:"check_urls"`
	CheckInterval      float64  `yaml:"check_interval"`
	MaxNumFailures     int      `yaml:"max_num_failures"`
	CheckURLTimeout    float64  `yaml:"check_url_timeout"`
	SettingChangeDelay float64  `yaml:"setting_change_delay"`
	Debug              bool     `yaml:"debug"`

	RestartCommand    string   `yaml:"restart_command"`
	IgnoredProperties []string `yaml:"ignored_properties"`
	UserAgent         string   `yaml:"user_agent"`

	// Optional status API, e.g. "127.0.0.1:9099". Empty disables it.
	StatusListen string `yaml:"status_listen"`

	LogFiles []string `yaml:"log_files"`
}

// Load reads a YAML file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Watchdog converts to the watchdog's runtime configuration.
func (c *Config) Watchdog() watchdog.Config {
	return watchdog.Config{
		CheckURLs:          append([]string(nil), c.CheckURLs...),
		CheckInterval:      seconds(c.CheckInterval),
		MaxNumFailures:     c.MaxNumFailures,
		CheckURLTimeout:    seconds(c.CheckURLTimeout),
		SettingChangeDelay: seconds(c.SettingChangeDelay),
		Debug:              c.Debug,
		UserAgent:          c.UserAgent,
		IgnoredProperties:  c.IgnoredProperties,
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
