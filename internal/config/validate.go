package config

import (
	"fmt"
	"net"
	"net/url"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ===== Check URLs =====

	if len(cfg.CheckURLs) == 0 {
		return fmt.Errorf("at least one check_url is required")
	}
	for _, raw := range cfg.CheckURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("check_url %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("check_url %q: scheme must be http or https", raw)
		}
		if u.Host == "" {
			return fmt.Errorf("check_url %q: missing host", raw)
		}
	}

	// ===== Timing =====

	if cfg.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be > 0, got %v", cfg.CheckInterval)
	}
	if cfg.MaxNumFailures < 1 {
		return fmt.Errorf("max_num_failures must be >= 1, got %d", cfg.MaxNumFailures)
	}
	if cfg.CheckURLTimeout <= 0 {
		return fmt.Errorf("check_url_timeout must be > 0, got %v", cfg.CheckURLTimeout)
	}
	if cfg.SettingChangeDelay < 0 {
		return fmt.Errorf("setting_change_delay must be >= 0, got %v", cfg.SettingChangeDelay)
	}

	// ===== Status API =====

	if cfg.StatusListen != "" {
		if _, _, err := net.SplitHostPort(cfg.StatusListen); err != nil {
			return fmt.Errorf("status_listen %q: %w", cfg.StatusListen, err)
		}
	}

	return nil
}
