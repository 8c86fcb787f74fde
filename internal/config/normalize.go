package config

import (
	"github.com/amartya2002/connectivity-watchdog/internal/supervisor"
	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.RestartCommand == "" {
		cfg.RestartCommand = supervisor.DefaultRestartCommand
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = watchdog.DefaultUserAgent
	}
	// An explicit empty list means "ignore nothing".
	if cfg.IgnoredProperties == nil {
		cfg.IgnoredProperties = append([]string(nil), watchdog.DefaultIgnoredProperties...)
	}

	// Drop duplicate URLs, keeping the first occurrence so probe order
	// is preserved.
	seen := make(map[string]struct{}, len(cfg.CheckURLs))
	urls := cfg.CheckURLs[:0]
	for _, u := range cfg.CheckURLs {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	cfg.CheckURLs = urls
}
