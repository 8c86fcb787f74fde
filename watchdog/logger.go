package watchdog

import "go.uber.org/zap"

// LogOptions selects where and how verbosely the watchdog logs.
type LogOptions struct {
	Debug bool
	// Console defaults to true when nil.
	Console  *bool
	Files    []string
	Disabled bool
}

// NewLogger builds a production zap logger writing to stdout and/or the
// given files. It never fails: a broken configuration yields a no-op
// logger.
func NewLogger(opts LogOptions) *zap.Logger {
	if opts.Disabled {
		return zap.NewNop()
	}

	console := true
	if opts.Console != nil {
		console = *opts.Console
	}

	var paths []string
	seen := map[string]struct{}{}
	if console {
		paths = append(paths, "stdout")
		seen["stdout"] = struct{}{}
	}
	for _, f := range opts.Files {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		paths = append(paths, f)
	}
	if len(paths) == 0 {
		// No outputs selected: default to console
		paths = []string{"stdout"}
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = paths
	if opts.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
