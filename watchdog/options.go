// Package watchdog exposes configuration options for the Watchdog via a
// functional options API.
package watchdog

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// ===== Options Pattern =====
type Option func(*Watchdog)

// WithLogger allows injecting a custom zap logger (useful in tests).
func WithLogger(l *zap.Logger) Option {
	return func(w *Watchdog) {
		w.logger = l
		w.loggerExplicit = l != nil
	}
}

// LogConsole turns the stdout sink on or off.
func LogConsole(enabled bool) Option {
	return func(w *Watchdog) { w.logOpts.Console = &enabled }
}

// LogFile adds a file sink. Repeatable.
func LogFile(path string) Option {
	return func(w *Watchdog) { w.logOpts.Files = append(w.logOpts.Files, path) }
}

// DisableLogs discards all log output.
func DisableLogs() Option {
	return func(w *Watchdog) { w.logOpts.Disabled = true }
}

// WithClock replaces the wall clock, e.g. with clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(w *Watchdog) { w.clock = c }
}

// WithProber replaces the HTTP prober.
func WithProber(p Prober) Option {
	return func(w *Watchdog) { w.prober = p }
}

// WithServiceLister sets where proxy settings are read from. Without
// one, probes always connect directly.
func WithServiceLister(l ServiceLister) Option {
	return func(w *Watchdog) { w.lister = l }
}

// WithServiceLookupTimeout bounds each service listing made to resolve
// the proxy. Defaults to DefaultServiceLookupTimeout.
func WithServiceLookupTimeout(d time.Duration) Option {
	return func(w *Watchdog) { w.lookup = d }
}

// WithSubscriber sets the source of network change notifications.
func WithSubscriber(s Subscriber) Option {
	return func(w *Watchdog) { w.subscriber = s }
}

// WithRecoverer sets the action run when connectivity is lost.
func WithRecoverer(r Recoverer) Option {
	return func(w *Watchdog) { w.recoverer = r }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(w *Watchdog) {
		if r != nil {
			w.recorder = r
		}
	}
}
