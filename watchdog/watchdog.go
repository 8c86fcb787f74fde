// Package watchdog implements the high-level Watchdog control loop.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

type Watchdog struct {
	cfg Config

	logger         *zap.Logger
	loggerExplicit bool // set when WithLogger used
	logOpts        LogOptions

	clock      clock.Clock
	prober     Prober
	lister     ServiceLister
	lookup     time.Duration
	subscriber Subscriber
	recoverer  Recoverer
	recorder   Recorder

	resolver *ProxyResolver
	monitor  *Monitor
	engine   *Engine

	// state is owned by the control loop.
	state State

	mu     sync.RWMutex
	status Status
}

// ===== Constructor =====
func New(cfg Config, opts ...Option) (*Watchdog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid watchdog config: %w", err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.IgnoredProperties == nil {
		cfg.IgnoredProperties = DefaultIgnoredProperties
	}

	w := &Watchdog{
		cfg:      cfg,
		clock:    clock.New(),
		recorder: nopRecorder{},
		state:    NeverConnected{},
	}
	for _, opt := range opts {
		opt(w)
	}
	// Build logger after options applied unless explicitly provided
	if !w.loggerExplicit {
		w.logOpts.Debug = cfg.Debug
		w.logger = NewLogger(w.logOpts)
	}
	if w.prober == nil {
		w.prober = NewHTTPProber(cfg.CheckURLTimeout, cfg.UserAgent, w.logger)
	}

	w.resolver = NewProxyResolver(w.lister, w.lookup, w.logger)
	w.monitor = NewMonitor(cfg.IgnoredProperties, w.clock, w.logger, w.recorder)
	w.engine = NewEngine(cfg, w.recoverer, w.logger)

	w.status = Status{
		State:      w.state.String(),
		Kind:       w.state.Kind(),
		LastChange: w.monitor.Last(),
		StartedAt:  w.clock.Now(),
	}
	return w, nil
}

// ===== Public API =====

// Run starts the change monitor and then loops forever. Sleeps are not
// interrupted; ctx is checked between iterations only. A failed
// subscription is returned immediately.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.subscriber == nil {
		return ErrNoSubscriber
	}
	if err := w.monitor.Start(ctx, w.subscriber); err != nil {
		return err
	}
	w.logger.Info("watchdog started",
		zap.Strings("check_urls", w.cfg.CheckURLs),
		zap.Duration("check_interval", w.cfg.CheckInterval),
		zap.Int("max_num_failures", w.cfg.MaxNumFailures),
		zap.Duration("check_url_timeout", w.cfg.CheckURLTimeout),
		zap.Duration("setting_change_delay", w.cfg.SettingChangeDelay))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := w.Step(ctx)
		if t.Sleep > 0 {
			w.clock.Sleep(t.Sleep)
		}
	}
}

// Step runs one iteration without sleeping: resolve the proxy, apply the
// setting-change override, then run the current state's transition. It
// must not be called concurrently with Run.
func (w *Watchdog) Step(ctx context.Context) Transition {
	proxy := w.resolver.CurrentProxy(ctx)
	probe := w.probeFunc(ctx, proxy)

	last := w.monitor.Last()
	state, overridden := Override(w.cfg.SettingChangeDelay, w.clock.Now(), w.state, last)
	if overridden {
		w.logger.Info("network service properties changed recently, overriding current state",
			zap.String("property", last.Property),
			zap.String("service", last.Service),
			zap.String("event_id", last.ID))
	}
	w.logger.Debug("current state", zap.Stringer("state", state))

	t := w.engine.Step(ctx, state, probe)
	w.recorder.Transition(state.Kind(), t.Next.Kind())
	if t.Recovered {
		w.recorder.Recovery(t.RecoveryErr)
	}
	w.record(t, last)
	return t
}

// State returns the state the next Step starts from.
func (w *Watchdog) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Monitor exposes the change monitor, e.g. to feed it directly.
func (w *Watchdog) Monitor() *Monitor { return w.monitor }

// Logger returns the logger in use.
func (w *Watchdog) Logger() *zap.Logger { return w.logger }

// Snapshot returns a copy of the current status.
func (w *Watchdog) Snapshot() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.status
	s.LastChange = w.monitor.Last()
	s.LastProbeErrors = append([]ProbeError(nil), w.status.LastProbeErrors...)
	return s
}

// ===== Internals =====

func (w *Watchdog) probeFunc(ctx context.Context, proxy *ProxyConfig) ProbeFunc {
	return func() error {
		if proxy != nil {
			w.logger.Debug("probing through proxy", zap.Stringer("proxy", proxy))
		}
		start := w.clock.Now()
		err := w.prober.Probe(ctx, w.cfg.CheckURLs, proxy)
		w.recorder.ProbeRound(err, w.clock.Since(start))
		return err
	}
}

func (w *Watchdog) record(t Transition, last ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = t.Next
	w.status.State = t.Next.String()
	w.status.Kind = t.Next.Kind()
	w.status.LastChange = last
	if t.Probed {
		w.status.ProbeRounds++
		w.status.LastProbeAt = w.clock.Now()
		w.status.LastProbeErrors = ProbeErrors(t.ProbeErr)
		if t.ProbeErr != nil {
			w.status.ProbeFailures++
		}
	}
	if t.Recovered {
		w.status.Recoveries++
	}
}

// Uptime is how long the watchdog has existed.
func (w *Watchdog) Uptime() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clock.Since(w.status.StartedAt)
}
