package watchdog

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProbeFunc runs one probe round; nil means success.
type ProbeFunc func() error

// Transition is the outcome of one step of the state machine. Sleep is
// performed by the caller after the step.
type Transition struct {
	From  State
	Next  State
	Sleep time.Duration

	Probed      bool
	ProbeErr    error
	Recovered   bool
	RecoveryErr error
}

// Engine holds the transition rules.
type Engine struct {
	maxNumFailures int
	checkInterval  time.Duration
	recoverer      Recoverer
	logger         *zap.Logger
}

func NewEngine(cfg Config, recoverer Recoverer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		maxNumFailures: cfg.MaxNumFailures,
		checkInterval:  cfg.CheckInterval,
		recoverer:      recoverer,
		logger:         logger,
	}
}

// Step runs the transition for state. probe is only called by the
// states that probe.
func (e *Engine) Step(ctx context.Context, state State, probe ProbeFunc) Transition {
	var t Transition
	switch s := state.(type) {
	case NeverConnected:
		t = e.neverConnected(probe)
	case OnceConnected:
		t = e.onceConnected(s, probe)
	case Disconnected:
		t = e.disconnected(ctx)
	case SettingChangeDelay:
		t = e.settingChangeDelay(s)
	default:
		e.logger.Error("unknown state, starting over", zap.Any("state", state))
		t = Transition{Next: NeverConnected{}}
	}
	t.From = state
	return t
}

func (e *Engine) neverConnected(probe ProbeFunc) Transition {
	err := probe()
	if err != nil {
		e.logger.Info("check URL failed for all URLs, sleeping", zap.Duration("interval", e.checkInterval))
		return Transition{Next: NeverConnected{}, Sleep: e.checkInterval, Probed: true, ProbeErr: err}
	}
	e.logger.Info("detected a working internet connection")
	return Transition{Next: OnceConnected{RemainingAttempts: e.maxNumFailures}, Probed: true}
}

func (e *Engine) onceConnected(s OnceConnected, probe ProbeFunc) Transition {
	err := probe()
	if err == nil {
		e.logger.Debug("check URL successful")
		return Transition{
			Next:   OnceConnected{RemainingAttempts: e.maxNumFailures},
			Sleep:  e.checkInterval,
			Probed: true,
		}
	}

	remaining := s.RemainingAttempts - 1
	if remaining > 0 {
		e.logger.Info("check URLs failed", zap.Int("remaining_attempts", remaining))
		return Transition{
			Next:     OnceConnected{RemainingAttempts: remaining},
			Sleep:    e.checkInterval,
			Probed:   true,
			ProbeErr: err,
		}
	}

	e.logger.Info("internet connection considered lost",
		zap.Int("failures", e.maxNumFailures),
		zap.String("last_errors", briefErrors(err)))
	return Transition{Next: Disconnected{}, Probed: true, ProbeErr: err}
}

func (e *Engine) disconnected(ctx context.Context) Transition {
	t := Transition{Next: NeverConnected{}, Recovered: true}
	if e.recoverer == nil {
		e.logger.Warn("no recovery action configured")
		return t
	}
	e.logger.Info("restarting network service")
	if err := e.recoverer.Recover(ctx); err != nil {
		e.logger.Error("recovery action failed", zap.Error(err))
		t.RecoveryErr = err
	}
	return t
}

func (e *Engine) settingChangeDelay(s SettingChangeDelay) Transition {
	sleep := time.Duration(math.Ceil(s.RemainingDelay.Seconds())) * time.Second
	e.logger.Info("sleeping after network setting changes", zap.Duration("delay", sleep))
	next := s.Resume
	if next == nil {
		next = NeverConnected{}
	}
	return Transition{Next: next, Sleep: sleep}
}

func briefErrors(err error) string {
	var b strings.Builder
	for i, pe := range ProbeErrors(err) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(pe.URL)
		b.WriteString(": ")
		b.WriteString(pe.Reason)
	}
	return b.String()
}
