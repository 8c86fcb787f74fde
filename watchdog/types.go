// Package watchdog defines core types for the connectivity watchdog.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// DefaultUserAgent identifies probe requests to the remote servers.
const DefaultUserAgent = "connectivity-watchdog/1.0"

var (
	ErrNoCheckURLs        = errors.New("at least one check URL is required")
	ErrCheckInterval      = errors.New("check interval must be positive")
	ErrMaxNumFailures     = errors.New("max number of failures must be at least 1")
	ErrCheckURLTimeout    = errors.New("check URL timeout must be positive")
	ErrSettingChangeDelay = errors.New("setting change delay must not be negative")
	ErrNoSubscriber       = errors.New("no network change subscriber configured")
)

// Config is supplied once at startup and never mutated afterwards.
type Config struct {
	CheckURLs          []string
	CheckInterval      time.Duration
	MaxNumFailures     int
	CheckURLTimeout    time.Duration
	SettingChangeDelay time.Duration
	Debug              bool

	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// IgnoredProperties defaults to DefaultIgnoredProperties.
	IgnoredProperties []string
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case len(c.CheckURLs) == 0:
		return ErrNoCheckURLs
	case c.CheckInterval <= 0:
		return ErrCheckInterval
	case c.MaxNumFailures < 1:
		return ErrMaxNumFailures
	case c.CheckURLTimeout <= 0:
		return ErrCheckURLTimeout
	case c.SettingChangeDelay < 0:
		return ErrSettingChangeDelay
	}
	for _, u := range c.CheckURLs {
		if u == "" {
			return fmt.Errorf("%w: empty URL", ErrNoCheckURLs)
		}
	}
	return nil
}

// ProbeError is one failed URL check.
type ProbeError struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("URL check for %s failed: %s", e.URL, e.Reason)
}

// ProbeErrors unpacks the error returned by a probe round into the
// per-URL failures, in probe order. A nil error yields nil.
func ProbeErrors(err error) []ProbeError {
	if err == nil {
		return nil
	}
	var out []ProbeError
	for _, e := range multierr.Errors(err) {
		var pe *ProbeError
		if errors.As(e, &pe) {
			out = append(out, *pe)
			continue
		}
		out = append(out, ProbeError{Reason: e.Error()})
	}
	return out
}

// ChangeEvent is the most recent relevant configuration change reported
// by the connection manager.
type ChangeEvent struct {
	ID       string    `json:"id,omitempty"`
	Time     time.Time `json:"time"`
	Property string    `json:"property"`
	Service  string    `json:"service"`
	Value    string    `json:"value"`
}

// noChangeEvent stands for "nothing observed yet"; its timestamp is old
// enough that any recency check against it fails.
func noChangeEvent() ChangeEvent {
	return ChangeEvent{Time: time.Unix(0, 0)}
}

// PropertyChange is a single property-changed notification for a service.
type PropertyChange struct {
	Service string
	Name    string
	Value   string
}

// Service is one network service as listed by the connection manager,
// in manager order.
type Service struct {
	Path  string
	State string
	Proxy ProxySettings
}

// ProxySettings holds the raw proxy configuration of a service.
type ProxySettings struct {
	Method  string
	Servers []string
}

// ===== Collaborators =====

// Prober runs one probe round. A nil error means success.
type Prober interface {
	Probe(ctx context.Context, urls []string, proxy *ProxyConfig) error
}

// ServiceLister enumerates the connection manager's services.
type ServiceLister interface {
	Services(ctx context.Context) ([]Service, error)
}

// Subscriber delivers property-changed notifications. The returned
// channel stays open for the lifetime of the subscription.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan PropertyChange, error)
}

// Recoverer performs the recovery action on loss of connectivity.
type Recoverer interface {
	Recover(ctx context.Context) error
}

// Recorder receives observations for metrics.
type Recorder interface {
	ProbeRound(err error, took time.Duration)
	Transition(from, to StateKind)
	Recovery(err error)
	ChangeEvent(property string, ignored bool)
}

type nopRecorder struct{}

func (nopRecorder) ProbeRound(error, time.Duration) {}
func (nopRecorder) Transition(StateKind, StateKind) {}
func (nopRecorder) Recovery(error)                  {}
func (nopRecorder) ChangeEvent(string, bool)        {}

// Status is a point-in-time copy of the watchdog's progress.
type Status struct {
	State           string       `json:"state"`
	Kind            StateKind    `json:"kind"`
	LastChange      ChangeEvent  `json:"last_change"`
	LastProbeAt     time.Time    `json:"last_probe_at,omitempty"`
	LastProbeErrors []ProbeError `json:"last_probe_errors,omitempty"`
	ProbeRounds     int          `json:"probe_rounds"`
	ProbeFailures   int          `json:"probe_failures"`
	Recoveries      int          `json:"recoveries"`
	StartedAt       time.Time    `json:"started_at"`
}
