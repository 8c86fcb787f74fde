package watchdog

import (
	"fmt"
	"time"
)

// StateKind discriminates the State variants.
type StateKind string

const (
	KindNeverConnected     StateKind = "NEVER_CONNECTED"
	KindOnceConnected      StateKind = "ONCE_CONNECTED"
	KindDisconnected       StateKind = "DISCONNECTED"
	KindSettingChangeDelay StateKind = "SETTING_CHANGE_DELAY"
)

// State is one of NeverConnected, OnceConnected, Disconnected or
// SettingChangeDelay. States are values and are replaced, never mutated.
type State interface {
	fmt.Stringer
	Kind() StateKind
	isState()
}

// NeverConnected is the initial state: connectivity has not been proven.
type NeverConnected struct{}

// OnceConnected counts down the consecutive failures still allowed
// before connectivity is declared lost.
type OnceConnected struct {
	RemainingAttempts int
}

// Disconnected triggers the recovery action.
type Disconnected struct{}

// SettingChangeDelay postpones Resume until RemainingDelay has passed.
// Resume is never itself a SettingChangeDelay.
type SettingChangeDelay struct {
	RemainingDelay time.Duration
	Resume         State
}

func (NeverConnected) Kind() StateKind     { return KindNeverConnected }
func (OnceConnected) Kind() StateKind      { return KindOnceConnected }
func (Disconnected) Kind() StateKind       { return KindDisconnected }
func (SettingChangeDelay) Kind() StateKind { return KindSettingChangeDelay }

func (NeverConnected) isState()     {}
func (OnceConnected) isState()      {}
func (Disconnected) isState()       {}
func (SettingChangeDelay) isState() {}

func (NeverConnected) String() string { return string(KindNeverConnected) }

func (s OnceConnected) String() string {
	return fmt.Sprintf("%s (remain = %d)", KindOnceConnected, s.RemainingAttempts)
}

func (Disconnected) String() string { return string(KindDisconnected) }

func (s SettingChangeDelay) String() string {
	return fmt.Sprintf("%s (remaining = %s, resume = %s)", KindSettingChangeDelay, s.RemainingDelay, s.Resume)
}
