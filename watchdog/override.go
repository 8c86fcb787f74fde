package watchdog

import "time"

// Override wraps current in a SettingChangeDelay when last happened less
// than delay ago. Re-arming an already delayed state keeps its Resume and
// only refreshes the remaining delay. The second result reports whether
// the state was overridden.
func Override(delay time.Duration, now time.Time, current State, last ChangeEvent) (State, bool) {
	elapsed := now.Sub(last.Time)
	remaining := delay - elapsed
	if remaining <= 0 {
		return current, false
	}
	// An event stamped in the future (clock stepped back) never delays
	// longer than one full window.
	if remaining > delay {
		remaining = delay
	}

	resume := current
	if d, ok := current.(SettingChangeDelay); ok {
		resume = d.Resume
	}
	return SettingChangeDelay{RemainingDelay: remaining, Resume: resume}, true
}
