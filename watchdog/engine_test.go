package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingRecoverer struct {
	calls int
	err   error
}

func (r *countingRecoverer) Recover(context.Context) error {
	r.calls++
	return r.err
}

func testConfig(maxFailures int) Config {
	return Config{
		CheckURLs:          []string{"http://a.invalid"},
		CheckInterval:      10 * time.Second,
		MaxNumFailures:     maxFailures,
		CheckURLTimeout:    time.Second,
		SettingChangeDelay: 5 * time.Second,
	}
}

func succeed() error { return nil }

func fail() error {
	return multierr.Append(
		&ProbeError{URL: "http://a.invalid", Reason: "no such host"},
		&ProbeError{URL: "http://b.invalid", Reason: "timeout"},
	)
}

func mustNotProbe(t *testing.T) ProbeFunc {
	return func() error {
		t.Fatalf("probe must not be called")
		return nil
	}
}

func TestNeverConnected_SuccessEntersOnceConnected(t *testing.T) {
	e := NewEngine(testConfig(3), nil, nil)
	tr := e.Step(context.Background(), NeverConnected{}, succeed)

	assert.Equal(t, OnceConnected{RemainingAttempts: 3}, tr.Next)
	assert.Zero(t, tr.Sleep)
	assert.True(t, tr.Probed)
	assert.NoError(t, tr.ProbeErr)
	assert.Equal(t, NeverConnected{}, tr.From)
}

// No premature disconnection: failures never leave NeverConnected.
func TestNeverConnected_FailuresStayNeverConnected(t *testing.T) {
	e := NewEngine(testConfig(1), nil, nil)
	var state State = NeverConnected{}
	for i := 0; i < 50; i++ {
		tr := e.Step(context.Background(), state, fail)
		require.Equal(t, NeverConnected{}, tr.Next)
		require.Equal(t, 10*time.Second, tr.Sleep)
		state = tr.Next
	}
}

// Reset invariant: any success restores the full budget.
func TestOnceConnected_SuccessResetsRemaining(t *testing.T) {
	e := NewEngine(testConfig(5), nil, nil)
	for remaining := 1; remaining <= 5; remaining++ {
		tr := e.Step(context.Background(), OnceConnected{RemainingAttempts: remaining}, succeed)
		assert.Equal(t, OnceConnected{RemainingAttempts: 5}, tr.Next)
		assert.Equal(t, 10*time.Second, tr.Sleep)
	}
}

// Monotonic decrement down to Disconnected, never below one.
func TestOnceConnected_FailuresDecrementThenDisconnect(t *testing.T) {
	e := NewEngine(testConfig(4), nil, nil)
	var state State = OnceConnected{RemainingAttempts: 4}
	for _, want := range []int{3, 2, 1} {
		tr := e.Step(context.Background(), state, fail)
		require.Equal(t, OnceConnected{RemainingAttempts: want}, tr.Next)
		require.Equal(t, 10*time.Second, tr.Sleep)
		state = tr.Next
	}
	tr := e.Step(context.Background(), state, fail)
	assert.Equal(t, Disconnected{}, tr.Next)
	assert.Zero(t, tr.Sleep)
	assert.Len(t, ProbeErrors(tr.ProbeErr), 2)
}

func TestDisconnected_RunsRecoveryWithoutProbing(t *testing.T) {
	rec := &countingRecoverer{}
	e := NewEngine(testConfig(3), rec, nil)

	tr := e.Step(context.Background(), Disconnected{}, mustNotProbe(t))
	assert.Equal(t, NeverConnected{}, tr.Next)
	assert.Equal(t, 1, rec.calls)
	assert.True(t, tr.Recovered)
	assert.False(t, tr.Probed)
	assert.NoError(t, tr.RecoveryErr)
}

func TestDisconnected_RecoveryFailureIsLoggedAndIgnored(t *testing.T) {
	core, obs := observer.New(zap.ErrorLevel)
	rec := &countingRecoverer{err: errors.New("exit status 1")}
	e := NewEngine(testConfig(3), rec, zap.New(core))

	tr := e.Step(context.Background(), Disconnected{}, mustNotProbe(t))
	assert.Equal(t, NeverConnected{}, tr.Next)
	assert.EqualError(t, tr.RecoveryErr, "exit status 1")
	require.Equal(t, 1, obs.FilterMessage("recovery action failed").Len())
}

func TestSettingChangeDelay_SleepsWholeSecondsThenResumes(t *testing.T) {
	e := NewEngine(testConfig(3), nil, nil)
	resume := OnceConnected{RemainingAttempts: 2}

	tr := e.Step(context.Background(), SettingChangeDelay{RemainingDelay: 2300 * time.Millisecond, Resume: resume}, mustNotProbe(t))
	assert.Equal(t, resume, tr.Next)
	assert.Equal(t, 3*time.Second, tr.Sleep)
	assert.False(t, tr.Probed)
}

// maxNumFailures=3: a first success, then failures forever.
func TestScenario_AllFailuresCycleThroughRecovery(t *testing.T) {
	rec := &countingRecoverer{}
	e := NewEngine(testConfig(3), rec, nil)

	outcomes := []ProbeFunc{succeed, fail, fail, fail, nil, succeed}
	want := []State{
		OnceConnected{RemainingAttempts: 3},
		OnceConnected{RemainingAttempts: 2},
		OnceConnected{RemainingAttempts: 1},
		Disconnected{},
		NeverConnected{},
		OnceConnected{RemainingAttempts: 3},
	}

	var state State = NeverConnected{}
	for i, probe := range outcomes {
		if probe == nil {
			probe = mustNotProbe(t)
		}
		state = e.Step(context.Background(), state, probe).Next
		require.Equal(t, want[i], state, "step %d", i)
	}
	assert.Equal(t, 1, rec.calls)
}

func TestBriefErrorsListsEachURL(t *testing.T) {
	got := briefErrors(fail())
	assert.Equal(t, "- http://a.invalid: no such host\n- http://b.invalid: timeout", got)
}
