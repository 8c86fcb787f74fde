package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type chanSubscriber struct {
	ch  chan PropertyChange
	err error
}

func (s *chanSubscriber) Subscribe(context.Context) (<-chan PropertyChange, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ch, nil
}

type recordedChange struct {
	property string
	ignored  bool
}

type fakeRecorder struct {
	mu          sync.Mutex
	changes     []recordedChange
	transitions [][2]StateKind
	rounds      int
	recoveries  int
}

func (r *fakeRecorder) ProbeRound(error, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds++
}

func (r *fakeRecorder) Transition(from, to StateKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, [2]StateKind{from, to})
}

func (r *fakeRecorder) Recovery(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recoveries++
}

func (r *fakeRecorder) ChangeEvent(property string, ignored bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, recordedChange{property, ignored})
}

func TestMonitor_InitialValueIsEpoch(t *testing.T) {
	m := NewMonitor(nil, nil, nil, nil)
	last := m.Last()
	assert.True(t, last.Time.Equal(time.Unix(0, 0)))
	assert.Empty(t, last.Property)
}

func TestMonitor_HandleRecordsAndIgnores(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(base)
	rec := &fakeRecorder{}
	m := NewMonitor(DefaultIgnoredProperties, mock, nil, rec)

	m.Handle(PropertyChange{Service: "/net/connman/service/wifi_1", Name: "Strength", Value: "70"})
	assert.True(t, m.Last().Time.Equal(time.Unix(0, 0)), "ignored property must not be recorded")

	mock.Add(time.Second)
	m.Handle(PropertyChange{Service: "/net/connman/service/wifi_1", Name: "State", Value: "ready"})
	last := m.Last()
	assert.Equal(t, "State", last.Property)
	assert.Equal(t, "/net/connman/service/wifi_1", last.Service)
	assert.Equal(t, "ready", last.Value)
	assert.Equal(t, base.Add(time.Second), last.Time)
	assert.NotEmpty(t, last.ID)

	assert.Equal(t, []recordedChange{{"Strength", true}, {"State", false}}, rec.changes)
}

func TestMonitor_StartConsumesInBackground(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan PropertyChange)}
	m := NewMonitor(nil, nil, nil, nil)
	require.NoError(t, m.Start(context.Background(), sub))

	sub.ch <- PropertyChange{Service: "svc", Name: "Proxy", Value: "manual"}
	require.Eventually(t, func() bool { return m.Last().Property == "Proxy" }, time.Second, 5*time.Millisecond)
	close(sub.ch)
}

func TestMonitor_StartFailsOnSubscriptionError(t *testing.T) {
	m := NewMonitor(nil, nil, nil, nil)
	err := m.Start(context.Background(), &chanSubscriber{err: errors.New("no system bus")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no system bus")
}

func TestMonitorHandle_LogsEventID(t *testing.T) {
	core, obs := observer.New(zap.DebugLevel)
	m := NewMonitor(nil, clock.NewMock(), zap.New(core), nil)

	m.Handle(PropertyChange{Service: "/svc/wifi", Name: "IPv4"})

	entries := obs.FilterMessage("setting changed").All()
	require.Len(t, entries, 1)
	id := m.Last().ID
	require.NotEmpty(t, id)
	assert.Equal(t, id, entries[0].ContextMap()["event_id"])
}
