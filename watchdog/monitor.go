package watchdog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIgnoredProperties are too noisy to mean a reconfiguration.
// Every wifi scan updates Strength.
var DefaultIgnoredProperties = []string{"Strength"}

// Monitor records the latest relevant property change reported by the
// connection manager. It is written by its own goroutine and read by
// the control loop without locking.
type Monitor struct {
	clock    clock.Clock
	logger   *zap.Logger
	recorder Recorder
	ignored  map[string]struct{}

	last atomic.Pointer[ChangeEvent]
}

func NewMonitor(ignored []string, clk clock.Clock, logger *zap.Logger, recorder Recorder) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	m := &Monitor{
		clock:    clk,
		logger:   logger,
		recorder: recorder,
		ignored:  make(map[string]struct{}, len(ignored)),
	}
	for _, name := range ignored {
		m.ignored[name] = struct{}{}
	}
	initial := noChangeEvent()
	m.last.Store(&initial)
	return m
}

// Start subscribes and consumes notifications in the background until
// the stream closes. A subscription error is returned as is; callers
// treat it as fatal.
func (m *Monitor) Start(ctx context.Context, sub Subscriber) error {
	changes, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to network changes: %w", err)
	}
	m.logger.Debug("network change monitoring started")
	go m.consume(changes)
	return nil
}

func (m *Monitor) consume(changes <-chan PropertyChange) {
	for change := range changes {
		m.Handle(change)
	}
	m.logger.Warn("network change stream closed, continuing on probe results only")
}

// Handle records change unless its property is ignored.
func (m *Monitor) Handle(change PropertyChange) {
	if _, skip := m.ignored[change.Name]; skip {
		m.logger.Debug("ignoring setting update",
			zap.String("property", change.Name), zap.String("service", change.Service))
		m.recorder.ChangeEvent(change.Name, true)
		return
	}
	ev := &ChangeEvent{
		ID:       uuid.NewString(),
		Time:     m.clock.Now(),
		Property: change.Name,
		Service:  change.Service,
		Value:    change.Value,
	}
	m.last.Store(ev)
	m.logger.Debug("setting changed",
		zap.String("property", change.Name),
		zap.String("service", change.Service),
		zap.String("event_id", ev.ID))
	m.recorder.ChangeEvent(change.Name, false)
}

// Last returns the latest recorded change, or an event at the Unix
// epoch if none was seen.
func (m *Monitor) Last() ChangeEvent {
	return *m.last.Load()
}
