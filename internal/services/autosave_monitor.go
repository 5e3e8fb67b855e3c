package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

const DefaultAutosaveCheckInterval = 5 * time.Second

// AutosaveOptions wires an AutosaveMonitor to its session.
type AutosaveOptions struct {
	Clock         clockwork.Clock
	CheckInterval time.Duration
	Period        time.Duration

	// Capture returns the answers of the page in view.
	Capture func() models.AnswerSnapshot
	// Save persists answers. Errors never escape the monitor.
	Save func(ctx context.Context, answers models.AnswerSnapshot) error

	Signal *ErrorSignal
	Logger *slog.Logger
}

// AutosaveMonitor polls the answers of the current page and saves them in
// the background once they change.
//
// Every Start begins a new generation; callbacks of timers armed by an older
// generation find a different generation number and return without acting.
type AutosaveMonitor struct {
	opts AutosaveOptions

	mu          sync.Mutex
	running     bool
	closed      bool
	generation  uint64
	ticker      clockwork.Ticker
	stop        chan struct{}
	scheduled   clockwork.Timer
	saving      bool
	previous    models.AnswerSnapshot
	hasPrevious bool

	inflight sync.WaitGroup
}

func NewAutosaveMonitor(opts AutosaveOptions) *AutosaveMonitor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultAutosaveCheckInterval
	}
	if opts.Signal == nil {
		opts.Signal = NewErrorSignal()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &AutosaveMonitor{opts: opts}
}

// Start begins polling. It is a no-op when already running, after Close or
// when the autosave period is zero.
func (m *AutosaveMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.closed || m.opts.Period <= 0 {
		return
	}
	m.running = true
	m.generation++
	m.previous = nil
	m.hasPrevious = false
	m.ticker = m.opts.Clock.NewTicker(m.opts.CheckInterval)
	m.stop = make(chan struct{})

	go m.poll(m.generation, m.ticker, m.stop)
}

// Stop cancels polling and any scheduled save. It does not wait for a save
// already in flight; use Wait for that.
func (m *AutosaveMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Close stops the monitor for good; later Start calls do nothing.
func (m *AutosaveMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.stopLocked()
}

func (m *AutosaveMonitor) stopLocked() {
	if !m.running {
		return
	}
	m.running = false
	m.generation++
	m.ticker.Stop()
	close(m.stop)
	m.cancelScheduledLocked()
}

// Wait blocks until the in-flight save, if any, returned.
func (m *AutosaveMonitor) Wait() {
	m.inflight.Wait()
}

// SaveSucceeded is called after answers were persisted outside the monitor.
// The pending save is dropped and the error state cleared.
func (m *AutosaveMonitor) SaveSucceeded() {
	m.mu.Lock()
	m.cancelScheduledLocked()
	m.mu.Unlock()

	m.opts.Signal.Set(false)
}

func (m *AutosaveMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *AutosaveMonitor) poll(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.Chan():
			m.checkChanges(gen)
		case <-stop:
			return
		}
	}
}

func (m *AutosaveMonitor) checkChanges(gen uint64) {
	m.mu.Lock()
	if !m.current(gen) || m.saving {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	snapshot := m.opts.Capture()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current(gen) {
		return
	}
	if !m.hasPrevious {
		m.previous = snapshot
		m.hasPrevious = true
		return
	}
	if snapshot.Differs(m.previous) {
		m.scheduleLocked(gen)
	}
	m.previous = snapshot
}

func (m *AutosaveMonitor) scheduleLocked(gen uint64) {
	if m.scheduled != nil || m.saving {
		return
	}
	m.scheduled = m.opts.Clock.AfterFunc(m.opts.Period, func() {
		m.runSave(gen)
	})
}

func (m *AutosaveMonitor) cancelScheduledLocked() {
	if m.scheduled != nil {
		m.scheduled.Stop()
		m.scheduled = nil
	}
}

func (m *AutosaveMonitor) runSave(gen uint64) {
	m.mu.Lock()
	if !m.current(gen) {
		m.mu.Unlock()
		return
	}
	m.scheduled = nil
	m.saving = true
	m.inflight.Add(1)
	m.mu.Unlock()
	defer m.inflight.Done()

	snapshot := m.opts.Capture()

	m.mu.Lock()
	m.previous = snapshot
	m.hasPrevious = true
	m.mu.Unlock()

	err := m.opts.Save(context.Background(), snapshot)

	m.mu.Lock()
	m.saving = false
	if err != nil && m.current(gen) {
		// Retried every period until it succeeds or the monitor stops.
		m.scheduleLocked(gen)
	}
	m.mu.Unlock()

	if err != nil {
		m.opts.Logger.Warn("Autosave failed", "error", err)
		m.opts.Signal.Set(true)
		return
	}
	m.opts.Signal.Set(false)
}

func (m *AutosaveMonitor) current(gen uint64) bool {
	return m.running && m.generation == gen
}
