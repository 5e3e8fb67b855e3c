// Package synccoord coordinates background synchronization passes with live
// attempt sessions.
package synccoord

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/SAP-F-2025/attempt-engine/internal/lock"
)

// Tracker records in-flight sync passes per activity. A pass refuses to start
// while a session holds the activity lock, and sessions wait for running
// passes before touching offline state.
type Tracker struct {
	locks  lock.Service
	logger *slog.Logger

	mu      sync.Mutex
	running map[int64]chan struct{}
}

func NewTracker(locks lock.Service, logger *slog.Logger) *Tracker {
	return &Tracker{
		locks:   locks,
		logger:  logger,
		running: make(map[int64]chan struct{}),
	}
}

// Begin registers a sync pass. The returned done func must be called when the
// pass ends. ok is false when a session holds the lock or another pass is
// already running; the caller should skip the pass then.
//
// The pass is registered before the lock is checked. Sessions take the lock
// before waiting for passes, so either the session sees the registration and
// waits, or the pass sees the lock and backs out.
func (t *Tracker) Begin(ctx context.Context, component string, activityID int64) (done func(), ok bool, err error) {
	t.mu.Lock()
	if _, busy := t.running[activityID]; busy {
		t.mu.Unlock()
		return nil, false, nil
	}
	ch := make(chan struct{})
	t.running[activityID] = ch
	t.mu.Unlock()

	var once sync.Once
	done = func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.running, activityID)
			t.mu.Unlock()
			close(ch)
		})
	}

	held, err := t.locks.IsHeld(ctx, lock.Key{Component: component, InstanceID: strconv.FormatInt(activityID, 10)})
	if err != nil {
		done()
		return nil, false, err
	}
	if held {
		done()
		t.logger.Debug("Skipping sync, activity is in use", "component", component, "activity_id", activityID)
		return nil, false, nil
	}
	return done, true, nil
}

// WaitForOngoingSync blocks until no sync pass is running for the activity.
func (t *Tracker) WaitForOngoingSync(ctx context.Context, activityID int64) error {
	t.mu.Lock()
	ch, busy := t.running[activityID]
	t.mu.Unlock()
	if !busy {
		return nil
	}

	t.logger.Info("Waiting for ongoing sync", "activity_id", activityID)
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsSyncing reports whether a pass is running for the activity.
func (t *Tracker) IsSyncing(activityID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.running[activityID]
	return busy
}
