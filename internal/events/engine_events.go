package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of events the engine emits
type EventType string

const (
	EventAttemptFinished        EventType = "attempt.finished"
	EventAutosaveErrorChanged   EventType = "attempt.autosave_error_changed"
	EventAttemptOfflineFallback EventType = "attempt.offline_fallback"
)

const (
	eventSource  = "attempt-engine"
	eventVersion = "1.0"
)

// Event is the envelope for everything the engine publishes.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	SessionID string                 `json:"session_id,omitempty"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptFinishedEvent struct {
	ActivityID      int64 `json:"activity_id"`
	AttemptID       int64 `json:"attempt_id"`
	CompletedOnline bool  `json:"completed_online"`
}

type AutosaveErrorChangedEvent struct {
	ActivityID int64 `json:"activity_id"`
	AttemptID  int64 `json:"attempt_id"`
	Active     bool  `json:"active"`
}

type OfflineFallbackEvent struct {
	ActivityID int64  `json:"activity_id"`
	AttemptID  int64  `json:"attempt_id"`
	Operation  string `json:"operation"`
	Reason     string `json:"reason"`
}

func newEvent(eventType EventType, sessionID string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		SessionID: sessionID,
		Data:      data,
	}
}

func NewAttemptFinishedEvent(sessionID string, activityID, attemptID int64, completedOnline bool) *Event {
	return newEvent(EventAttemptFinished, sessionID, AttemptFinishedEvent{
		ActivityID:      activityID,
		AttemptID:       attemptID,
		CompletedOnline: completedOnline,
	})
}

func NewAutosaveErrorChangedEvent(sessionID string, activityID, attemptID int64, active bool) *Event {
	return newEvent(EventAutosaveErrorChanged, sessionID, AutosaveErrorChangedEvent{
		ActivityID: activityID,
		AttemptID:  attemptID,
		Active:     active,
	})
}

func NewOfflineFallbackEvent(sessionID string, activityID, attemptID int64, operation string, reason error) *Event {
	data := OfflineFallbackEvent{ActivityID: activityID, AttemptID: attemptID, Operation: operation}
	if reason != nil {
		data.Reason = reason.Error()
	}
	return newEvent(EventAttemptOfflineFallback, sessionID, data)
}
