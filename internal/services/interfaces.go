package services

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// ===== COLLABORATORS =====

// SyncCoordinator lets a session wait for background synchronization of an
// activity before touching its offline state.
type SyncCoordinator interface {
	WaitForOngoingSync(ctx context.Context, activityID int64) error
}

// ConfirmRequest describes what the user is asked to confirm before a
// user-initiated finish.
type ConfirmRequest struct {
	ActivityID int64  `json:"activity_id"`
	AttemptID  int64  `json:"attempt_id"`
	Message    string `json:"message"`
}

type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

type NetworkStatus interface {
	IsOnline() bool
}

// AnswerSource hands over the form state of the page in view.
type AnswerSource interface {
	RawAnswers() models.RawFieldValues
}

// ===== DEFAULT IMPLEMENTATIONS =====

// RawFieldBuffer is an AnswerSource fed by whoever owns the form, typically
// the HTTP layer.
type RawFieldBuffer struct {
	mu     sync.RWMutex
	values models.RawFieldValues
}

func NewRawFieldBuffer() *RawFieldBuffer {
	return &RawFieldBuffer{values: make(models.RawFieldValues)}
}

func (b *RawFieldBuffer) RawAnswers() models.RawFieldValues {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(models.RawFieldValues, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Replace swaps the whole form state.
func (b *RawFieldBuffer) Replace(values models.RawFieldValues) {
	next := make(models.RawFieldValues, len(values))
	for k, v := range values {
		next[k] = v
	}

	b.mu.Lock()
	b.values = next
	b.mu.Unlock()
}

// Set updates a single field.
func (b *RawFieldBuffer) Set(field, value string) {
	b.mu.Lock()
	b.values[field] = value
	b.mu.Unlock()
}

type confirmKey struct{}

// WithConfirmation attaches the user's answer to the finish confirmation to
// ctx. ContextConfirmer reads it back.
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmKey{}, confirmed)
}

// ContextConfirmer answers confirmation prompts from the request context,
// for callers that collect the confirmation before calling Finish. A context
// without an answer counts as declined.
type ContextConfirmer struct{}

func (ContextConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	confirmed, _ := ctx.Value(confirmKey{}).(bool)
	return confirmed, nil
}

// AlwaysOnline is the NetworkStatus used when the host cannot detect
// connectivity.
type AlwaysOnline struct{}

func (AlwaysOnline) IsOnline() bool { return true }

var (
	_ AnswerSource  = (*RawFieldBuffer)(nil)
	_ Confirmer     = ContextConfirmer{}
	_ NetworkStatus = AlwaysOnline{}
)
