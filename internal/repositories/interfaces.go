package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

var ErrNotFound = errors.New("record not found")

// ===== OFFLINE STORE =====

// OfflineStore is the local cache of offline attempts, queued answers and
// lesson jump tables. Sessions only use this contract; backends are chosen at
// wiring time.
type OfflineStore interface {
	HasOfflineData(ctx context.Context, activityID int64) (bool, error)
	GetPossibleJumps(ctx context.Context, activityID int64) (models.JumpTable, error)
	HasFinishedOfflineAttempt(ctx context.Context, activityID int64) (bool, error)
	LastAttemptOfflineUnfinished(ctx context.Context, activityID int64) (bool, error)

	// QueueAnswers merges answers into the queue of the attempt. Later
	// values for the same field replace earlier ones.
	QueueAnswers(ctx context.Context, activityID, attemptID int64, answers models.AnswerSnapshot) error
	GetQueuedAnswers(ctx context.Context, attemptID int64) (models.AnswerSnapshot, error)

	SaveAttempt(ctx context.Context, attempt models.Attempt) error
	GetAttempt(ctx context.Context, attemptID int64) (*models.Attempt, error)
	SaveJumps(ctx context.Context, activityID int64, jumps models.JumpTable) error

	// DeleteActivityData drops everything stored for the activity once a
	// sync pass has pushed it to the server.
	DeleteActivityData(ctx context.Context, activityID int64) error

	Close() error
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
