// Package remote declares the typed RPC surface of the content server. The
// wire implementation lives outside this module.
package remote

import (
	"context"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// Client is the Remote Activity Client. Implementations return
// errors.ValidationError(s) for rejected input and errors.TransportError for
// network failures.
type Client interface {
	FetchActivityConfig(ctx context.Context, courseID, activityID int64) (*models.ActivityConfig, error)
	GetAccessInfo(ctx context.Context, activityID int64, offline, ignoreCache bool) (*models.AccessInfo, error)
	GetUserAttempts(ctx context.Context, activityID int64, filter models.AttemptFilter) ([]models.Attempt, error)
	StartAttempt(ctx context.Context, activityID int64, preflight models.PreflightData) (*models.Attempt, error)
	GetPage(ctx context.Context, attemptID int64, page int, preflight models.PreflightData, offline bool) (*models.PageData, error)
	GetSummary(ctx context.Context, attemptID int64, preflight models.PreflightData, offline bool) ([]models.Question, error)
	SaveAnswers(ctx context.Context, attemptID int64, answers models.AnswerSnapshot, preflight models.PreflightData, offline bool) error
	FinishAttempt(ctx context.Context, attemptID int64, answers models.AnswerSnapshot, preflight models.PreflightData, userFinish, timeUp, offline bool) error
	// LogPageView is fire-and-forget, callers ignore its error.
	LogPageView(ctx context.Context, attemptID int64, page int, preflight models.PreflightData, offline bool) error
}
