package services

import (
	"context"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/remote"
)

// PreflightRequest is everything the gate needs to decide on an attempt.
type PreflightRequest struct {
	Config    *models.ActivityConfig
	Access    *models.AccessInfo
	Last      *models.Attempt // nil when the user has no attempts
	Preflight models.PreflightData
	Offline   bool
}

// PreflightGate resolves the attempt a session works on, starting a new one
// when needed, and validates the preflight data against the server.
//
// The gate never prompts. When it fails the caller collects more preflight
// data and calls Check again.
type PreflightGate struct {
	client remote.Client
}

func NewPreflightGate(client remote.Client) *PreflightGate {
	return &PreflightGate{client: client}
}

// IsNewAttempt reports whether a new attempt has to be started instead of
// resuming last.
func IsNewAttempt(last *models.Attempt) bool {
	return last == nil || last.IsFinished()
}

// Check returns the attempt to use. Server errors are returned unchanged.
func (g *PreflightGate) Check(ctx context.Context, req PreflightRequest) (*models.Attempt, error) {
	if req.Access != nil && req.Access.PreflightRequired {
		if missing := req.Preflight.Missing(req.Access.PreflightFields); len(missing) > 0 {
			return nil, apperrors.MissingFields(missing)
		}
	}

	if IsNewAttempt(req.Last) {
		if req.Access != nil && !req.Access.CanAttempt {
			return nil, &AccessDeniedError{Reasons: req.Access.PreventAccessReasons}
		}
		return g.client.StartAttempt(ctx, req.Config.ID, req.Preflight)
	}

	attempt := *req.Last
	if attempt.IsOverdue() || attempt.FinishedOffline {
		if _, err := g.client.GetSummary(ctx, attempt.ID, req.Preflight, req.Offline); err != nil {
			return nil, err
		}
		return &attempt, nil
	}

	if _, err := g.client.GetPage(ctx, attempt.ID, attempt.CurrentPage, req.Preflight, req.Offline); err != nil {
		return nil, err
	}
	return &attempt, nil
}
