package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

func TestPreflightGate_Check(t *testing.T) {
	cfg := quizConfig()
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		client := newFakeClient(cfg)
		gate := NewPreflightGate(client)

		_, err := gate.Check(ctx, PreflightRequest{
			Config:    &cfg,
			Access:    &models.AccessInfo{CanAttempt: true, PreflightRequired: true, PreflightFields: []string{"quizpassword"}},
			Preflight: models.PreflightData{},
		})
		require.Error(t, err)
		var verrs apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "quizpassword", verrs[0].Field)
		assert.Empty(t, client.startCalls)
	})

	t.Run("new attempt", func(t *testing.T) {
		client := newFakeClient(cfg)
		gate := NewPreflightGate(client)

		attempt, err := gate.Check(ctx, PreflightRequest{
			Config:    &cfg,
			Access:    &models.AccessInfo{CanAttempt: true},
			Last:      &models.Attempt{ID: 1, State: models.AttemptFinished},
			Preflight: models.PreflightData{"quizpassword": "x"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(500), attempt.ID)
		require.Len(t, client.startCalls, 1)
		assert.Equal(t, "x", client.startCalls[0]["quizpassword"])
	})

	t.Run("server rejects preflight data", func(t *testing.T) {
		client := newFakeClient(cfg)
		rejection := apperrors.NewValidationError("quizpassword", "wrong password", nil)
		client.startErr = rejection
		gate := NewPreflightGate(client)

		_, err := gate.Check(ctx, PreflightRequest{Config: &cfg, Access: &models.AccessInfo{CanAttempt: true}})
		assert.Same(t, rejection, err)
	})

	t.Run("resume validates with the current page", func(t *testing.T) {
		client := newFakeClient(cfg)
		gate := NewPreflightGate(client)

		attempt, err := gate.Check(ctx, PreflightRequest{
			Config: &cfg,
			Access: &models.AccessInfo{CanAttempt: false},
			Last:   &models.Attempt{ID: 9, State: models.AttemptInProgress, CurrentPage: 4},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), attempt.ID)
		assert.Equal(t, []int{4}, client.pageCalls)
		assert.Zero(t, client.summaryCalls)
	})

	t.Run("resume overdue validates with the summary", func(t *testing.T) {
		client := newFakeClient(cfg)
		gate := NewPreflightGate(client)

		_, err := gate.Check(ctx, PreflightRequest{
			Config: &cfg,
			Last:   &models.Attempt{ID: 9, State: models.AttemptOverdue},
		})
		require.NoError(t, err)
		assert.Empty(t, client.pageCalls)
		assert.Equal(t, 1, client.summaryCalls)
	})

	t.Run("resume error is returned unchanged", func(t *testing.T) {
		client := newFakeClient(cfg)
		client.pageErrs[0] = errNetwork
		gate := NewPreflightGate(client)

		_, err := gate.Check(ctx, PreflightRequest{
			Config: &cfg,
			Last:   &models.Attempt{ID: 9, State: models.AttemptInProgress},
		})
		assert.Same(t, errNetwork, err)
	})
}
