package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

func TestRawFieldBuffer(t *testing.T) {
	buffer := NewRawFieldBuffer()
	buffer.Replace(models.RawFieldValues{"q1": "a"})
	buffer.Set("q2", "b")

	values := buffer.RawAnswers()
	assert.Equal(t, models.RawFieldValues{"q1": "a", "q2": "b"}, values)

	// callers get a copy
	values["q1"] = "changed"
	assert.Equal(t, "a", buffer.RawAnswers()["q1"])

	buffer.Replace(models.RawFieldValues{"q3": "c"})
	assert.Equal(t, models.RawFieldValues{"q3": "c"}, buffer.RawAnswers())
}

func TestContextConfirmer(t *testing.T) {
	var confirmer ContextConfirmer
	req := ConfirmRequest{ActivityID: 1, AttemptID: 2}

	ok, err := confirmer.Confirm(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = confirmer.Confirm(WithConfirmation(context.Background(), true), req)
	require.NoError(t, err)
	assert.True(t, ok)
}
