package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// Integration tests, they need TEST_DATABASE_URL pointing at a scratch
// Postgres database.
func newTestStore(t *testing.T) *OfflineStorePostgreSQL {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	s := NewOfflineStorePostgreSQL(db)
	require.NoError(t, s.AutoMigrate())
	t.Cleanup(func() {
		db.Exec("TRUNCATE offline_attempts, offline_answers, offline_jumps")
		s.Close()
	})
	return s
}

func TestOfflineStorePostgreSQL_Answers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.QueueAnswers(ctx, 10, 100, models.AnswerSnapshot{"q1": "a", "q2": "b"}))
	require.NoError(t, s.QueueAnswers(ctx, 10, 100, models.AnswerSnapshot{"q2": "c"}))

	answers, err := s.GetQueuedAnswers(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, models.AnswerSnapshot{"q1": "a", "q2": "c"}, answers)

	has, err := s.HasOfflineData(ctx, 10)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestOfflineStorePostgreSQL_Attempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	attempt := models.Attempt{ID: 100, ActivityID: 10, Number: 1, State: models.AttemptInProgress}
	require.NoError(t, s.SaveAttempt(ctx, attempt))

	unfinished, err := s.LastAttemptOfflineUnfinished(ctx, 10)
	require.NoError(t, err)
	assert.True(t, unfinished)

	attempt.State = models.AttemptFinished
	attempt.FinishedOffline = true
	require.NoError(t, s.SaveAttempt(ctx, attempt))

	finished, err := s.HasFinishedOfflineAttempt(ctx, 10)
	require.NoError(t, err)
	assert.True(t, finished)

	require.NoError(t, s.DeleteActivityData(ctx, 10))
	has, err := s.HasOfflineData(ctx, 10)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestOfflineStorePostgreSQL_Jumps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	table := models.JumpTable{1: {2}, 2: {3, 1}}
	require.NoError(t, s.SaveJumps(ctx, 10, table))
	require.NoError(t, s.SaveJumps(ctx, 10, table))

	got, err := s.GetPossibleJumps(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}
