// Package sqlite is the device-local offline store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"

	_ "modernc.org/sqlite"
)

type OfflineStore struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*OfflineStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &OfflineStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate offline store: %w", err)
	}
	return s, nil
}

func (s *OfflineStore) Close() error { return s.db.Close() }

func (s *OfflineStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS offline_attempts (
		id               INTEGER PRIMARY KEY,
		activity_id      INTEGER NOT NULL,
		number           INTEGER NOT NULL DEFAULT 0,
		state            TEXT NOT NULL,
		current_page     INTEGER NOT NULL DEFAULT 0,
		finished_offline INTEGER NOT NULL DEFAULT 0,
		time_start       INTEGER NOT NULL DEFAULT 0,
		time_finish      INTEGER NOT NULL DEFAULT 0,
		updated_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_offline_attempts_activity ON offline_attempts(activity_id, number);

	CREATE TABLE IF NOT EXISTS offline_answers (
		attempt_id  INTEGER NOT NULL,
		activity_id INTEGER NOT NULL,
		field       TEXT NOT NULL,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (attempt_id, field)
	);
	CREATE INDEX IF NOT EXISTS idx_offline_answers_activity ON offline_answers(activity_id);

	CREATE TABLE IF NOT EXISTS offline_jumps (
		activity_id INTEGER PRIMARY KEY,
		jumps       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (s *OfflineStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *OfflineStore) HasOfflineData(ctx context.Context, activityID int64) (bool, error) {
	return s.exists(ctx,
		`SELECT 1 FROM offline_attempts WHERE activity_id = ?
		 UNION ALL
		 SELECT 1 FROM offline_answers WHERE activity_id = ?
		 LIMIT 1`,
		activityID, activityID)
}

func (s *OfflineStore) HasFinishedOfflineAttempt(ctx context.Context, activityID int64) (bool, error) {
	return s.exists(ctx,
		`SELECT 1 FROM offline_attempts WHERE activity_id = ? AND finished_offline = 1 LIMIT 1`,
		activityID)
}

func (s *OfflineStore) LastAttemptOfflineUnfinished(ctx context.Context, activityID int64) (bool, error) {
	var state string
	var finishedOffline bool
	err := s.db.QueryRowContext(ctx,
		`SELECT state, finished_offline FROM offline_attempts
		 WHERE activity_id = ? ORDER BY number DESC, id DESC LIMIT 1`,
		activityID).Scan(&state, &finishedOffline)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	attempt := models.Attempt{State: models.AttemptState(state), FinishedOffline: finishedOffline}
	return !attempt.IsFinished() && !attempt.FinishedOffline, nil
}

func (s *OfflineStore) GetPossibleJumps(ctx context.Context, activityID int64) (models.JumpTable, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT jumps FROM offline_jumps WHERE activity_id = ?`, activityID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.JumpTable{}, nil
	}
	if err != nil {
		return nil, err
	}
	jumps := models.JumpTable{}
	if err := json.Unmarshal([]byte(raw), &jumps); err != nil {
		return nil, fmt.Errorf("failed to decode jump table: %w", err)
	}
	return jumps, nil
}

func (s *OfflineStore) SaveJumps(ctx context.Context, activityID int64, jumps models.JumpTable) error {
	raw, err := json.Marshal(jumps)
	if err != nil {
		return fmt.Errorf("failed to encode jump table: %w", err)
	}
	return retryOp(defaultRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO offline_jumps (activity_id, jumps, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(activity_id) DO UPDATE SET jumps = excluded.jumps, updated_at = excluded.updated_at`,
			activityID, string(raw), now())
		return err
	})
}

func (s *OfflineStore) QueueAnswers(ctx context.Context, activityID, attemptID int64, answers models.AnswerSnapshot) error {
	if len(answers) == 0 {
		return nil
	}
	return retryOp(defaultRetryConfig, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		ts := now()
		for field, value := range answers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO offline_answers (attempt_id, activity_id, field, value, updated_at) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT(attempt_id, field) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				attemptID, activityID, field, value, ts); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func (s *OfflineStore) GetQueuedAnswers(ctx context.Context, attemptID int64) (models.AnswerSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM offline_answers WHERE attempt_id = ?`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := models.AnswerSnapshot{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		answers[field] = value
	}
	return answers, rows.Err()
}

func (s *OfflineStore) SaveAttempt(ctx context.Context, attempt models.Attempt) error {
	return retryOp(defaultRetryConfig, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO offline_attempts
			   (id, activity_id, number, state, current_page, finished_offline, time_start, time_finish, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   state = excluded.state,
			   current_page = excluded.current_page,
			   finished_offline = excluded.finished_offline,
			   time_finish = excluded.time_finish,
			   updated_at = excluded.updated_at`,
			attempt.ID, attempt.ActivityID, attempt.Number, string(attempt.State), attempt.CurrentPage,
			attempt.FinishedOffline, attempt.TimeStart, attempt.TimeFinish, now())
		return err
	})
}

func (s *OfflineStore) GetAttempt(ctx context.Context, attemptID int64) (*models.Attempt, error) {
	var a models.Attempt
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, activity_id, number, state, current_page, finished_offline, time_start, time_finish
		 FROM offline_attempts WHERE id = ?`, attemptID).
		Scan(&a.ID, &a.ActivityID, &a.Number, &state, &a.CurrentPage, &a.FinishedOffline, &a.TimeStart, &a.TimeFinish)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.State = models.AttemptState(state)
	return &a, nil
}

func (s *OfflineStore) DeleteActivityData(ctx context.Context, activityID int64) error {
	return retryOp(defaultRetryConfig, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, q := range []string{
			`DELETE FROM offline_answers WHERE activity_id = ?`,
			`DELETE FROM offline_attempts WHERE activity_id = ?`,
			`DELETE FROM offline_jumps WHERE activity_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, activityID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

var _ repositories.OfflineStore = (*OfflineStore)(nil)
