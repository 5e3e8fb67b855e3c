package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OfflineAttempt struct {
	ID              int64     `gorm:"primaryKey;autoIncrement:false"`
	ActivityID      int64     `gorm:"not null;index:idx_offline_attempt_activity"`
	Number          int       `gorm:"not null;default:0;index:idx_offline_attempt_activity"`
	State           string    `gorm:"size:20;not null"`
	CurrentPage     int       `gorm:"not null;default:0"`
	FinishedOffline bool      `gorm:"not null;default:false"`
	TimeStart       int64     `gorm:"not null;default:0"`
	TimeFinish      int64     `gorm:"not null;default:0"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

type OfflineAnswers struct {
	AttemptID  int64          `gorm:"primaryKey;autoIncrement:false"`
	ActivityID int64          `gorm:"not null;index"`
	Answers    datatypes.JSON `gorm:"type:jsonb;not null"` // models.AnswerSnapshot
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

type OfflineJumps struct {
	ActivityID int64          `gorm:"primaryKey;autoIncrement:false"`
	Jumps      datatypes.JSON `gorm:"type:jsonb;not null"` // models.JumpTable
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (a *OfflineAttempt) toModel() *models.Attempt {
	return &models.Attempt{
		ID:              a.ID,
		ActivityID:      a.ActivityID,
		Number:          a.Number,
		State:           models.AttemptState(a.State),
		CurrentPage:     a.CurrentPage,
		FinishedOffline: a.FinishedOffline,
		TimeStart:       a.TimeStart,
		TimeFinish:      a.TimeFinish,
	}
}

// OfflineStorePostgreSQL keeps offline data in a shared database, for kiosk
// deployments where several devices hand attempts over to each other.
type OfflineStorePostgreSQL struct {
	db *gorm.DB
}

func NewOfflineStorePostgreSQL(db *gorm.DB) *OfflineStorePostgreSQL {
	return &OfflineStorePostgreSQL{db: db}
}

// AutoMigrate creates or updates the offline tables.
func (s *OfflineStorePostgreSQL) AutoMigrate() error {
	return s.db.AutoMigrate(&OfflineAttempt{}, &OfflineAnswers{}, &OfflineJumps{})
}

func (s *OfflineStorePostgreSQL) HasOfflineData(ctx context.Context, activityID int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&OfflineAttempt{}).Where("activity_id = ?", activityID).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := s.db.WithContext(ctx).Model(&OfflineAnswers{}).Where("activity_id = ?", activityID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *OfflineStorePostgreSQL) HasFinishedOfflineAttempt(ctx context.Context, activityID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&OfflineAttempt{}).
		Where("activity_id = ? AND finished_offline = ?", activityID, true).
		Count(&count).Error
	return count > 0, err
}

func (s *OfflineStorePostgreSQL) LastAttemptOfflineUnfinished(ctx context.Context, activityID int64) (bool, error) {
	var record OfflineAttempt
	err := s.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("number DESC, id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	attempt := record.toModel()
	return !attempt.IsFinished() && !attempt.FinishedOffline, nil
}

func (s *OfflineStorePostgreSQL) GetPossibleJumps(ctx context.Context, activityID int64) (models.JumpTable, error) {
	var record OfflineJumps
	err := s.db.WithContext(ctx).First(&record, "activity_id = ?", activityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.JumpTable{}, nil
	}
	if err != nil {
		return nil, err
	}
	jumps := models.JumpTable{}
	if err := json.Unmarshal(record.Jumps, &jumps); err != nil {
		return nil, fmt.Errorf("failed to decode jump table: %w", err)
	}
	return jumps, nil
}

func (s *OfflineStorePostgreSQL) SaveJumps(ctx context.Context, activityID int64, jumps models.JumpTable) error {
	raw, err := json.Marshal(jumps)
	if err != nil {
		return fmt.Errorf("failed to encode jump table: %w", err)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&OfflineJumps{ActivityID: activityID, Jumps: datatypes.JSON(raw)}).Error
}

func (s *OfflineStorePostgreSQL) QueueAnswers(ctx context.Context, activityID, attemptID int64, answers models.AnswerSnapshot) error {
	if len(answers) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record OfflineAnswers
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, "attempt_id = ?", attemptID).Error
		merged := models.AnswerSnapshot{}
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(record.Answers, &merged); err != nil {
				return fmt.Errorf("failed to decode queued answers: %w", err)
			}
		}
		for k, v := range answers {
			merged[k] = v
		}

		raw, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&OfflineAnswers{
			AttemptID:  attemptID,
			ActivityID: activityID,
			Answers:    datatypes.JSON(raw),
		}).Error
	})
}

func (s *OfflineStorePostgreSQL) GetQueuedAnswers(ctx context.Context, attemptID int64) (models.AnswerSnapshot, error) {
	var record OfflineAnswers
	err := s.db.WithContext(ctx).First(&record, "attempt_id = ?", attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AnswerSnapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	answers := models.AnswerSnapshot{}
	if err := json.Unmarshal(record.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode queued answers: %w", err)
	}
	return answers, nil
}

func (s *OfflineStorePostgreSQL) SaveAttempt(ctx context.Context, attempt models.Attempt) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"state", "current_page", "finished_offline", "time_finish", "updated_at"}),
		}).
		Create(&OfflineAttempt{
			ID:              attempt.ID,
			ActivityID:      attempt.ActivityID,
			Number:          attempt.Number,
			State:           string(attempt.State),
			CurrentPage:     attempt.CurrentPage,
			FinishedOffline: attempt.FinishedOffline,
			TimeStart:       attempt.TimeStart,
			TimeFinish:      attempt.TimeFinish,
		}).Error
}

func (s *OfflineStorePostgreSQL) GetAttempt(ctx context.Context, attemptID int64) (*models.Attempt, error) {
	var record OfflineAttempt
	err := s.db.WithContext(ctx).First(&record, "id = ?", attemptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.toModel(), nil
}

func (s *OfflineStorePostgreSQL) DeleteActivityData(ctx context.Context, activityID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("activity_id = ?", activityID).Delete(&OfflineAnswers{}).Error; err != nil {
			return err
		}
		if err := tx.Where("activity_id = ?", activityID).Delete(&OfflineAttempt{}).Error; err != nil {
			return err
		}
		return tx.Where("activity_id = ?", activityID).Delete(&OfflineJumps{}).Error
	})
}

func (s *OfflineStorePostgreSQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ repositories.OfflineStore = (*OfflineStorePostgreSQL)(nil)
