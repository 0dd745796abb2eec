package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncStatusRepository implements SyncStatusRepository interface
type syncStatusRepository struct {
	db *gorm.DB
}

// NewSyncStatusRepository creates a new instance of syncStatusRepository
func NewSyncStatusRepository(db *gorm.DB) SyncStatusRepository {
	return &syncStatusRepository{db: db}
}

func (r *syncStatusRepository) Get(userID string) (*emaildomain.SyncStatus, error) {
	var status emaildomain.SyncStatus
	err := r.db.Where("user_id = ?", userID).First(&status).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

func (r *syncStatusRepository) Save(status *emaildomain.SyncStatus) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current emaildomain.SyncStatus
		err := tx.Where("user_id = ?", status.UserID).First(&current).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if err == nil && current.LastSync != nil {
			if status.LastSync == nil || status.LastSync.Before(*current.LastSync) {
				status.LastSync = current.LastSync
			}
		}

		status.UpdatedAt = time.Now()
		return tx.Save(status).Error
	})
}

// RecordFailure upserts the dead-letter row and bumps its attempt count
func (r *syncStatusRepository) RecordFailure(userID, emailID, reason string) error {
	now := time.Now()
	failed := emaildomain.FailedEmail{
		UserID:        userID,
		EmailID:       emailID,
		Attempts:      1,
		LastError:     reason,
		LastAttemptAt: now,
		CreatedAt:     now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "email_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"attempts":        gorm.Expr("failed_emails.attempts + 1"),
			"last_error":      reason,
			"last_attempt_at": now,
		}),
	}).Create(&failed).Error
}

func (r *syncStatusRepository) ClearFailure(userID, emailID string) error {
	return r.db.Where("user_id = ? AND email_id = ?", userID, emailID).Delete(&emaildomain.FailedEmail{}).Error
}

func (r *syncStatusRepository) FindRetryable(userID string, maxAttempts, limit int) ([]*emaildomain.FailedEmail, error) {
	var failed []*emaildomain.FailedEmail
	err := r.db.Where("user_id = ? AND attempts < ?", userID, maxAttempts).
		Order("last_attempt_at ASC").Limit(limit).Find(&failed).Error
	return failed, err
}
