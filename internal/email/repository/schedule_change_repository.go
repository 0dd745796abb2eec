package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scheduleChangeRepository implements ScheduleChangeRepository interface
type scheduleChangeRepository struct {
	db *gorm.DB
}

// NewScheduleChangeRepository creates a new instance of scheduleChangeRepository
func NewScheduleChangeRepository(db *gorm.DB) ScheduleChangeRepository {
	return &scheduleChangeRepository{db: db}
}

func (r *scheduleChangeRepository) ReplaceForEmail(userID, emailID string, alerts []*emaildomain.ScheduleChange) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		ids := make([]string, 0, len(alerts))
		for _, a := range alerts {
			ids = append(ids, a.ID)
			a.UserID = userID
			a.EmailID = emailID
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
		}

		stale := tx.Where("user_id = ? AND email_id = ?", userID, emailID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err := stale.Delete(&emaildomain.ScheduleChange{}).Error; err != nil {
			return err
		}

		if len(alerts) == 0 {
			return nil
		}
		// created_at is left alone on conflict so a re-run keeps the original ordering
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "course", "message", "date", "details"}),
		}).Create(&alerts).Error
	})
}

// FindByUser returns alerts newest first
func (r *scheduleChangeRepository) FindByUser(userID string) ([]*emaildomain.ScheduleChange, error) {
	var alerts []*emaildomain.ScheduleChange
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id ASC").Find(&alerts).Error
	return alerts, err
}

func (r *scheduleChangeRepository) Delete(userID, id string) error {
	return r.db.Delete(&emaildomain.ScheduleChange{}, "user_id = ? AND id = ?", userID, id).Error
}
