package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deadlineRepository implements DeadlineRepository interface
type deadlineRepository struct {
	db *gorm.DB
}

// NewDeadlineRepository creates a new instance of deadlineRepository
func NewDeadlineRepository(db *gorm.DB) DeadlineRepository {
	return &deadlineRepository{db: db}
}

func (r *deadlineRepository) ReplaceForEmail(userID, emailID string, deadlines []*emaildomain.Deadline) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing []*emaildomain.Deadline
		if err := tx.Where("user_id = ? AND email_id = ?", userID, emailID).Find(&existing).Error; err != nil {
			return err
		}
		previous := make(map[string]*emaildomain.Deadline, len(existing))
		for _, d := range existing {
			previous[d.ID] = d
		}

		now := time.Now()
		ids := make([]string, 0, len(deadlines))
		for _, d := range deadlines {
			ids = append(ids, d.ID)
			d.UserID = userID
			d.EmailID = emailID
			d.UpdatedAt = now
			if old, ok := previous[d.ID]; ok {
				d.AddedToCalendar = old.AddedToCalendar
				d.CalendarEventID = old.CalendarEventID
				d.CreatedAt = old.CreatedAt
				if old.DueDate.Equal(d.DueDate) {
					d.ReminderSent = old.ReminderSent
				}
			} else if d.CreatedAt.IsZero() {
				d.CreatedAt = now
			}
		}

		stale := tx.Where("user_id = ? AND email_id = ?", userID, emailID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err := stale.Delete(&emaildomain.Deadline{}).Error; err != nil {
			return err
		}

		if len(deadlines) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
			UpdateAll: true,
		}).Create(&deadlines).Error
	})
}

// FindByUser returns deadlines ordered by due date, soonest first
func (r *deadlineRepository) FindByUser(userID string) ([]*emaildomain.Deadline, error) {
	var deadlines []*emaildomain.Deadline
	err := r.db.Where("user_id = ?", userID).Order("due_date ASC, id ASC").Find(&deadlines).Error
	return deadlines, err
}

func (r *deadlineRepository) FindByID(userID, id string) (*emaildomain.Deadline, error) {
	var d emaildomain.Deadline
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&d).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *deadlineRepository) Delete(userID, id string) error {
	return r.db.Delete(&emaildomain.Deadline{}, "user_id = ? AND id = ?", userID, id).Error
}

func (r *deadlineRepository) MarkAddedToCalendar(userID, id, eventID string) error {
	return r.db.Model(&emaildomain.Deadline{}).Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{
			"added_to_calendar": true,
			"calendar_event_id": eventID,
			"updated_at":        time.Now(),
		}).Error
}

func (r *deadlineRepository) FindDueForReminder(from, to time.Time) ([]*emaildomain.Deadline, error) {
	var deadlines []*emaildomain.Deadline
	err := r.db.Where("due_date >= ? AND due_date <= ? AND reminder_sent = ?", from, to, false).
		Order("due_date ASC").Find(&deadlines).Error
	return deadlines, err
}

func (r *deadlineRepository) MarkReminderSent(userID, id string) error {
	return r.db.Model(&emaildomain.Deadline{}).Where("user_id = ? AND id = ?", userID, id).
		Updates(map[string]interface{}{
			"reminder_sent": true,
			"updated_at":    time.Now(),
		}).Error
}
