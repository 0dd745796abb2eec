package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// emailSummaryRepository implements EmailSummaryRepository interface
type emailSummaryRepository struct {
	db *gorm.DB
}

// NewEmailSummaryRepository creates a new instance of emailSummaryRepository
func NewEmailSummaryRepository(db *gorm.DB) EmailSummaryRepository {
	return &emailSummaryRepository{db: db}
}

// GetSummary retrieves a cached summary for an email
func (r *emailSummaryRepository) GetSummary(userID, emailID string) (*emaildomain.EmailSummary, error) {
	var summary emaildomain.EmailSummary
	err := r.db.Where("user_id = ? AND email_id = ?", userID, emailID).First(&summary).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// SaveSummary saves or updates a summary for an email
func (r *emailSummaryRepository) SaveSummary(summary *emaildomain.EmailSummary) error {
	now := time.Now()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now
	}
	summary.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "email_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "summary", "has_deadline", "deadlines", "updated_at"}),
	}).Create(summary).Error
}

// DeleteSummary deletes a summary for an email
func (r *emailSummaryRepository) DeleteSummary(userID, emailID string) error {
	return r.db.Where("user_id = ? AND email_id = ?", userID, emailID).Delete(&emaildomain.EmailSummary{}).Error
}
