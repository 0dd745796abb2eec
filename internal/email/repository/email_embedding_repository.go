package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// emailEmbeddingRepository implements EmailEmbeddingRepository interface
type emailEmbeddingRepository struct {
	db *gorm.DB
}

// NewEmailEmbeddingRepository creates a new instance of emailEmbeddingRepository
func NewEmailEmbeddingRepository(db *gorm.DB) EmailEmbeddingRepository {
	return &emailEmbeddingRepository{db: db}
}

func (r *emailEmbeddingRepository) Upsert(e *emaildomain.EmailEmbedding) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "email_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject", "from_address", "date", "snippet", "body", "embedding",
			"category", "course_name", "has_deadline", "reminder_hint", "processed", "updated_at",
		}),
	}).Create(e).Error
}

func (r *emailEmbeddingRepository) MarkProcessed(userID, emailID string, update ProcessedUpdate) error {
	return r.db.Model(&emaildomain.EmailEmbedding{}).
		Where("user_id = ? AND email_id = ?", userID, emailID).
		Updates(map[string]interface{}{
			"processed":     true,
			"category":      update.Category,
			"has_deadline":  update.HasDeadline,
			"reminder_hint": update.ReminderHint,
			"updated_at":    time.Now(),
		}).Error
}

func (r *emailEmbeddingRepository) FindByID(userID, emailID string) (*emaildomain.EmailEmbedding, error) {
	var e emaildomain.EmailEmbedding
	err := r.db.Where("user_id = ? AND email_id = ?", userID, emailID).First(&e).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *emailEmbeddingRepository) FindByIDs(userID string, emailIDs []string) ([]*emaildomain.EmailEmbedding, error) {
	var rows []*emaildomain.EmailEmbedding
	if len(emailIDs) == 0 {
		return rows, nil
	}
	err := r.db.Where("user_id = ? AND email_id IN ?", userID, emailIDs).Find(&rows).Error
	return rows, err
}

func (r *emailEmbeddingRepository) FindByUser(userID string) ([]*emaildomain.EmailEmbedding, error) {
	var rows []*emaildomain.EmailEmbedding
	err := r.db.Where("user_id = ?", userID).Order("date DESC").Find(&rows).Error
	return rows, err
}

func (r *emailEmbeddingRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&emaildomain.EmailEmbedding{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *emailEmbeddingRepository) CourseNames(userID string) ([]string, error) {
	var names []string
	err := r.db.Model(&emaildomain.EmailEmbedding{}).
		Where("user_id = ? AND course_name IS NOT NULL AND course_name <> ''", userID).
		Distinct().Pluck("course_name", &names).Error
	return names, err
}

func (r *emailEmbeddingRepository) Dimension(userID string) (int, error) {
	var e emaildomain.EmailEmbedding
	err := r.db.Select("embedding").Where("user_id = ?", userID).Limit(1).Find(&e).Error
	if err != nil {
		return 0, err
	}
	return len(e.Embedding), nil
}
