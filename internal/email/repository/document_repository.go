package repository

import (
	"time"

	emaildomain "navigator-backend/internal/email/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRepository implements DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new instance of documentRepository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) ReplaceForEmail(userID, emailID string, docs []*emaildomain.Document) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
			d.UserID = userID
			d.EmailID = emailID
			if d.CreatedAt.IsZero() {
				d.CreatedAt = now
			}
		}

		stale := tx.Where("user_id = ? AND email_id = ?", userID, emailID)
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		}
		if err := stale.Delete(&emaildomain.Document{}).Error; err != nil {
			return err
		}

		if len(docs) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"filename", "course", "type", "category", "url", "attachment_id", "mime_type", "size",
			}),
		}).Create(&docs).Error
	})
}

// FindByUser returns documents in the order they were stored
func (r *documentRepository) FindByUser(userID string) ([]*emaildomain.Document, error) {
	var docs []*emaildomain.Document
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) FindByID(userID, id string) (*emaildomain.Document, error) {
	var d emaildomain.Document
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&d).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}
