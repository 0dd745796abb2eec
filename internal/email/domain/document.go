package domain

import "time"

type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentDOCX DocumentType = "docx"
	DocumentPPT  DocumentType = "ppt"
	DocumentXLSX DocumentType = "xlsx"
)

type DocumentCategory string

const (
	CategoryAssignment DocumentCategory = "assignment"
	CategoryLecture    DocumentCategory = "lecture"
	CategoryNotes      DocumentCategory = "notes"
	CategorySyllabus   DocumentCategory = "syllabus"
)

// Document is an attachment worth keeping. ID is "<emailId>_doc_<attachmentId|index>".
type Document struct {
	UserID       string           `json:"user_id" gorm:"primaryKey"`
	ID           string           `json:"id" gorm:"primaryKey"`
	EmailID      string           `json:"email_id" gorm:"index;not null"`
	Filename     string           `json:"filename"`
	Course       string           `json:"course"`
	Type         DocumentType     `json:"type"`
	Category     DocumentCategory `json:"category"`
	URL          string           `json:"url,omitempty"`
	AttachmentID string           `json:"attachment_id,omitempty"`
	MimeType     string           `json:"mime_type,omitempty"`
	Size         int64            `json:"size"`
	CreatedAt    time.Time        `json:"created_at"`
}
