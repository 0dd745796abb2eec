package domain

import "time"

type AlertType string

const (
	AlertCancelled   AlertType = "cancelled"
	AlertRescheduled AlertType = "rescheduled"
	AlertRoomChange  AlertType = "room_change"
	AlertUrgent      AlertType = "urgent"
)

// ScheduleChange is an alert about a class session. ID is "<emailId>_alert_<type>".
type ScheduleChange struct {
	UserID    string    `json:"user_id" gorm:"primaryKey"`
	ID        string    `json:"id" gorm:"primaryKey"`
	EmailID   string    `json:"email_id" gorm:"index;not null"`
	Type      AlertType `json:"type"`
	Course    string    `json:"course"`
	Message   string    `json:"message"`
	Date      time.Time `json:"date"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
