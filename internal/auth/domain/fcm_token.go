package domain

import "time"

// FCMToken is a device registration for deadline reminders and alert pushes.
// Tokens rejected by FCM are deleted by the sender.
type FCMToken struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"index;not null"`
	Token      string     `json:"-" gorm:"uniqueIndex;not null"`
	Platform   string     `json:"platform"`
	DeviceInfo string     `json:"device_info"`
	LastPushAt *time.Time `json:"last_push_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
