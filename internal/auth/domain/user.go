package domain

import "time"

// Mail providers a user can connect for ingestion
const (
	MailProviderGoogle = "google"
	MailProviderIMAP   = "imap"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider"` // "email" or "google"

	// MailProvider is the connected inbox: "google", "imap" or empty
	MailProvider string `json:"mail_provider,omitempty"`

	GoogleAccessToken  string     `json:"-"`
	GoogleRefreshToken string     `json:"-"`
	GoogleTokenExpiry  *time.Time `json:"-"`
	GmailHistoryID     uint64     `json:"-"`

	ImapHost     string `json:"imap_host,omitempty"`
	ImapPort     int    `json:"imap_port,omitempty"`
	ImapUsername string `json:"imap_username,omitempty"`
	ImapPassword string `json:"-" gorm:"serializer:sealed"`
	ImapUseTLS   bool   `json:"imap_use_tls,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MailConnected reports whether the user has an inbox the sync can read
func (u *User) MailConnected() bool {
	switch u.MailProvider {
	case MailProviderGoogle:
		return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
	case MailProviderIMAP:
		return u.ImapHost != "" && u.ImapUsername != ""
	}
	return false
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
