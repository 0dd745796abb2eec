package repository

import (
	"time"

	authdomain "navigator-backend/internal/auth/domain"
	_ "navigator-backend/pkg/secret" // registers the sealed column serializer

	"gorm.io/gorm"
)

// UserRepository defines persistence for users and their refresh tokens
type UserRepository interface {
	Create(user *authdomain.User) error
	FindByEmail(email string) (*authdomain.User, error)
	FindByID(id string) (*authdomain.User, error)
	Update(user *authdomain.User) error
	// UpdateGoogleToken persists a refreshed OAuth token without touching other columns
	UpdateGoogleToken(userID, accessToken, refreshToken string, expiry time.Time) error
	UpdateHistoryID(userID string, historyID uint64) error
	// FindMailConnected returns users with a Gmail or IMAP inbox attached
	FindMailConnected() ([]*authdomain.User, error)

	SaveRefreshToken(token *authdomain.RefreshToken) error
	FindRefreshToken(token string) (*authdomain.RefreshToken, error)
	DeleteRefreshToken(token string) error
	DeleteRefreshTokensByUser(userID string) error
	ReplaceRefreshToken(token *authdomain.RefreshToken) error
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(userID, token, platform, deviceInfo string) error
	GetTokensByUserID(userID string) ([]authdomain.FCMToken, error)
	TouchTokens(userID string, at time.Time) error
	DeleteToken(token string) error
}

// AutoMigrate creates or updates the auth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{})
}
