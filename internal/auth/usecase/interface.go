package usecase

import (
	"context"

	authdomain "navigator-backend/internal/auth/domain"
	authdto "navigator-backend/internal/auth/dto"
)

// AuthUsecase defines account, session and inbox-connection operations
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	GoogleSignIn(idToken string) (*authdto.TokenResponse, error)
	RefreshToken(refreshToken string) (*authdto.TokenResponse, error)
	Logout(refreshToken string) error
	ValidateToken(tokenString string) (*authdomain.User, error)

	// ConnectGoogle stores Gmail/Calendar OAuth tokens for the user
	ConnectGoogle(ctx context.Context, userID string, req *authdto.ConnectGoogleRequest) (*authdomain.User, error)
	// ConnectIMAP stores IMAP credentials after an optional login check
	ConnectIMAP(ctx context.Context, userID string, req *authdto.ConnectIMAPRequest) (*authdomain.User, error)
	DisconnectMail(userID string) error

	RegisterFCMToken(userID string, req *authdto.RegisterFCMRequest) error
	UnregisterFCMToken(userID, token string) error

	// SetMailConnectedCallback runs after an inbox is attached (e.g. to queue a first sync)
	SetMailConnectedCallback(fn func(userID string))
	SetIMAPVerifier(fn func(ctx context.Context, user *authdomain.User) error)
}
