package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	authdomain "navigator-backend/internal/auth/domain"
	authdto "navigator-backend/internal/auth/dto"

	"golang.org/x/oauth2"
)

const defaultIMAPPort = 993

func (u *authUsecase) loadUser(userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (u *authUsecase) ConnectGoogle(ctx context.Context, userID string, req *authdto.ConnectGoogleRequest) (*authdomain.User, error) {
	user, err := u.loadUser(userID)
	if err != nil {
		return nil, err
	}

	var token *oauth2.Token
	switch {
	case req.Code != "":
		redirect := req.RedirectURI
		if redirect == "" {
			redirect = "postmessage"
		}
		cfg := &oauth2.Config{
			ClientID:     u.config.GoogleClientID,
			ClientSecret: u.config.GoogleClientSecret,
			Endpoint:     u.googleEndpoint,
			RedirectURL:  redirect,
			Scopes:       GoogleScopes,
		}
		exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
		token, err = cfg.Exchange(exchangeCtx, req.Code, oauth2.AccessTypeOffline)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
		}
	case req.AccessToken != "" || req.RefreshToken != "":
		token = &oauth2.Token{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken}
	default:
		return nil, errors.New("code or tokens are required")
	}

	user.MailProvider = authdomain.MailProviderGoogle
	user.GoogleAccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.GoogleRefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		user.GoogleTokenExpiry = &expiry
	}
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}

	log.Printf("[Auth] Gmail connected for user %s", userID)
	u.mailConnected(userID)
	return user, nil
}

func (u *authUsecase) ConnectIMAP(ctx context.Context, userID string, req *authdto.ConnectIMAPRequest) (*authdomain.User, error) {
	user, err := u.loadUser(userID)
	if err != nil {
		return nil, err
	}

	useTLS := true
	if req.UseTLS != nil {
		useTLS = *req.UseTLS
	}
	port := req.Port
	if port <= 0 {
		port = defaultIMAPPort
	}

	candidate := *user
	candidate.MailProvider = authdomain.MailProviderIMAP
	candidate.ImapHost = strings.TrimSpace(req.Host)
	candidate.ImapPort = port
	candidate.ImapUsername = strings.TrimSpace(req.Username)
	candidate.ImapPassword = req.Password
	candidate.ImapUseTLS = useTLS

	if u.verifyIMAP != nil {
		verifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := u.verifyIMAP(verifyCtx, &candidate); err != nil {
			return nil, fmt.Errorf("imap login check failed: %w", err)
		}
	}

	if err := u.userRepo.Update(&candidate); err != nil {
		return nil, err
	}

	log.Printf("[Auth] IMAP inbox %s connected for user %s", candidate.ImapHost, userID)
	u.mailConnected(userID)
	return &candidate, nil
}

func (u *authUsecase) DisconnectMail(userID string) error {
	user, err := u.loadUser(userID)
	if err != nil {
		return err
	}
	user.MailProvider = ""
	user.GoogleAccessToken = ""
	user.GoogleRefreshToken = ""
	user.GoogleTokenExpiry = nil
	user.ImapPassword = ""
	return u.userRepo.Update(user)
}

func (u *authUsecase) mailConnected(userID string) {
	if u.onMailConnected != nil {
		go u.onMailConnected(userID)
	}
}

func (u *authUsecase) RegisterFCMToken(userID string, req *authdto.RegisterFCMRequest) error {
	platform := req.Platform
	if platform == "" {
		platform = "web"
	}
	return u.fcmTokenRepo.SaveToken(userID, req.Token, platform, req.DeviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(userID, token string) error {
	tokens, err := u.fcmTokenRepo.GetTokensByUserID(userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Token == token {
			return u.fcmTokenRepo.DeleteToken(token)
		}
	}
	return ErrFCMTokenNotFound
}
