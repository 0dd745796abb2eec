package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	authdomain "navigator-backend/internal/auth/domain"
	authdto "navigator-backend/internal/auth/dto"
	"navigator-backend/internal/auth/repository"
	"navigator-backend/pkg/config"
	"navigator-backend/pkg/secret"

	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestUsecase(t *testing.T) (*authUsecase, repository.UserRepository) {
	t.Helper()
	if err := secret.SetKey(secret.DeriveKey("auth-test")); err != nil {
		t.Fatalf("SetKey() error = %v", err)
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	cfg := &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  time.Minute,
		JWTRefreshExpiry: time.Hour,
		GoogleClientID:   "client-id",
	}
	u := NewAuthUsecase(userRepo, repository.NewFCMTokenRepository(db), cfg).(*authUsecase)
	return u, userRepo
}

func TestRegisterLoginValidate(t *testing.T) {
	u, _ := newTestUsecase(t)

	reg, err := u.Register(&authdto.RegisterRequest{Email: " Student@Uni.edu ", Password: "secret1", Name: "Student"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.User.Email != "student@uni.edu" {
		t.Errorf("Email = %q, want normalized", reg.User.Email)
	}

	if _, err := u.Register(&authdto.RegisterRequest{Email: "student@uni.edu", Password: "secret1", Name: "Again"}); err == nil {
		t.Error("Register() accepted a duplicate email")
	}

	if _, err := u.Login(&authdto.LoginRequest{Email: "student@uni.edu", Password: "wrong00"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with wrong password error = %v", err)
	}

	login, err := u.Login(&authdto.LoginRequest{Email: "STUDENT@uni.edu", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	user, err := u.ValidateToken(login.AccessToken)
	if err != nil || user.ID != reg.User.ID {
		t.Fatalf("ValidateToken() = %v, %v", user, err)
	}

	if _, err := u.ValidateToken(login.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access token: %v", err)
	}

	refreshed, err := u.RefreshToken(login.RefreshToken)
	if err != nil || refreshed.AccessToken == "" {
		t.Fatalf("RefreshToken() = %v, %v", refreshed, err)
	}

	if err := u.Logout(login.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := u.RefreshToken(login.RefreshToken); err == nil {
		t.Error("RefreshToken() succeeded after logout")
	}
	// Reusing the rotated token revoked the session it was exchanged for
	if _, err := u.RefreshToken(refreshed.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("RefreshToken() after reuse = %v, want ErrInvalidToken", err)
	}
}

func TestGoogleSignIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(GoogleTokenInfo{
			Email:         "g@uni.edu",
			Name:          "G",
			EmailVerified: "true",
			Aud:           "client-id",
		})
	}))
	defer server.Close()

	u, _ := newTestUsecase(t)
	u.tokenInfoURL = server.URL

	resp, err := u.GoogleSignIn("good")
	if err != nil {
		t.Fatalf("GoogleSignIn() error = %v", err)
	}
	if resp.User.Provider != "google" {
		t.Errorf("Provider = %q", resp.User.Provider)
	}
	if _, err := u.GoogleSignIn("bad"); err == nil {
		t.Error("GoogleSignIn() accepted a rejected token")
	}
}

func TestConnectGoogleExchangesCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "auth-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	u, userRepo := newTestUsecase(t)
	u.googleEndpoint = oauth2.Endpoint{TokenURL: server.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}

	connected := make(chan string, 1)
	u.SetMailConnectedCallback(func(userID string) { connected <- userID })

	reg, err := u.Register(&authdto.RegisterRequest{Email: "a@uni.edu", Password: "secret1", Name: "A"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := u.ConnectGoogle(context.Background(), reg.User.ID, &authdto.ConnectGoogleRequest{Code: "auth-code"}); err != nil {
		t.Fatalf("ConnectGoogle() error = %v", err)
	}

	stored, _ := userRepo.FindByID(reg.User.ID)
	if stored.MailProvider != authdomain.MailProviderGoogle || stored.GoogleRefreshToken != "rt" {
		t.Errorf("stored user = %+v", stored)
	}
	if stored.GoogleTokenExpiry == nil {
		t.Error("token expiry not stored")
	}

	select {
	case id := <-connected:
		if id != reg.User.ID {
			t.Errorf("callback user = %q", id)
		}
	case <-time.After(time.Second):
		t.Error("mail connected callback not called")
	}
}

func TestConnectIMAPVerifies(t *testing.T) {
	u, userRepo := newTestUsecase(t)
	reg, err := u.Register(&authdto.RegisterRequest{Email: "i@uni.edu", Password: "secret1", Name: "I"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	u.SetIMAPVerifier(func(ctx context.Context, user *authdomain.User) error {
		if user.ImapPassword != "right" {
			return errors.New("auth failed")
		}
		return nil
	})

	req := &authdto.ConnectIMAPRequest{Host: "imap.uni.edu", Username: "i", Password: "wrong"}
	if _, err := u.ConnectIMAP(context.Background(), reg.User.ID, req); err == nil {
		t.Fatal("ConnectIMAP() accepted bad credentials")
	}
	if stored, _ := userRepo.FindByID(reg.User.ID); stored.MailConnected() {
		t.Fatal("failed connect must not store credentials")
	}

	req.Password = "right"
	user, err := u.ConnectIMAP(context.Background(), reg.User.ID, req)
	if err != nil {
		t.Fatalf("ConnectIMAP() error = %v", err)
	}
	if user.ImapPort != 993 || !user.ImapUseTLS {
		t.Errorf("defaults not applied: port=%d tls=%v", user.ImapPort, user.ImapUseTLS)
	}
	stored, _ := userRepo.FindByID(reg.User.ID)
	if !stored.MailConnected() || stored.ImapPassword != "right" {
		t.Error("credentials not stored")
	}
}

func TestUnregisterFCMTokenOwnership(t *testing.T) {
	u, _ := newTestUsecase(t)
	if err := u.RegisterFCMToken("u1", &authdto.RegisterFCMRequest{Token: "tok"}); err != nil {
		t.Fatalf("RegisterFCMToken() error = %v", err)
	}
	if err := u.UnregisterFCMToken("u2", "tok"); !errors.Is(err, ErrFCMTokenNotFound) {
		t.Errorf("other user removed token: %v", err)
	}
	if err := u.UnregisterFCMToken("u1", "tok"); err != nil {
		t.Errorf("UnregisterFCMToken() error = %v", err)
	}
}
