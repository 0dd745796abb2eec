package cli

import (
	"context"
	"fmt"
	"log"

	authdomain "navigator-backend/internal/auth/domain"
	authRepo "navigator-backend/internal/auth/repository"
	authUsecase "navigator-backend/internal/auth/usecase"
	emailRepo "navigator-backend/internal/email/repository"
	emailUsecase "navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/ai"
	"navigator-backend/pkg/calendar"
	"navigator-backend/pkg/chroma"
	"navigator-backend/pkg/classroom"
	"navigator-backend/pkg/config"
	"navigator-backend/pkg/database"
	"navigator-backend/pkg/embedding"
	"navigator-backend/pkg/gmail"
	"navigator-backend/pkg/imap"
	"navigator-backend/pkg/secret"

	"gorm.io/gorm"
)

// App holds the wired services shared by every command
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	UserRepo     authRepo.UserRepository
	FCMTokenRepo authRepo.FCMTokenRepository
	Repos        emailUsecase.Repositories
	Gmail        *gmail.Service
	IMAP         *imap.Service
	Auth         authUsecase.AuthUsecase
	Email        emailUsecase.EmailUsecase
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, authRepo.AutoMigrate, emailRepo.AutoMigrate); err != nil {
		return nil, err
	}
	return db, nil
}

// newApp connects the database and builds repositories and use cases
func newApp(cfg *config.Config) (*App, error) {
	if err := secret.SetKey(secret.ParseKey(cfg.IMAPEncryptionKey)); err != nil {
		return nil, fmt.Errorf("failed to set credential key: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		DB:           db,
		UserRepo:     authRepo.NewUserRepository(db),
		FCMTokenRepo: authRepo.NewFCMTokenRepository(db),
		Repos: emailUsecase.Repositories{
			Embeddings: emailRepo.NewEmailEmbeddingRepository(db),
			Deadlines:  emailRepo.NewDeadlineRepository(db),
			Alerts:     emailRepo.NewScheduleChangeRepository(db),
			Documents:  emailRepo.NewDocumentRepository(db),
			SyncStatus: emailRepo.NewSyncStatusRepository(db),
			Summaries:  emailRepo.NewEmailSummaryRepository(db),
		},
		Gmail: gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret),
		IMAP:  imap.NewService(),
	}

	generator, err := ai.NewGenerator(ai.Config{
		Provider:                ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:            cfg.GeminiAPIKey,
		GeminiModel:             cfg.GeminiModel,
		GeminiRequestsPerMinute: cfg.GeminiRequestsPerMinute,
		OllamaBaseURL:           cfg.OllamaBaseURL,
		OllamaModel:             cfg.OllamaModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
	}
	log.Printf("[AI] Generator initialized with provider: %s", cfg.AIProvider)

	embedder, err := embedding.New(embedding.Config{
		Provider:     cfg.EmbeddingProvider,
		NomicAPIKey:  cfg.NomicAPIKey,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	connector := emailUsecase.NewMailConnector(app.UserRepo, app.Gmail, app.IMAP)
	app.Email = emailUsecase.NewEmailUsecase(app.Repos, app.UserRepo, connector, generator, embedder, cfg)
	app.Email.SetCalendarService(emailUsecase.NewCalendarConnector(app.UserRepo, app.Gmail, calendar.NewService(cfg.CalendarTimezone)))
	app.Email.SetClassroomService(emailUsecase.NewClassroomConnector(app.UserRepo, app.Gmail, classroom.NewService()))

	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("[Chroma] Init failed, search uses the full scan: %v", err)
		} else {
			app.Email.SetVectorIndex(chromaClient)
		}
	}

	app.Auth = authUsecase.NewAuthUsecase(app.UserRepo, app.FCMTokenRepo, cfg)
	app.Auth.SetIMAPVerifier(func(ctx context.Context, user *authdomain.User) error {
		return app.IMAP.Verify(ctx, emailUsecase.IMAPCredentials(user))
	})
	return app, nil
}

func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
