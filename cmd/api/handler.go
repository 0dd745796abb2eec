package api

import (
	"time"

	authDelivery "navigator-backend/internal/auth/delivery"
	authUsecase "navigator-backend/internal/auth/usecase"
	emailDelivery "navigator-backend/internal/email/delivery"
	emailUsecasePkg "navigator-backend/internal/email/usecase"
	"navigator-backend/pkg/config"
	"navigator-backend/pkg/sse"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase  authUsecase.AuthUsecase
	emailUsecase emailUsecasePkg.EmailUsecase
	sseManager   *sse.Manager
	config       *config.Config
	authHandler  *authDelivery.AuthHandler
	emailHandler *emailDelivery.EmailHandler
}

// NewHandler wires the HTTP layer. syncWorker may be nil, in which case
// POST /api/sync/emails runs the sync inside the request.
func NewHandler(authUc authUsecase.AuthUsecase, emailUc emailUsecasePkg.EmailUsecase, sseManager *sse.Manager, cfg *config.Config, syncWorker *emailUsecasePkg.SyncWorkerService) *Handler {
	InitRuntimeSyncSettings(emailUsecasePkg.SyncSettings{
		Interval:     cfg.SyncEmailInterval,
		MaxResults:   cfg.SyncMaxResults,
		LookbackDays: cfg.SyncLookbackDays,
		MaxRetries:   cfg.SyncMaxRetries,
	})
	emailUc.SetSyncSettingsProvider(GetRuntimeSyncSettings)

	emailHandler := emailDelivery.NewEmailHandler(emailUc)
	if syncWorker != nil {
		emailHandler.SetSyncQueue(syncWorker)
	}

	return &Handler{
		authUsecase:  authUc,
		emailUsecase: emailUc,
		sseManager:   sseManager,
		config:       cfg,
		authHandler:  authDelivery.NewAuthHandler(authUc),
		emailHandler: emailHandler,
	}
}

// Engine builds the gin router with middleware and all routes
func (h *Handler) Engine() *gin.Engine {
	if h.config.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	SetupRoutes(r, h)
	return r
}

func (h *Handler) Start(addr string) error {
	return h.Engine().Run(addr)
}
