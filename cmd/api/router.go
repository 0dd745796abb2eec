package api

import (
	"net/http"

	"navigator-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authHandler := h.authHandler
	emailHandler := h.emailHandler
	requireAuth := delivery.AuthMiddleware(h.authUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoint; EventSource cannot set headers, so ?token= is accepted too
		api.GET("/events", requireAuth, func(c *gin.Context) {
			h.sseManager.ServeHTTP(c, c.GetString("userID"))
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.POST("/google/connect", requireAuth, authHandler.ConnectGoogle)
			auth.POST("/imap/connect", requireAuth, authHandler.ConnectIMAP)
			auth.DELETE("/mail", requireAuth, authHandler.DisconnectMail)
		}

		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		protected := api.Group("")
		protected.Use(requireAuth)
		{
			protected.POST("/sync/emails", emailHandler.SyncEmails)
			protected.GET("/sync/status", emailHandler.GetSyncStatus)

			protected.POST("/search", emailHandler.Search)
			protected.POST("/chat/email-rag", emailHandler.Chat)
			protected.GET("/rag/stats", emailHandler.RAGStats)

			protected.GET("/deadlines", emailHandler.GetDeadlines)
			protected.DELETE("/deadlines/:id", emailHandler.DeleteDeadline)
			protected.POST("/deadlines/:id/calendar", emailHandler.AddDeadlineToCalendar)

			protected.GET("/alerts", emailHandler.GetAlerts)
			protected.DELETE("/alerts/:id", emailHandler.DeleteAlert)

			protected.GET("/documents", emailHandler.GetDocuments)
			protected.GET("/documents/:id/download", emailHandler.DownloadDocument)

			protected.GET("/emails/:id/summary", emailHandler.GetEmailSummary)
			protected.POST("/emails/analyze", emailHandler.AnalyzeEmail)
			protected.GET("/digest", emailHandler.GetDigest)

			protected.GET("/classroom/courses", emailHandler.ListCourses)
			protected.GET("/classroom/courses/:id/assignments", emailHandler.ListAssignments)
			protected.GET("/classroom/courses/:id/materials", emailHandler.ListMaterials)

			protected.GET("/analytics", emailHandler.GetAnalytics)
			protected.POST("/calendar/events", emailHandler.CreateCalendarEvent)

			protected.GET("/settings/sync", GetSyncSettings)
			protected.PUT("/settings/sync", UpdateSyncSettings)
		}
	}
}
