package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "navigator-backend/cmd/api"
	"navigator-backend/internal/email/scheduler"
	emailUsecase "navigator-backend/internal/email/usecase"
	"navigator-backend/internal/notification"
	"navigator-backend/pkg/fcm"
	"navigator-backend/pkg/sse"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	sseManager := sse.NewManager()
	go sseManager.Run()
	defer sseManager.Stop()
	app.Email.SetEventPublisher(sseManager)

	syncWorker := emailUsecase.NewSyncWorkerService(app.Email, 2)
	syncWorker.Start()
	defer syncWorker.Stop()

	// FCM is optional; without it reminders and alert pushes are skipped
	var pusher *notification.Pusher
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[FCM] Push notifications disabled: %v", err)
		} else {
			pusher = notification.NewPusher(app.FCMTokenRepo, fcmClient)
			syncWorker.SetOnComplete(notification.NewAlertNotifier(pusher, app.Email).Notify)
		}
	}

	var reminderPusher scheduler.Pusher
	if pusher != nil {
		reminderPusher = pusher
	}
	reminders := scheduler.NewDeadlineReminderScheduler(app.Repos.Deadlines, reminderPusher, cfg.DeadlineReminderWindow, cfg.DeadlineReminderInterval)
	reminders.Start()
	defer reminders.Stop()

	digests := notification.NewDigestNotifier(pusher, app.Email, app.UserRepo)
	digests.SetEventPublisher(sseManager)
	digestScheduler := scheduler.NewDailyDigestScheduler(digests, cfg.DigestHour, cfg.CalendarTimezone)
	digestScheduler.Start()
	defer digestScheduler.Stop()

	var notifService *notification.Service
	if cfg.GoogleProjectID != "" {
		notifService, err = notification.NewService(ctx, cfg.GoogleProjectID, cfg.GooglePubSubTopic, cfg.GoogleCredentialsFile, app.UserRepo, syncWorker)
		if err != nil {
			log.Printf("[PubSub] Failed to initialize notification service: %v", err)
			notifService = nil
		} else {
			notifService.SetEventPublisher(sseManager)
			notifService.SetGmailWatcher(app.Gmail)
			go notifService.Start(ctx)
			defer notifService.Close()
		}
	} else {
		log.Printf("[PubSub] GOOGLE_PROJECT_ID not configured, push sync disabled")
	}

	// A newly connected inbox gets a first sync, and Gmail inboxes a push watch
	app.Auth.SetMailConnectedCallback(func(userID string) {
		if notifService != nil {
			watchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := notifService.WatchUser(watchCtx, userID); err != nil {
				log.Printf("[PubSub] Watch failed for user %s: %v", userID, err)
			}
			cancel()
		}
		syncWorker.QueueSync(userID)
	})

	handler := api.NewHandler(app.Auth, app.Email, sseManager, cfg, syncWorker)
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
