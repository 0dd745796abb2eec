package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"navigator-backend/internal/notification"
	"navigator-backend/pkg/fcm"

	"github.com/spf13/cobra"
)

var (
	syncUserID string
	syncAll    bool
	syncDigest bool
)

// syncCmd is meant for cron: it runs one sync pass and exits
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one email sync",
	Long: `Fetch and process new mail for one user (--user) or every user with a connected inbox (--all).
With --digest the daily digest is built and delivered after the sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll == (syncUserID != "") {
			return errors.New("exactly one of --user or --all is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		var pusher *notification.Pusher
		if syncDigest && cfg.FirebaseCredentials != "" {
			fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
			if err != nil {
				log.Printf("[FCM] Digest push disabled: %v", err)
			} else {
				pusher = notification.NewPusher(app.FCMTokenRepo, fcmClient)
			}
		}
		digests := notification.NewDigestNotifier(pusher, app.Email, app.UserRepo)

		if syncAll {
			if err := app.Email.SyncAllUsers(ctx); err != nil {
				return err
			}
			if syncDigest {
				sent, err := digests.SendAll(ctx)
				fmt.Printf("digests=%d\n", sent)
				return err
			}
			return nil
		}

		result, err := app.Email.SyncEmails(ctx, syncUserID)
		if result != nil {
			fmt.Printf("processed=%d failed=%d retried=%d deadlines=%d alerts=%d documents=%d up_to_date=%v\n",
				result.Processed, result.Failed, result.Retried, result.Deadlines, result.Alerts, result.Documents, result.UpToDate)
		}
		if err != nil || !syncDigest {
			return err
		}
		digest, err := digests.Send(ctx, syncUserID)
		if digest != nil {
			fmt.Println(digest.Text)
		}
		return err
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncUserID, "user", "", "user ID to sync")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every user with a connected inbox")
	syncCmd.Flags().BoolVar(&syncDigest, "digest", false, "build and deliver the daily digest after syncing")
}
