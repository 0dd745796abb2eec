package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
)

// SyncQuery builds the connector filter for a run: incremental from the
// watermark when there is one, otherwise a fixed lookback window.
func SyncQuery(status *emaildomain.SyncStatus, now time.Time, lookbackDays int) string {
	if status != nil && status.LastSync != nil && !status.LastSync.IsZero() {
		return fmt.Sprintf("after:%d", status.LastSync.Unix())
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return fmt.Sprintf("after:%d", now.AddDate(0, 0, -lookbackDays).Unix())
}

type syncItem struct {
	email *emaildomain.Email
	retry bool
}

func (u *emailUsecase) SyncEmails(ctx context.Context, userID string) (*SyncResult, error) {
	settings := u.syncSettings()
	if settings.MaxResults <= 0 || settings.MaxResults > 100 {
		settings.MaxResults = 100
	}
	startedAt := u.now()

	status, err := u.repos.SyncStatus.Get(userID)
	if err != nil {
		return nil, storeErr("load sync status", err)
	}

	query := SyncQuery(status, startedAt, settings.LookbackDays)
	log.Printf("[Sync] User %s: fetching with %q (max %d)", userID, query, settings.MaxResults)

	emails, err := u.connector.FetchEmails(ctx, userID, query, settings.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emails: %w", err)
	}

	items := make([]syncItem, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		items = append(items, syncItem{email: e})
		if e != nil {
			seen[e.ID] = true
		}
	}
	items = append(items, u.retryItems(ctx, userID, settings, seen)...)

	result := &SyncResult{}
	if len(items) == 0 {
		log.Printf("[Sync] User %s: no new emails", userID)
		result.UpToDate = true
		u.publish(userID, "sync_complete", result)
		return result, nil
	}

	pacer := u.newPacer(settings.Interval)
	var runErr error
	for i, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			runErr = err
			break
		}

		log.Printf("[Sync] Processing %d/%d", i+1, len(items))
		processed, err := u.ProcessEmail(ctx, userID, item.email)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			if IsStoreError(err) {
				log.Printf("[Sync] Store failure, stopping run: %v", err)
				runErr = err
				break
			}
			result.Failed++
			id := ""
			if item.email != nil {
				id = item.email.ID
			}
			log.Printf("[Sync] Failed to process email %s: %v", id, err)
			if id != "" {
				if ferr := u.repos.SyncStatus.RecordFailure(userID, id, err.Error()); ferr != nil {
					runErr = storeErr("record failure", ferr)
					break
				}
			}
			continue
		}

		result.Processed++
		if item.retry {
			result.Retried++
		}
		result.Deadlines += len(processed.Deadlines)
		result.Alerts += len(processed.Alerts)
		result.Documents += len(processed.Documents)
		if err := u.repos.SyncStatus.ClearFailure(userID, processed.EmailID); err != nil {
			runErr = storeErr("clear failure", err)
			break
		}

		u.publish(userID, "sync_progress", map[string]interface{}{
			"current":  i + 1,
			"total":    len(items),
			"email_id": processed.EmailID,
		})
	}

	// The watermark advances past failed emails, which live in the dead-letter table.
	// A stopped run leaves it where it was so the unattempted emails are fetched again.
	lastSync := &startedAt
	if runErr != nil {
		lastSync = nil
		if status != nil {
			lastSync = status.LastSync
		}
	}
	newStatus := &emaildomain.SyncStatus{
		UserID:         userID,
		LastSync:       lastSync,
		EmailsSynced:   result.Processed,
		EmailsFailed:   result.Failed,
		DeadlinesFound: result.Deadlines,
		AlertsFound:    result.Alerts,
		DocumentsFound: result.Documents,
	}
	if err := u.repos.SyncStatus.Save(newStatus); err != nil {
		log.Printf("[Sync] Failed to save sync status for %s: %v", userID, err)
		if runErr == nil {
			runErr = storeErr("save sync status", err)
		}
	}

	if runErr != nil {
		log.Printf("[Sync] User %s stopped: %d processed, %d failed, watermark kept", userID, result.Processed, result.Failed)
	} else {
		log.Printf("[Sync] User %s complete: %d processed, %d failed", userID, result.Processed, result.Failed)
	}
	u.publish(userID, "sync_complete", result)
	return result, runErr
}

// retryItems re-fetches dead-lettered emails that still have attempts left
func (u *emailUsecase) retryItems(ctx context.Context, userID string, settings SyncSettings, seen map[string]bool) []syncItem {
	if settings.MaxRetries <= 0 {
		return nil
	}
	failed, err := u.repos.SyncStatus.FindRetryable(userID, settings.MaxRetries, settings.MaxResults)
	if err != nil {
		log.Printf("[Sync] Could not load failed emails for %s: %v", userID, err)
		return nil
	}

	var items []syncItem
	for _, f := range failed {
		if seen[f.EmailID] {
			continue
		}
		email, err := u.connector.FetchEmail(ctx, userID, f.EmailID)
		if err != nil || email == nil {
			log.Printf("[Sync] Retry fetch failed for %s: %v", f.EmailID, err)
			reason := "email no longer available"
			if err != nil {
				reason = err.Error()
			}
			if rerr := u.repos.SyncStatus.RecordFailure(userID, f.EmailID, reason); rerr != nil {
				log.Printf("[Sync] Could not record retry failure for %s: %v", f.EmailID, rerr)
			}
			continue
		}
		if email.ID == "" {
			email.ID = f.EmailID
		}
		items = append(items, syncItem{email: email, retry: true})
	}
	return items
}

func (u *emailUsecase) SyncAllUsers(ctx context.Context) error {
	users, err := u.userRepo.FindMailConnected()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var lastErr error
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result, err := u.SyncEmails(ctx, user.ID)
		if err != nil {
			log.Printf("[Sync] User %s failed: %v", user.ID, err)
			lastErr = err
			continue
		}
		log.Printf("[Sync] User %s: %d processed, %d failed", user.ID, result.Processed, result.Failed)
	}
	return lastErr
}

func (u *emailUsecase) GetSyncStatus(userID string) (*emaildomain.SyncStatus, error) {
	status, err := u.repos.SyncStatus.Get(userID)
	if err != nil {
		return nil, storeErr("load sync status", err)
	}
	if status == nil {
		return &emaildomain.SyncStatus{UserID: userID}, nil
	}
	return status, nil
}

func (u *emailUsecase) publish(userID, event string, data interface{}) {
	if u.events == nil {
		return
	}
	u.events.SendToUser(userID, event, data)
}
