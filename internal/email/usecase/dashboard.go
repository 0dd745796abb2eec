package usecase

import (
	"context"
	"fmt"
	"strings"

	emaildomain "navigator-backend/internal/email/domain"
)

func (u *emailUsecase) GetDeadlines(userID string) ([]*emaildomain.Deadline, error) {
	deadlines, err := u.repos.Deadlines.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load deadlines", err)
	}
	return deadlines, nil
}

func (u *emailUsecase) DeleteDeadline(userID, id string) error {
	existing, err := u.repos.Deadlines.FindByID(userID, id)
	if err != nil {
		return storeErr("load deadline", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	return storeErr("delete deadline", u.repos.Deadlines.Delete(userID, id))
}

func (u *emailUsecase) GetAlerts(userID string) ([]*emaildomain.ScheduleChange, error) {
	alerts, err := u.repos.Alerts.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load alerts", err)
	}
	return alerts, nil
}

func (u *emailUsecase) DeleteAlert(userID, id string) error {
	return storeErr("delete alert", u.repos.Alerts.Delete(userID, id))
}

func (u *emailUsecase) GetDocuments(userID string) ([]*emaildomain.Document, error) {
	docs, err := u.repos.Documents.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load documents", err)
	}
	return docs, nil
}

// DownloadDocument returns a catalogued document's bytes from the mail provider
func (u *emailUsecase) DownloadDocument(ctx context.Context, userID, id string) (*emaildomain.Document, []byte, error) {
	doc, err := u.repos.Documents.FindByID(userID, id)
	if err != nil {
		return nil, nil, storeErr("load document", err)
	}
	if doc == nil || doc.AttachmentID == "" {
		return nil, nil, ErrNotFound
	}
	data, err := u.connector.FetchAttachment(ctx, userID, doc.EmailID, doc.AttachmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	return doc, data, nil
}

func (u *emailUsecase) GetAnalytics(userID string) (*Analytics, error) {
	deadlines, err := u.GetDeadlines(userID)
	if err != nil {
		return nil, err
	}
	docs, err := u.GetDocuments(userID)
	if err != nil {
		return nil, err
	}
	alerts, err := u.GetAlerts(userID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	a := &Analytics{
		DeadlinesByMonth:  map[string]int{},
		DeadlinesByCourse: map[string]int{},
		DocumentsByCourse: map[string]int{},
		DocumentsByType:   map[string]int{},
		AlertsByType:      map[string]int{},
		Heatmap:           map[string]int{},
	}
	for _, d := range deadlines {
		if d.DueDate.Before(now) {
			a.PastDeadlines++
		} else {
			a.UpcomingDeadlines++
		}
		a.DeadlinesByMonth[d.DueDate.Format("2006-01")]++
		a.DeadlinesByCourse[d.Course]++
		if d.DueDate.Year() == now.Year() {
			a.Heatmap[d.DueDate.Format("2006-01-02")]++
		}
	}
	for _, doc := range docs {
		a.DocumentsByCourse[doc.Course]++
		a.DocumentsByType[string(doc.Type)]++
	}
	for _, alert := range alerts {
		a.AlertsByType[string(alert.Type)]++
	}
	return a, nil
}

// FilterDocuments keeps documents matching the given type and course.
// Empty filters match everything; course matching ignores case.
func FilterDocuments(docs []*emaildomain.Document, docType, course string) []*emaildomain.Document {
	out := make([]*emaildomain.Document, 0, len(docs))
	for _, d := range docs {
		if docType != "" && string(d.Type) != docType {
			continue
		}
		if course != "" && !strings.EqualFold(d.Course, course) {
			continue
		}
		out = append(out, d)
	}
	return out
}
