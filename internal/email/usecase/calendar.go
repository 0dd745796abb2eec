package usecase

import (
	"context"
	"fmt"
	"log"

	emaildomain "navigator-backend/internal/email/domain"
)

// AddDeadlineToCalendar creates a calendar event for a stored deadline.
// It only runs on explicit user request, never during ingestion.
func (u *emailUsecase) AddDeadlineToCalendar(ctx context.Context, userID, deadlineID string) (*emaildomain.Deadline, error) {
	if u.calendar == nil {
		return nil, ErrCalendarUnavailable
	}
	deadline, err := u.repos.Deadlines.FindByID(userID, deadlineID)
	if err != nil {
		return nil, storeErr("load deadline", err)
	}
	if deadline == nil {
		return nil, ErrNotFound
	}
	if deadline.AddedToCalendar {
		return deadline, nil
	}

	eventID, err := u.calendar.CreateEvent(ctx, userID, CalendarEvent{
		Title:       deadline.Title,
		Description: deadline.Description,
		Course:      deadline.Course,
		Start:       deadline.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar event: %w", err)
	}

	if err := u.repos.Deadlines.MarkAddedToCalendar(userID, deadlineID, eventID); err != nil {
		return nil, storeErr("mark added to calendar", err)
	}
	log.Printf("[Calendar] Deadline %s added as event %s", deadlineID, eventID)

	deadline.AddedToCalendar = true
	deadline.CalendarEventID = eventID
	return deadline, nil
}

func (u *emailUsecase) CreateCalendarEvent(ctx context.Context, userID string, event CalendarEvent) (string, error) {
	if u.calendar == nil {
		return "", ErrCalendarUnavailable
	}
	if event.Title == "" || event.Start.IsZero() {
		return "", fmt.Errorf("title and start are required")
	}
	return u.calendar.CreateEvent(ctx, userID, event)
}
