package calendar

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	calendarID      = "primary"
	defaultDuration = time.Hour
)

// Event is a calendar entry derived from a deadline or created ad hoc
type Event struct {
	Title       string
	Description string
	Course      string
	Start       time.Time
	Duration    time.Duration
}

// Service creates Google Calendar events
type Service struct {
	timezone string
	endpoint string
}

// NewService creates a new calendar service
func NewService(timezone string) *Service {
	if timezone == "" {
		timezone = "America/New_York"
	}
	return &Service{timezone: timezone}
}

// WithEndpoint points the client at a different API root (used by tests)
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// BuildEvent maps an Event onto the Calendar API shape: one hour long by
// default, popup reminders one day and one hour before.
func (s *Service) BuildEvent(ev Event) *calendar.Event {
	duration := ev.Duration
	if duration <= 0 {
		duration = defaultDuration
	}

	description := ev.Description
	if description == "" {
		description = ev.Title
		if ev.Course != "" {
			description = fmt.Sprintf("%s - %s", ev.Course, ev.Title)
		}
	}

	loc, err := time.LoadLocation(s.timezone)
	if err != nil {
		loc = time.UTC
	}
	start := ev.Start.In(loc)
	end := start.Add(duration)

	return &calendar.Event{
		Summary:     ev.Title,
		Description: description,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: s.timezone},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: s.timezone},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// CreateEvent inserts the event into the user's primary calendar and returns its ID
func (s *Service) CreateEvent(ctx context.Context, client *http.Client, ev Event) (string, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("unable to create Calendar service: %w", err)
	}

	created, err := srv.Events.Insert(calendarID, s.BuildEvent(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create event: %w", err)
	}
	log.Printf("[Calendar] Created event %s (%s)", created.Id, ev.Title)
	return created.Id, nil
}
