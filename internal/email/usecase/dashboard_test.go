package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	emaildomain "navigator-backend/internal/email/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type fakeCalendar struct {
	events []CalendarEvent
	err    error
}

func (c *fakeCalendar) CreateEvent(ctx context.Context, userID string, event CalendarEvent) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.events = append(c.events, event)
	return "evt-1", nil
}

func ingestCS101(t *testing.T, env *testEnv) {
	t.Helper()
	env.generator.course = "CS101"
	env.generator.deadlines = cs101Deadlines
	if _, err := env.uc.ProcessEmail(context.Background(), "u1", cs101Email()); err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}
}

func TestAddDeadlineToCalendar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ingestCS101(t, env)

	if _, err := env.uc.AddDeadlineToCalendar(ctx, "u1", "m1_deadline_0"); !errors.Is(err, ErrCalendarUnavailable) {
		t.Fatalf("error without calendar = %v, want ErrCalendarUnavailable", err)
	}

	cal := &fakeCalendar{}
	env.uc.SetCalendarService(cal)

	d, err := env.uc.AddDeadlineToCalendar(ctx, "u1", "m1_deadline_0")
	if err != nil {
		t.Fatalf("AddDeadlineToCalendar() error = %v", err)
	}
	if !d.AddedToCalendar || d.CalendarEventID != "evt-1" {
		t.Errorf("deadline = %+v", d)
	}
	if len(cal.events) != 1 || cal.events[0].Title != "HW3" || cal.events[0].Course != "CS101" {
		t.Errorf("events = %+v", cal.events)
	}

	if _, err := env.uc.AddDeadlineToCalendar(ctx, "u1", "m1_deadline_0"); err != nil {
		t.Fatalf("second AddDeadlineToCalendar() error = %v", err)
	}
	if len(cal.events) != 1 {
		t.Errorf("calendar called %d times, want 1", len(cal.events))
	}

	if _, err := env.uc.AddDeadlineToCalendar(ctx, "u1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown deadline error = %v, want ErrNotFound", err)
	}
	if _, err := env.uc.AddDeadlineToCalendar(ctx, "u2", "m1_deadline_0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's deadline error = %v, want ErrNotFound", err)
	}
}

func TestCreateCalendarEventRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	env.uc.SetCalendarService(&fakeCalendar{})

	if _, err := env.uc.CreateCalendarEvent(context.Background(), "u1", CalendarEvent{Title: "Study group"}); err == nil {
		t.Error("event without start accepted")
	}
	id, err := env.uc.CreateCalendarEvent(context.Background(), "u1", CalendarEvent{Title: "Study group", Start: testNow})
	if err != nil || id != "evt-1" {
		t.Errorf("CreateCalendarEvent() = %q, %v", id, err)
	}
}

func TestDeleteDeadline(t *testing.T) {
	env := newTestEnv(t)
	ingestCS101(t, env)

	if err := env.uc.DeleteDeadline("u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDeadline(missing) = %v, want ErrNotFound", err)
	}
	if err := env.uc.DeleteDeadline("u1", "m1_deadline_0"); err != nil {
		t.Fatalf("DeleteDeadline() error = %v", err)
	}
	if deadlines, _ := env.uc.GetDeadlines("u1"); len(deadlines) != 0 {
		t.Errorf("deadlines after delete = %d", len(deadlines))
	}
}

func TestDownloadDocument(t *testing.T) {
	env := newTestEnv(t)
	ingestCS101(t, env)
	env.connector.attachments["m1/att1"] = []byte("%PDF-1.7")

	doc, data, err := env.uc.DownloadDocument(context.Background(), "u1", "m1_doc_att1")
	if err != nil {
		t.Fatalf("DownloadDocument() error = %v", err)
	}
	if doc.Filename != "CS101_HW3.pdf" || string(data) != "%PDF-1.7" {
		t.Errorf("DownloadDocument() = %+v, %q", doc, data)
	}

	if _, _, err := env.uc.DownloadDocument(context.Background(), "u1", "m1_doc_att9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document error = %v, want ErrNotFound", err)
	}
}

func TestGetAnalytics(t *testing.T) {
	env := newTestEnv(t)
	ingestCS101(t, env)

	a, err := env.uc.GetAnalytics("u1")
	if err != nil {
		t.Fatalf("GetAnalytics() error = %v", err)
	}
	want := &Analytics{
		UpcomingDeadlines: 1,
		DeadlinesByMonth:  map[string]int{"2026-03": 1},
		DeadlinesByCourse: map[string]int{"CS101": 1},
		DocumentsByCourse: map[string]int{"CS101": 1},
		DocumentsByType:   map[string]int{"pdf": 1},
		AlertsByType:      map[string]int{},
		Heatmap:           map[string]int{"2026-03-13": 1},
	}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("analytics mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterDocuments(t *testing.T) {
	docs := []*emaildomain.Document{
		{ID: "1", Type: emaildomain.DocumentPDF, Course: "CS101"},
		{ID: "2", Type: emaildomain.DocumentDOCX, Course: "CS101"},
		{ID: "3", Type: emaildomain.DocumentPDF, Course: "MATH204"},
	}
	tests := []struct {
		name    string
		docType string
		course  string
		want    []string
	}{
		{"no filter", "", "", []string{"1", "2", "3"}},
		{"by type", "pdf", "", []string{"1", "3"}},
		{"by course ignoring case", "", "cs101", []string{"1", "2"}},
		{"both", "pdf", "math204", []string{"3"}},
		{"nothing matches", "ppt", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, d := range FilterDocuments(docs, tt.docType, tt.course) {
				got = append(got, d.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterDocuments() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterDocumentsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	types := []interface{}{"pdf", "docx", "ppt", "xlsx"}
	courses := []interface{}{"CS101", "cs101", "MATH204", "Unknown"}
	docGen := gen.Struct(reflect.TypeOf(emaildomain.Document{}), map[string]gopter.Gen{
		"ID":     gen.Identifier(),
		"Type":   gen.OneConstOf(types...).Map(func(v string) emaildomain.DocumentType { return emaildomain.DocumentType(v) }),
		"Course": gen.OneConstOf(courses...),
	})

	properties.Property("results are a matching subsequence", prop.ForAll(
		func(values []emaildomain.Document, docType, course string) bool {
			docs := make([]*emaildomain.Document, len(values))
			for i := range values {
				docs[i] = &values[i]
			}
			out := FilterDocuments(docs, docType, course)
			j := 0
			for _, d := range docs {
				matches := string(d.Type) == docType && strings.EqualFold(d.Course, course)
				if matches {
					if j >= len(out) || out[j] != d {
						return false
					}
					j++
				}
			}
			return j == len(out)
		},
		gen.SliceOf(docGen),
		gen.OneConstOf(types...),
		gen.OneConstOf(courses...),
	))

	properties.TestingRun(t)
}
