package classroom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/classroom/v1"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/v1/courses"):
			if r.URL.Query().Get("courseStates") != "ACTIVE" {
				t.Errorf("courseStates = %q", r.URL.Query().Get("courseStates"))
			}
			_ = json.NewEncoder(w).Encode(classroom.ListCoursesResponse{Courses: []*classroom.Course{
				{Id: "c1", Name: "CS101", Section: "A", AlternateLink: "https://classroom.google.com/c/c1"},
			}})
		case strings.HasSuffix(r.URL.Path, "/v1/courses/c1/courseWork"):
			if r.URL.Query().Get("courseWorkStates") != "PUBLISHED" {
				t.Errorf("courseWorkStates = %q", r.URL.Query().Get("courseWorkStates"))
			}
			_ = json.NewEncoder(w).Encode(classroom.ListCourseWorkResponse{CourseWork: []*classroom.CourseWork{
				{Id: "w1", Title: "HW3", WorkType: "ASSIGNMENT",
					DueDate: &classroom.Date{Year: 2026, Month: 3, Day: 7},
					DueTime: &classroom.TimeOfDay{Hours: 17, Minutes: 30}},
				{Id: "w2", Title: "Reading"},
			}})
		case strings.HasSuffix(r.URL.Path, "/v1/courses/c1/courseWorkMaterials"):
			_ = json.NewEncoder(w).Encode(classroom.ListCourseWorkMaterialResponse{CourseWorkMaterial: []*classroom.CourseWorkMaterial{
				{Id: "m1", Title: "Week 1", Materials: []*classroom.Material{
					{DriveFile: &classroom.SharedDriveFile{DriveFile: &classroom.DriveFile{Title: "slides.pdf"}}},
					{Link: &classroom.Link{Url: "https://example.edu/notes"}},
				}},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListCourses(t *testing.T) {
	server := newTestServer(t)
	svc := NewService().WithEndpoint(server.URL + "/")

	courses, err := svc.ListCourses(context.Background(), server.Client())
	if err != nil {
		t.Fatalf("ListCourses() error = %v", err)
	}
	want := []*Course{{ID: "c1", Name: "CS101", Section: "A", Link: "https://classroom.google.com/c/c1"}}
	if diff := cmp.Diff(want, courses); diff != "" {
		t.Errorf("courses mismatch (-want +got):\n%s", diff)
	}
}

func TestListAssignments(t *testing.T) {
	server := newTestServer(t)
	svc := NewService().WithEndpoint(server.URL + "/")

	assignments, err := svc.ListAssignments(context.Background(), server.Client(), "c1")
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(assignments))
	}
	due := time.Date(2026, 3, 7, 17, 30, 0, 0, time.UTC)
	if assignments[0].Due == nil || !assignments[0].Due.Equal(due) {
		t.Errorf("Due = %v, want %v", assignments[0].Due, due)
	}
	if assignments[0].CourseID != "c1" {
		t.Errorf("CourseID = %q", assignments[0].CourseID)
	}
	if assignments[1].Due != nil {
		t.Errorf("undated coursework Due = %v", assignments[1].Due)
	}
}

func TestListMaterials(t *testing.T) {
	server := newTestServer(t)
	svc := NewService().WithEndpoint(server.URL + "/")

	materials, err := svc.ListMaterials(context.Background(), server.Client(), "c1")
	if err != nil {
		t.Fatalf("ListMaterials() error = %v", err)
	}
	if len(materials) != 1 {
		t.Fatalf("got %d materials, want 1", len(materials))
	}
	if diff := cmp.Diff([]string{"slides.pdf", "https://example.edu/notes"}, materials[0].Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestDueTime(t *testing.T) {
	tests := []struct {
		name string
		date *classroom.Date
		tod  *classroom.TimeOfDay
		want *time.Time
	}{
		{name: "no date", want: nil},
		{name: "incomplete date", date: &classroom.Date{Year: 2026, Month: 3}, want: nil},
		{name: "date only", date: &classroom.Date{Year: 2026, Month: 3, Day: 7}, want: ptr(time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC))},
		{name: "midnight", date: &classroom.Date{Year: 2026, Month: 3, Day: 7}, tod: &classroom.TimeOfDay{}, want: ptr(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueTime(tt.date, tt.tod)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DueTime() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }
