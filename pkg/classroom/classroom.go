package classroom

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"
)

const pageSize = 100

// Course is an active Google Classroom course the user belongs to
type Course struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Section string `json:"section,omitempty"`
	Room    string `json:"room,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Assignment is a published piece of coursework
type Assignment struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	WorkType    string     `json:"work_type,omitempty"`
	Due         *time.Time `json:"due,omitempty"`
	Link        string     `json:"link,omitempty"`
}

// Material is a course resource: a Drive file, link, video or form
type Material struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Service reads courses and coursework from Google Classroom
type Service struct {
	endpoint string
}

// NewService creates a new classroom service
func NewService() *Service {
	return &Service{}
}

// WithEndpoint points the client at a different API root (used by tests)
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

func (s *Service) client(ctx context.Context, httpClient *http.Client) (*classroom.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	srv, err := classroom.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Classroom service: %w", err)
	}
	return srv, nil
}

// ListCourses returns the user's active courses
func (s *Service) ListCourses(ctx context.Context, httpClient *http.Client) ([]*Course, error) {
	srv, err := s.client(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	resp, err := srv.Courses.List().CourseStates("ACTIVE").PageSize(pageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list courses: %w", err)
	}

	courses := make([]*Course, 0, len(resp.Courses))
	for _, c := range resp.Courses {
		courses = append(courses, &Course{
			ID:      c.Id,
			Name:    c.Name,
			Section: c.Section,
			Room:    c.Room,
			Link:    c.AlternateLink,
		})
	}
	log.Printf("[Classroom] Listed %d courses", len(courses))
	return courses, nil
}

// ListAssignments returns the published coursework of one course
func (s *Service) ListAssignments(ctx context.Context, httpClient *http.Client, courseID string) ([]*Assignment, error) {
	srv, err := s.client(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	resp, err := srv.Courses.CourseWork.List(courseID).CourseWorkStates("PUBLISHED").PageSize(pageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list coursework for %s: %w", courseID, err)
	}

	assignments := make([]*Assignment, 0, len(resp.CourseWork))
	for _, w := range resp.CourseWork {
		assignments = append(assignments, &Assignment{
			ID:          w.Id,
			CourseID:    courseID,
			Title:       w.Title,
			Description: w.Description,
			WorkType:    w.WorkType,
			Due:         DueTime(w.DueDate, w.DueTime),
			Link:        w.AlternateLink,
		})
	}
	return assignments, nil
}

// ListMaterials returns the course materials of one course
func (s *Service) ListMaterials(ctx context.Context, httpClient *http.Client, courseID string) ([]*Material, error) {
	srv, err := s.client(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	resp, err := srv.Courses.CourseWorkMaterials.List(courseID).PageSize(pageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list materials for %s: %w", courseID, err)
	}

	materials := make([]*Material, 0, len(resp.CourseWorkMaterial))
	for _, m := range resp.CourseWorkMaterial {
		material := &Material{
			ID:          m.Id,
			CourseID:    courseID,
			Title:       m.Title,
			Description: m.Description,
			Link:        m.AlternateLink,
		}
		for _, a := range m.Materials {
			if name := attachmentName(a); name != "" {
				material.Attachments = append(material.Attachments, name)
			}
		}
		materials = append(materials, material)
	}
	return materials, nil
}

// DueTime combines Classroom's split due date and time. Dates are UTC;
// a date without a time is due at 23:59.
func DueTime(date *classroom.Date, tod *classroom.TimeOfDay) *time.Time {
	if date == nil || date.Year == 0 || date.Month == 0 || date.Day == 0 {
		return nil
	}
	hour, minute := 23, 59
	if tod != nil {
		hour, minute = int(tod.Hours), int(tod.Minutes)
	}
	due := time.Date(int(date.Year), time.Month(date.Month), int(date.Day), hour, minute, 0, 0, time.UTC)
	return &due
}

func attachmentName(m *classroom.Material) string {
	switch {
	case m.DriveFile != nil && m.DriveFile.DriveFile != nil:
		return m.DriveFile.DriveFile.Title
	case m.Link != nil:
		if m.Link.Title != "" {
			return m.Link.Title
		}
		return m.Link.Url
	case m.YoutubeVideo != nil:
		return m.YoutubeVideo.Title
	case m.Form != nil:
		return m.Form.Title
	}
	return ""
}
