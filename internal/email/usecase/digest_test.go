package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
	"navigator-backend/pkg/classroom"

	"github.com/google/go-cmp/cmp"
)

type fakeClassroom struct {
	courses     []*classroom.Course
	assignments map[string][]*classroom.Assignment
	err         error
	listed      []string
}

func (c *fakeClassroom) ListCourses(ctx context.Context, userID string) ([]*classroom.Course, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.courses, nil
}

func (c *fakeClassroom) ListAssignments(ctx context.Context, userID, courseID string) ([]*classroom.Assignment, error) {
	c.listed = append(c.listed, courseID)
	return c.assignments[courseID], nil
}

func (c *fakeClassroom) ListMaterials(ctx context.Context, userID, courseID string) ([]*classroom.Material, error) {
	return []*classroom.Material{{ID: "m", CourseID: courseID, Title: "Slides"}}, nil
}

func at(t time.Time) *time.Time { return &t }

func TestBuildDigest(t *testing.T) {
	env := newTestEnv(t)
	ingestCS101(t, env)

	old := &emaildomain.Deadline{ID: "old", EmailID: "e0", Title: "Quiz 1", DueDate: testNow.Add(-48 * time.Hour)}
	far := &emaildomain.Deadline{ID: "far", EmailID: "e0", Title: "Final", DueDate: testNow.Add(30 * 24 * time.Hour)}
	if err := env.repos.Deadlines.ReplaceForEmail("u1", "e0", []*emaildomain.Deadline{old, far}); err != nil {
		t.Fatalf("ReplaceForEmail() error = %v", err)
	}
	alerts := []*emaildomain.ScheduleChange{
		{ID: "a1", EmailID: "e1", Type: emaildomain.AlertCancelled, Message: "CS101 lecture cancelled", Date: testNow.Add(time.Hour)},
		{ID: "a2", EmailID: "e1", Type: emaildomain.AlertUrgent, Message: "Old notice", Date: testNow.Add(-72 * time.Hour)},
	}
	if err := env.repos.Alerts.ReplaceForEmail("u1", "e1", alerts); err != nil {
		t.Fatalf("ReplaceForEmail() error = %v", err)
	}

	courses := []*classroom.Course{{ID: "c1", Name: "MATH200"}}
	for i := 2; i <= 7; i++ {
		courses = append(courses, &classroom.Course{ID: fmt.Sprintf("c%d", i), Name: "Other"})
	}
	env.uc.SetClassroomService(&fakeClassroom{
		courses: courses,
		assignments: map[string][]*classroom.Assignment{
			"c1": {
				{ID: "w1", Title: "Problem Set 4", Due: at(testNow.Add(24 * time.Hour)), Link: "https://classroom.google.com/w1"},
				{ID: "w2", Title: "Reading"},
				// Same work as the emailed deadline
				{ID: "w3", Title: "hw3", Due: at(time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC))},
			},
		},
	})

	digest, err := env.uc.BuildDigest(context.Background(), "u1")
	if err != nil {
		t.Fatalf("BuildDigest() error = %v", err)
	}

	want := []DigestDeadline{
		{Title: "Problem Set 4", Course: "MATH200", Due: testNow.Add(24 * time.Hour), Source: "classroom", Link: "https://classroom.google.com/w1"},
		{Title: "HW3", Course: "CS101", Due: time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC), Source: "email"},
	}
	if diff := cmp.Diff(want, digest.Deadlines); diff != "" {
		t.Errorf("deadlines mismatch (-want +got):\n%s", diff)
	}
	if len(digest.Alerts) != 1 || digest.Alerts[0].ID != "a1" {
		t.Errorf("alerts = %+v, want only a1", digest.Alerts)
	}
	if n := len(env.uc.classroom.(*fakeClassroom).listed); n != digestCourses {
		t.Errorf("coursework read from %d courses, want %d", n, digestCourses)
	}

	for _, part := range []string{
		"Daily Digest for Tuesday, March 10, 2026",
		"Problem Set 4 - MATH200 (Due: Mar 11, 12:00 PM)",
		"HW3 - CS101 (Due: Mar 13, 11:59 PM)",
		"[cancelled] CS101 lecture cancelled",
	} {
		if !strings.Contains(digest.Text, part) {
			t.Errorf("digest text missing %q:\n%s", part, digest.Text)
		}
	}
}

func TestBuildDigestWithoutClassroom(t *testing.T) {
	env := newTestEnv(t)
	env.uc.SetClassroomService(&fakeClassroom{err: errors.New("403 insufficient scopes")})

	digest, err := env.uc.BuildDigest(context.Background(), "u1")
	if err != nil {
		t.Fatalf("BuildDigest() error = %v", err)
	}
	if len(digest.Deadlines) != 0 || len(digest.Alerts) != 0 {
		t.Errorf("digest = %+v, want empty", digest)
	}
	if !strings.Contains(digest.Text, "No upcoming deadlines in the next 7 days!") {
		t.Errorf("text = %q", digest.Text)
	}
}

func TestClassroomPassthrough(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.uc.ListCourses(ctx, "u1"); !errors.Is(err, ErrClassroomUnavailable) {
		t.Errorf("ListCourses() without classroom = %v", err)
	}
	if _, err := env.uc.ListMaterials(ctx, "u1", "c1"); !errors.Is(err, ErrClassroomUnavailable) {
		t.Errorf("ListMaterials() without classroom = %v", err)
	}

	env.uc.SetClassroomService(&fakeClassroom{courses: []*classroom.Course{{ID: "c1", Name: "CS101"}}})
	courses, err := env.uc.ListCourses(ctx, "u1")
	if err != nil || len(courses) != 1 {
		t.Fatalf("ListCourses() = %v, %v", courses, err)
	}
	materials, err := env.uc.ListMaterials(ctx, "u1", "c1")
	if err != nil || len(materials) != 1 || materials[0].CourseID != "c1" {
		t.Errorf("ListMaterials() = %v, %v", materials, err)
	}
}
