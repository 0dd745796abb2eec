package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	emaildomain "navigator-backend/internal/email/domain"
)

const (
	digestHorizon  = 7 * 24 * time.Hour
	digestLookback = 24 * time.Hour
	digestCourses  = 5
)

// DigestDeadline is one upcoming due date in a digest
type DigestDeadline struct {
	Title  string    `json:"title"`
	Course string    `json:"course"`
	Due    time.Time `json:"due"`
	Source string    `json:"source"`
	Link   string    `json:"link,omitempty"`
}

// Digest is the daily overview of one user's week: deadlines due in the
// next seven days and alerts from the last day onward.
type Digest struct {
	UserID    string                        `json:"user_id"`
	Date      time.Time                     `json:"date"`
	Deadlines []DigestDeadline              `json:"deadlines"`
	Alerts    []*emaildomain.ScheduleChange `json:"alerts"`
	Text      string                        `json:"text"`
}

func (u *emailUsecase) BuildDigest(ctx context.Context, userID string) (*Digest, error) {
	now := u.now()
	until := now.Add(digestHorizon)

	stored, err := u.repos.Deadlines.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load deadlines", err)
	}
	alerts, err := u.repos.Alerts.FindByUser(userID)
	if err != nil {
		return nil, storeErr("load alerts", err)
	}

	digest := &Digest{
		UserID:    userID,
		Date:      now,
		Deadlines: []DigestDeadline{},
		Alerts:    []*emaildomain.ScheduleChange{},
	}

	seen := make(map[string]bool)
	add := func(d DigestDeadline) {
		if d.Due.Before(now) || d.Due.After(until) {
			return
		}
		key := strings.ToLower(strings.TrimSpace(d.Title)) + "|" + d.Due.Format("2006-01-02")
		if seen[key] {
			return
		}
		seen[key] = true
		digest.Deadlines = append(digest.Deadlines, d)
	}

	for _, d := range stored {
		add(DigestDeadline{Title: d.Title, Course: d.Course, Due: d.DueDate, Source: "email"})
	}
	for _, d := range u.classroomDeadlines(ctx, userID) {
		add(d)
	}
	sort.SliceStable(digest.Deadlines, func(i, j int) bool {
		return digest.Deadlines[i].Due.Before(digest.Deadlines[j].Due)
	})

	for _, a := range alerts {
		if a.Date.Before(now.Add(-digestLookback)) || a.Date.After(until) {
			continue
		}
		digest.Alerts = append(digest.Alerts, a)
	}

	digest.Text = u.digestText(digest)
	log.Printf("[Digest] Built digest for user %s: %d deadlines, %d alerts", userID, len(digest.Deadlines), len(digest.Alerts))
	return digest, nil
}

// classroomDeadlines reads coursework from the first few courses. Classroom
// is optional, so failures only leave the digest without it.
func (u *emailUsecase) classroomDeadlines(ctx context.Context, userID string) []DigestDeadline {
	if u.classroom == nil {
		return nil
	}
	courses, err := u.classroom.ListCourses(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrClassroomUnavailable) {
			log.Printf("[Digest] Classroom courses unavailable for user %s: %v", userID, err)
		}
		return nil
	}
	if len(courses) > digestCourses {
		courses = courses[:digestCourses]
	}

	var deadlines []DigestDeadline
	for _, c := range courses {
		assignments, err := u.classroom.ListAssignments(ctx, userID, c.ID)
		if err != nil {
			log.Printf("[Digest] Coursework of %s unavailable: %v", c.Name, err)
			continue
		}
		for _, a := range assignments {
			if a.Due == nil {
				continue
			}
			deadlines = append(deadlines, DigestDeadline{
				Title:  a.Title,
				Course: c.Name,
				Due:    *a.Due,
				Source: "classroom",
				Link:   a.Link,
			})
		}
	}
	return deadlines
}

func (u *emailUsecase) digestText(d *Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily Digest for %s\n\n", d.Date.In(u.location).Format("Monday, January 2, 2006"))

	if len(d.Deadlines) > 0 {
		b.WriteString("Upcoming Deadlines (Next 7 Days):\n")
		for _, dl := range d.Deadlines {
			line := dl.Title
			if dl.Course != "" && dl.Course != emaildomain.UnknownCourse {
				line += " - " + dl.Course
			}
			fmt.Fprintf(&b, "  - %s (Due: %s)\n", line, dl.Due.In(u.location).Format("Jan 2, 3:04 PM"))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No upcoming deadlines in the next 7 days!\n\n")
	}

	if len(d.Alerts) > 0 {
		b.WriteString("Schedule Alerts:\n")
		for _, a := range d.Alerts {
			fmt.Fprintf(&b, "  - [%s] %s\n", a.Type, a.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("Tip: Use the AI assistant to ask about specific assignments or search for documents!")
	return b.String()
}
