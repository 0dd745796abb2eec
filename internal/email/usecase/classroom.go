package usecase

import (
	"context"

	"navigator-backend/pkg/classroom"
)

func (u *emailUsecase) ListCourses(ctx context.Context, userID string) ([]*classroom.Course, error) {
	if u.classroom == nil {
		return nil, ErrClassroomUnavailable
	}
	return u.classroom.ListCourses(ctx, userID)
}

func (u *emailUsecase) ListAssignments(ctx context.Context, userID, courseID string) ([]*classroom.Assignment, error) {
	if u.classroom == nil {
		return nil, ErrClassroomUnavailable
	}
	return u.classroom.ListAssignments(ctx, userID, courseID)
}

func (u *emailUsecase) ListMaterials(ctx context.Context, userID, courseID string) ([]*classroom.Material, error) {
	if u.classroom == nil {
		return nil, ErrClassroomUnavailable
	}
	return u.classroom.ListMaterials(ctx, userID, courseID)
}
