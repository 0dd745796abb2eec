package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrNoUsableText         = errors.New("email has no usable text")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrDimensionMismatch    = errors.New("embedding dimension does not match stored vectors")
	ErrNotFound             = errors.New("not found")
	ErrCalendarUnavailable  = errors.New("calendar not configured")
	ErrUserNotConnected     = errors.New("user has no connected mailbox")
	ErrSyncInProgress       = errors.New("sync already in progress")
	ErrClassroomUnavailable = errors.New("google classroom not connected")
)

// StoreError marks a persistence failure. These are systemic and stop a sync run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err (or anything it wraps) is a *StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
