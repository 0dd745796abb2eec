package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind tells callers how a provider call failed.
type ErrorKind string

const (
	KindQuota       ErrorKind = "quota"
	KindUnavailable ErrorKind = "unavailable"
	KindMalformed   ErrorKind = "malformed"
	KindRejected    ErrorKind = "rejected"
)

// ProviderError is the classified failure of an LLM or embedding call.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (%d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// statusCoder is implemented by the REST client errors in pkg/gemini,
// pkg/embedding and OllamaError.
type statusCoder interface {
	HTTPStatus() int
}

// Classify wraps err in a *ProviderError. Errors that are already classified
// are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Provider: provider, Kind: kindOf(err), StatusCode: statusOf(err), Err: err}
}

// KindOf reports the kind of a provider failure, classifying it if needed.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return kindOf(err)
}

func IsQuota(err error) bool       { return err != nil && KindOf(err) == KindQuota }
func IsUnavailable(err error) bool { return err != nil && KindOf(err) == KindUnavailable }

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

func kindOf(err error) ErrorKind {
	if status := statusOf(err); status != 0 {
		switch {
		case status == http.StatusTooManyRequests:
			return KindQuota
		case status == http.StatusRequestTimeout || status >= 500:
			return KindUnavailable
		default:
			return KindRejected
		}
	}

	if errors.Is(err, ErrNoJSON) {
		return KindMalformed
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindMalformed
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindUnavailable
	}

	if isQuotaError(err) {
		return KindQuota
	}
	if isConnectionError(err) {
		return KindUnavailable
	}
	return KindMalformed
}

// isConnectionError checks the message for common network failures
func isConnectionError(err error) bool {
	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
