// Package common defines the failure taxonomy shared by the store, scoring and
// service layers. Every failure that leaves a service is a *Error carrying a
// Kind (used for status classification) and a stable Reason string. Callers
// should match with errors.Is against the sentinels below, or use KindOf.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that only need a coarse decision
// (retry, report not-found, report server fault).
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindUpstreamUnavailable
	KindPersistenceFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindPersistenceFailed:
		return "persistence_failed"
	default:
		return "internal"
	}
}

// Error is the typed failure result returned by the service layer.
type Error struct {
	Kind   Kind
	Reason string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Reason, so that a
// detailed copy produced by With still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// With returns a copy of e carrying detail and an optional cause.
func (e *Error) With(detail string, cause error) *Error {
	return &Error{Kind: e.Kind, Reason: e.Reason, Detail: detail, Err: cause}
}

// Withf is With with a formatted detail and no cause.
func (e *Error) Withf(format string, args ...any) *Error {
	return e.With(fmt.Sprintf(format, args...), nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the Reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "internal_error"
}

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	ErrDuplicateEmail = &Error{Kind: KindConflict, Reason: "duplicate_email"}
	ErrUnknownUser    = &Error{Kind: KindNotFound, Reason: "unknown_user"}
	ErrUnknownMetric  = &Error{Kind: KindNotFound, Reason: "unknown_metric"}

	// Service-level errors.
	ErrUserNotFound       = &Error{Kind: KindNotFound, Reason: "user_not_found"}
	ErrMetricNotFound     = &Error{Kind: KindNotFound, Reason: "metric_not_found"}
	ErrNoMetrics          = &Error{Kind: KindNotFound, Reason: "no_metrics"}
	ErrNoMatchingMetric   = &Error{Kind: KindNotFound, Reason: "no_matching_metric"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Reason: "invalid_input"}
	ErrPersistenceFailed  = &Error{Kind: KindPersistenceFailed, Reason: "persistence_failed"}
	ErrScorePersistFailed = &Error{Kind: KindPersistenceFailed, Reason: "score_persist_failed"}

	// Scoring errors.
	ErrModelUnavailable = &Error{Kind: KindUpstreamUnavailable, Reason: "model_unavailable"}
	ErrInvalidFeatures  = &Error{Kind: KindInvalidInput, Reason: "invalid_features"}
	ErrScoringFailed    = &Error{Kind: KindUpstreamUnavailable, Reason: "scoring_failed"}

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("token subject does not match resource")
)

// ScorePersistError is the cause attached to ErrScorePersistFailed. It keeps
// the computed score so the caller can retry the write without rescoring.
type ScorePersistError struct {
	MetricID int64
	Score    float64
	Err      error
}

func (e *ScorePersistError) Error() string {
	return fmt.Sprintf("metric %d scored %.4f but not persisted: %v", e.MetricID, e.Score, e.Err)
}

func (e *ScorePersistError) Unwrap() error { return e.Err }
