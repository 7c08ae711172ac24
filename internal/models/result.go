// ABOUTME: Tagged Success/Failure result returned by every collaborator call
// ABOUTME: Failure kinds are kept intact until the outermost response boundary
package models

import "fmt"

// FailureKind classifies why a collaborator call did not succeed
type FailureKind string

const (
	// KindUnavailable covers network errors and 5xx responses
	KindUnavailable FailureKind = "unavailable"
	// KindTimeout means the call exceeded its deadline
	KindTimeout FailureKind = "timeout"
	// KindRateLimited means the upstream refused due to quota
	KindRateLimited FailureKind = "rate_limited"
	// KindRejected covers 4xx, "no data" and empty responses
	KindRejected FailureKind = "rejected"
	// KindResponseShape means the payload did not have the expected structure
	KindResponseShape FailureKind = "response_shape"
)

// Retryable reports whether a bounded retry may help
func (k FailureKind) Retryable() bool {
	return k == KindUnavailable || k == KindTimeout
}

// Result is either Success(value) or Failure(kind, reason)
type Result[T any] struct {
	value  T
	ok     bool
	kind   FailureKind
	reason string
}

// Success wraps a payload
func Success[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Failure builds a failed result
func Failure[T any](kind FailureKind, reason string) Result[T] {
	return Result[T]{kind: kind, reason: reason}
}

// Failuref builds a failed result with a formatted reason
func Failuref[T any](kind FailureKind, format string, args ...any) Result[T] {
	return Failure[T](kind, fmt.Sprintf(format, args...))
}

// Ok reports whether the result is a Success
func (r Result[T]) Ok() bool { return r.ok }

// Value returns the payload and whether the result succeeded
func (r Result[T]) Value() (T, bool) { return r.value, r.ok }

// Kind returns the failure kind, empty on success
func (r Result[T]) Kind() FailureKind { return r.kind }

// Reason returns the failure reason, empty on success
func (r Result[T]) Reason() string { return r.reason }

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Success(%v)", r.value)
	}
	return fmt.Sprintf("Failure(%s: %s)", r.kind, r.reason)
}
