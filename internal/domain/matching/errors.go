package matching

import "fmt"

// Incompatibility reason codes, reported on rejected allocations and in
// filter breakdowns.
const (
	ReasonBloodIncompatible = "blood_incompatible"
	ReasonOverAgeLimit      = "over_age_limit"
	ReasonTooFar            = "too_far"
	ReasonBelowMinScore     = "below_min_score"
)

// ValidationError marks malformed or self-contradictory input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IncompatibilityError marks a donor/recipient pair that fails a hard
// medical or logistical rule. Reason is one of the Reason* codes.
type IncompatibilityError struct {
	Reason string
	Msg    string
}

func (e *IncompatibilityError) Error() string { return e.Msg }

func incompatiblef(reason, format string, args ...any) error {
	return &IncompatibilityError{Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// ConflictError marks an allocation lost to a concurrent writer.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// InvalidStateError marks a lifecycle operation attempted from a state
// that does not permit it.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

// DependencyTimeout marks a collaborator (registry, database, cache) that
// did not answer within its deadline.
type DependencyTimeout struct {
	Dependency string
	Err        error
}

func (e *DependencyTimeout) Error() string {
	return fmt.Sprintf("%s did not answer in time: %v", e.Dependency, e.Err)
}

func (e *DependencyTimeout) Unwrap() error { return e.Err }
