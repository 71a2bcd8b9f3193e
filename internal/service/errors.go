package service

import "errors"

type ErrorClass int

const (
	ClassNotFound ErrorClass = iota + 1
	// ClassPolicy errors are the caller's to fix and are never retried.
	ClassPolicy
	// ClassReferential errors mean the upstream catalog handed us incomplete data.
	ClassReferential
)

type Error struct {
	Code    string
	Class   ErrorClass
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(class ErrorClass, code, message string) *Error {
	return &Error{Code: code, Class: class, Message: message}
}

var (
	ErrAssignmentNotFound = newError(ClassNotFound, "assignment_not_found", "assignment not found")
	ErrAttemptNotFound    = newError(ClassNotFound, "attempt_not_found", "attempt not found")

	ErrAssignmentNotOpen       = newError(ClassPolicy, "assignment_not_open", "assignment is not open")
	ErrActivityFlowMismatch    = newError(ClassPolicy, "activity_flow_mismatch", "operation does not match the activity flow")
	ErrNotApprovedMember       = newError(ClassPolicy, "not_approved_member", "student is not an approved member of the group")
	ErrAttemptsExhausted       = newError(ClassPolicy, "attempts_exhausted", "no attempts left for this assignment")
	ErrMissingRequiredPayload  = newError(ClassPolicy, "missing_required_payload", "submission payload is incomplete")
	ErrAlreadyFinalized        = newError(ClassPolicy, "already_finalized", "attempt is already finalized")
	ErrAttemptNotOwnedByCaller = newError(ClassPolicy, "attempt_not_owned_by_caller", "attempt does not belong to the caller")
	ErrNotAssignmentOwner      = newError(ClassPolicy, "not_assignment_owner", "only the assignment owner can grade it")
	ErrAttemptInProgress       = newError(ClassPolicy, "attempt_in_progress", "attempt has not been submitted yet")
	ErrInvalidScore            = newError(ClassPolicy, "invalid_score", "score is out of range")
	ErrConcurrentModification  = newError(ClassPolicy, "concurrent_modification", "attempt was modified concurrently")

	ErrActivityNotResolvable  = newError(ClassReferential, "activity_not_resolvable", "activity of the assignment cannot be resolved")
	ErrOwnerResolutionFailure = newError(ClassReferential, "owner_resolution_failure", "grading owner of the assignment cannot be resolved")
)

// AsError returns the service error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
