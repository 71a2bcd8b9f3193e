package models

import (
	"time"
)

type AttemptState string

const (
	AttemptStateInProgress         AttemptState = "in_progress"
	AttemptStateCompletedByUser    AttemptState = "completed_by_user"
	AttemptStateCompletedByTimeout AttemptState = "completed_by_timeout"
	AttemptStateAutoSavedOnClosure AttemptState = "auto_saved_on_closure"
)

func (s AttemptState) String() string {
	return string(s)
}

// IsTerminal reports whether the attempt can no longer be submitted.
func (s AttemptState) IsTerminal() bool {
	return s != AttemptStateInProgress
}

// NotifiesOwner reports whether reaching this state announces a new submission.
func (s AttemptState) NotifiesOwner() bool {
	return s == AttemptStateCompletedByUser || s == AttemptStateCompletedByTimeout
}

type SubmissionState string

const (
	SubmissionStatePending   SubmissionState = "pending"
	SubmissionStateSubmitted SubmissionState = "submitted"
	SubmissionStateGraded    SubmissionState = "graded"
)

func (s SubmissionState) String() string {
	return string(s)
}

type Attempt struct {
	ID              string          `json:"id" db:"id"`
	AssignmentID    string          `json:"assignment_id" db:"assignment_id"`
	StudentID       string          `json:"student_id" db:"student_id"`
	GroupID         string          `json:"group_id" db:"group_id"`
	OwnerID         string          `json:"owner_id" db:"owner_id"`
	AttemptNumber   int             `json:"attempt_number" db:"attempt_number"`
	State           AttemptState    `json:"state" db:"state"`
	SubmissionState SubmissionState `json:"submission_state" db:"submission_state"`
	StartedAt       time.Time       `json:"started_at" db:"started_at"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty" db:"submitted_at"`
	IsLate          bool            `json:"is_late" db:"is_late"`
	TimedOut        bool            `json:"timed_out" db:"timed_out"`
	Score           *float64        `json:"score" db:"score"`
	Answers         Answers         `json:"answers" db:"answers"`
	Version         int             `json:"-" db:"version"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// AttemptHandle is what begin hands back to a student resuming or starting a timed attempt.
type AttemptHandle struct {
	Attempt          *Attempt   `json:"attempt"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Resumed          bool       `json:"resumed"`
}
