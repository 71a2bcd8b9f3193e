package models

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentStatusDraft  AssignmentStatus = "draft"
	AssignmentStatusOpen   AssignmentStatus = "open"
	AssignmentStatusClosed AssignmentStatus = "closed"
)

func (s AssignmentStatus) String() string {
	return string(s)
}

// Assignment is the flat projection of an activity placed on a group.
// Group and owner are resolved upstream, so nothing here walks the content hierarchy.
type Assignment struct {
	ID               string           `json:"id" db:"id"`
	ActivityID       string           `json:"activity_id" db:"activity_id"`
	ActivityKind     ActivityKind     `json:"activity_kind" db:"activity_kind"`
	GroupID          string           `json:"group_id" db:"group_id"`
	OwnerID          string           `json:"owner_id" db:"owner_id"`
	Title            string           `json:"title" db:"title"`
	Status           AssignmentStatus `json:"status" db:"status"`
	WindowStart      *time.Time       `json:"window_start,omitempty" db:"window_start"`
	WindowEnd        *time.Time       `json:"window_end,omitempty" db:"window_end"`
	AttemptsAllowed  *int             `json:"attempts_allowed,omitempty" db:"attempts_allowed"`
	TimeLimitMinutes *int             `json:"time_limit_minutes,omitempty" db:"time_limit_minutes"`
	MaxPoints        *float64         `json:"max_points,omitempty" db:"max_points"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// RequiresTimedFlow reports whether students must call begin before submitting.
func (a *Assignment) RequiresTimedFlow() bool {
	return a.TimeLimitMinutes != nil && a.ActivityKind.SupportsTimeLimit()
}

func (a *Assignment) TimeLimit() time.Duration {
	if a.TimeLimitMinutes == nil {
		return 0
	}
	return time.Duration(*a.TimeLimitMinutes) * time.Minute
}

func (a *Assignment) IsPastDeadline(now time.Time) bool {
	return a.WindowEnd != nil && now.After(*a.WindowEnd)
}

func (a *Assignment) AttemptsExhausted(completed int) bool {
	return a.AttemptsAllowed != nil && completed >= *a.AttemptsAllowed
}
