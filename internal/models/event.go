package models

import "time"

type NotificationKind string

const (
	NotificationKindNewSubmission    NotificationKind = "new_submission"
	NotificationKindAssignmentClosed NotificationKind = "assignment_closed"
)

type Notification struct {
	Kind        NotificationKind `json:"kind"`
	RecipientID string           `json:"recipient_id"`
	SenderID    *string          `json:"sender_id,omitempty"`
	Message     string           `json:"message"`
	Link        string           `json:"link"`
	CreatedAt   time.Time        `json:"created_at"`
}
