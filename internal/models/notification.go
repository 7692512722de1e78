package models

import (
	"time"
)

// Notification templates.
const (
	TemplateCredentials       = "credentials"
	TemplateMeetingInvite     = "meeting_invite"
	TemplateMeetingReminder   = "meeting_reminder"
	TemplateDelegationCreated = "delegation_created"
	TemplateDelegationRevoked = "delegation_revoked"
)

// Notification delivery statuses.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// NotificationLog is one append-only record of a credential email or
// delegation change. Delivery is best-effort; a failure downgrades the row to
// failed and never rolls back the initiating transaction.
type NotificationLog struct {
	ID             int64      `json:"id"`
	UserID         *int64     `json:"user_id,omitempty"`
	MeetingID      *int64     `json:"meeting_id,omitempty"`
	Template       string     `json:"template"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
