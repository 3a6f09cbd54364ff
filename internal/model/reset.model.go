package model

import (
	"strings"
	"time"
)

type ResetStatus string

const (
	ResetPending  ResetStatus = "pending"
	ResetRestored ResetStatus = "restored"
	ResetDeleted  ResetStatus = "deleted"
)

type ResetAction string

const (
	ActionRestore ResetAction = "restore"
	ActionDelete  ResetAction = "delete"
)

type ResetRequest struct {
	ID           int64       `json:"id"`
	RequestedBy  string      `json:"requested_by"`
	Reason       string      `json:"reason"`
	Status       ResetStatus `json:"status"`
	AutoDeleteAt time.Time   `json:"auto_delete_at"`
	ResolvedAt   *time.Time  `json:"resolved_at"`
	AffectedRows int64       `json:"affected_rows"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ResetPhrase is a server-issued confirmation phrase the caller must echo.
type ResetPhrase struct {
	Phrase    string    `json:"phrase"`
	ExpiresAt time.Time `json:"expires_at"`
}

type FactoryResetRequest struct {
	ConfirmationPhrase string `json:"confirmation_phrase"`
	ExpectedPhrase     string `json:"expected_phrase"`
	Reason             string `json:"reason"`
	RequestedBy        string `json:"requested_by"`
}

func (r *FactoryResetRequest) Validate() error {
	var errs ValidationErrors
	if r.ExpectedPhrase == "" {
		errs.Add("expected_phrase", "is required")
	}
	if r.ConfirmationPhrase == "" {
		errs.Add("confirmation_phrase", "is required")
	} else if r.ConfirmationPhrase != r.ExpectedPhrase {
		errs.Add("confirmation_phrase", "does not match the expected phrase")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		errs.Add("reason", "is required")
	}
	if strings.TrimSpace(r.RequestedBy) == "" {
		r.RequestedBy = "system"
	}
	return errs.Err()
}

type ResetTicket struct {
	ResetRequestID int64     `json:"reset_request_id"`
	AutoDeleteAt   time.Time `json:"auto_delete_at"`
	AffectedRows   int64     `json:"affected_rows"`
}

type ResetActionRequest struct {
	Action ResetAction `json:"action"`
}

type NotificationKind string

const (
	NotifyResetRequested NotificationKind = "reset.requested"
	NotifyResetRestored  NotificationKind = "reset.restored"
	NotifyResetPurged    NotificationKind = "reset.purged"
)

// AdminNotification is published for administrators when a reset changes
// state.
type AdminNotification struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	ResetRequestID int64            `json:"reset_request_id"`
	Message        string           `json:"message"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
