package models

import "time"

// Moderation log actions.
const (
	ModerationActionApprove        = "approve_submission"
	ModerationActionReject         = "reject_submission"
	ModerationActionDelete         = "delete_work"
	ModerationActionPurge          = "purge_work"
	ModerationActionDeveloperLogin = "developer_login"
	ModerationActionApproveRequest = "approve_request"
	ModerationActionRejectRequest  = "reject_request"
)

// ModerationLog is a durable record of a developer action.
type ModerationLog struct {
	ID         string    `db:"id" json:"id"`
	Action     string    `db:"action" json:"action"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	Details    string    `db:"details" json:"details"`
	Actor      string    `db:"actor" json:"actor"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ModerationLogFilter pages through the log newest first.
type ModerationLogFilter struct {
	Action string
	Limit  int
	Offset int
}
