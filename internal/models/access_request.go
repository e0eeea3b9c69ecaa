package models

import "time"

// AccessRequestStatus tracks a student's request for portal access.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
	AccessRequestRejected AccessRequestStatus = "rejected"
)

// AccessRequest is a student's ask to be let into the portal. A developer
// approves or rejects it once.
type AccessRequest struct {
	ID          string              `db:"id" json:"id"`
	StudentName string              `db:"student_name" json:"studentName"`
	Email       string              `db:"email" json:"email"`
	Status      AccessRequestStatus `db:"status" json:"status"`
	Notes       string              `db:"notes" json:"notes,omitempty"`
	RequestedAt time.Time           `db:"requested_at" json:"requestedAt"`
	DecidedAt   *time.Time          `db:"decided_at" json:"decidedAt,omitempty"`
}

// IsPending reports whether the request still awaits a decision.
func (r AccessRequest) IsPending() bool {
	return r.Status == AccessRequestPending
}

// AccessRequestFilter pages through requests oldest first.
type AccessRequestFilter struct {
	Status AccessRequestStatus
	Limit  int
	Offset int
}
