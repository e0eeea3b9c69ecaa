package models

import "time"

// WorkStatus marks an approved work as visible or soft deleted.
type WorkStatus string

const (
	WorkApproved WorkStatus = "approved"
	WorkDeleted  WorkStatus = "deleted"
)

// ApprovedWork is the public copy of an approved submission. It shares the
// submission's id and keeps its row when deleted.
type ApprovedWork struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Files     EncodedFiles `db:"files" json:"files"`
	Timestamp string       `db:"timestamp" json:"timestamp"`
	Status    WorkStatus   `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
	DeletedAt *time.Time   `db:"deleted_at" json:"deletedAt,omitempty"`
}

// IsActive reports whether the work is publicly listed.
func (w ApprovedWork) IsActive() bool {
	return w.Status != WorkDeleted
}
