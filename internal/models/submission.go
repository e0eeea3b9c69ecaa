package models

import "time"

// SubmissionStatus tracks a submission through moderation.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a student's upload awaiting or past moderation. Status leaves
// pending exactly once.
type Submission struct {
	ID        string           `db:"id" json:"id"`
	Name      string           `db:"name" json:"name"`
	Files     EncodedFiles     `db:"files" json:"files"`
	Timestamp string           `db:"timestamp" json:"timestamp"`
	Status    SubmissionStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// IsPending reports whether the submission can still be moderated.
func (s Submission) IsPending() bool {
	return s.Status == SubmissionPending
}
