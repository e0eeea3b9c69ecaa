package dto

// CreateAccessRequest asks for portal access on behalf of a student.
type CreateAccessRequest struct {
	StudentName string `json:"studentName" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email,max=320"`
}

// DecideAccessRequest carries an optional note with a decision.
type DecideAccessRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}
