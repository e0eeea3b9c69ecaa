package dto

import (
	"time"

	"github.com/noah-isme/student-portfolio-api/internal/models"
)

// DashboardView is the developer dashboard as served from the live cache.
type DashboardView struct {
	Pending       []SubmissionView      `json:"pendingSubmissions"`
	ApprovedWorks []WorkView            `json:"approvedWorks"`
	TeacherLogins []models.TeacherLogin `json:"teacherLogins"`
	Error         string                `json:"error,omitempty"`
	Loading       bool                  `json:"loading"`
	RefreshedAt   time.Time             `json:"refreshedAt"`
}

// DashboardActionResult pairs a dashboard mutation outcome with the
// refreshed view.
type DashboardActionResult struct {
	Approval  *ApprovalResult `json:"approval,omitempty"`
	Dashboard DashboardView   `json:"dashboard"`
}
