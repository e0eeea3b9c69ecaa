package models

import "time"

// VisitorPage identifies which portal a visitor opened.
type VisitorPage string

const (
	VisitorPageTeacher VisitorPage = "teacher"
	VisitorPageStudent VisitorPage = "student"
)

// DeviceType is the visitor's coarse device class.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
)

// Visitor is one tracked portal visit.
type Visitor struct {
	ID         string      `db:"id" json:"id"`
	Name       string      `db:"name" json:"name"`
	Page       VisitorPage `db:"page" json:"page"`
	DeviceType DeviceType  `db:"device_type" json:"deviceType"`
	UserAgent  string      `db:"user_agent" json:"userAgent"`
	IPAddress  string      `db:"ip_address" json:"ipAddress"`
	VisitedAt  time.Time   `db:"visited_at" json:"visitedAt"`
}

// VisitorFilter pages through visits newest first.
type VisitorFilter struct {
	Page   VisitorPage
	Limit  int
	Offset int
}
