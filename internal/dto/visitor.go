package dto

// TrackVisitorRequest records a portal visit.
type TrackVisitorRequest struct {
	Name       string `json:"name" validate:"max=120"`
	Page       string `json:"page" validate:"required,oneof=teacher student"`
	DeviceType string `json:"deviceType" validate:"required,oneof=desktop mobile"`
	UserAgent  string `json:"-"`
	IPAddress  string `json:"-"`
}
