package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the portal capability carried by an access token.
type Role string

const (
	RoleDeveloper Role = "DEVELOPER"
	RoleTeacher   Role = "TEACHER"
)

// DeveloperLoginRequest unlocks the moderation dashboard.
type DeveloperLoginRequest struct {
	Passphrase string `json:"passphrase" validate:"required"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// TeacherLoginRequest unlocks the teacher portal.
type TeacherLoginRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Passphrase string `json:"passphrase" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	Role        Role      `json:"role"`
	Name        string    `json:"name,omitempty"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Actor names the caller for moderation logs.
func (c *JWTClaims) Actor() string {
	if c == nil {
		return "anonymous"
	}
	if c.Name != "" {
		return c.Name
	}
	return string(c.Role)
}
