package dto

import "time"

// TeacherSession is the welcome payload for a signed-in teacher.
type TeacherSession struct {
	Name       string    `json:"name"`
	LoggedInAt time.Time `json:"loggedInAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
