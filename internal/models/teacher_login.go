package models

import "time"

// TeacherLogin records a teacher entering the portal during this process's
// lifetime.
type TeacherLogin struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}
