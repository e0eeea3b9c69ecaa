// Package realtime fans out coarse change notifications for the portfolio
// tables to in-process subscribers and, through a bridge, to other instances.
package realtime

import (
	"context"
	"time"
)

// Watched tables.
const (
	TableSubmissions   = "student_submissions"
	TableApprovedWorks = "approved_works"
)

// Event actions. ActionRefresh asks subscribers to reconcile without naming a
// specific change.
const (
	ActionInsert  = "insert"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRefresh = "refresh"
)

// AllTables lists every table that emits events.
var AllTables = []string{TableSubmissions, TableApprovedWorks}

// Event signals that a table changed. It carries no row data; receivers
// re-fetch what they need.
type Event struct {
	Table    string    `json:"table"`
	Action   string    `json:"action"`
	RecordID string    `json:"recordId,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(table, action, recordID string) Event {
	return Event{Table: table, Action: action, RecordID: recordID, At: time.Now().UTC()}
}

// Publisher announces a change.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber hands out subscriptions to table changes.
type Subscriber interface {
	Subscribe(tables ...string) *Subscription
}
