package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Bridge is a Publisher that also relays remote events into a local hub until
// its context is cancelled.
type Bridge interface {
	Publisher
	Run(ctx context.Context) error
}

// envelope is the wire form shared by the bridges. Origin lets an instance
// skip its own echoes; trigger-originated notifications leave it empty.
type envelope struct {
	Origin string `json:"origin,omitempty"`
	Event
}

func newOrigin() string {
	return uuid.NewString()
}

func encodeEnvelope(origin string, ev Event) (string, error) {
	raw, err := json.Marshal(envelope{Origin: origin, Event: ev})
	if err != nil {
		return "", fmt.Errorf("encode realtime event: %w", err)
	}
	return string(raw), nil
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return envelope{}, fmt.Errorf("decode realtime event: %w", err)
	}
	if env.Table == "" {
		return envelope{}, fmt.Errorf("decode realtime event: missing table")
	}
	if env.Action == "" {
		env.Action = ActionRefresh
	}
	return env, nil
}
