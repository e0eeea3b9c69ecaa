package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a key does not exist in the store.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore keeps archived documents addressed by slash-separated keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
