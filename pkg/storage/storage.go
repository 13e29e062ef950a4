package storage

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("file storage is not configured")

// FileStore is the backing store of uploaded files. Keys are the values kept
// in an attachment's path.
type FileStore interface {
	// DeleteObject removes the object stored under key. Deleting a key that
	// does not exist is not an error.
	DeleteObject(ctx context.Context, key string) error
}

type noopStorage struct{}

// NewNoopStorage returns a FileStore that refuses every call. It is used when
// no driver is configured so cleanup failures show up in the logs.
func NewNoopStorage() FileStore {
	return noopStorage{}
}

func (noopStorage) DeleteObject(ctx context.Context, key string) error {
	return ErrNotConfigured
}
