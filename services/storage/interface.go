package storage

import (
	"context"
	"errors"
)

// StorageService defines the interface for durable document storage.
type StorageService interface {
	// UploadDocument stores the bytes under the given public ID and returns
	// the permanent URL. If an object already exists under that ID the
	// existing object's URL is returned; a partial earlier attempt is treated
	// as success, never as a conflict error.
	UploadDocument(ctx context.Context, data []byte, publicID string) (string, error)
	DeleteDocument(ctx context.Context, publicID string) error
}

// TransientError marks a storage failure worth retrying (network flake,
// timeout, provider 5xx). Permanent failures are returned bare.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient storage error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether the error chain contains a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
