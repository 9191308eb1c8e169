package credential

import (
	"context"

	apierrors "clubhub-go/internal/errors"
)

// Well-known keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNotFound is returned by Get for a key that holds no value.
var ErrNotFound = apierrors.ErrNotFound

// Store is a process-wide key/value store for the session credential.
// A Set must be visible to the next Get on the same store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
