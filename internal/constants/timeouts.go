package constants

import "time"

const (
	// DefaultRequestTimeout bounds a single API call.
	DefaultRequestTimeout = 30 * time.Second
	// StoreConnectTimeout bounds connecting to a remote credential store.
	StoreConnectTimeout = 10 * time.Second
	// ServerShutdownTimeout bounds graceful shutdown of the mock backend.
	ServerShutdownTimeout = 10 * time.Second
	// ServerReadHeaderTimeout guards the mock backend against slow clients.
	ServerReadHeaderTimeout = 5 * time.Second
)
