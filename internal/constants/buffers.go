package constants

const (
	// MaxResponseBytes caps how much of a response body is read (8MB).
	MaxResponseBytes = 8 * 1024 * 1024
	// MaxErrorMessageLength truncates raw bodies used as error messages.
	MaxErrorMessageLength = 200
)
