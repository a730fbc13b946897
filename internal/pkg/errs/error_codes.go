/*
Package errs provides custom error types and application-level error code constants.

These codes identify the business and system errors reported by the relay's HTTP
surface and by the session client when it refuses an operation locally.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrRateLimitExceeded indicates that the connect rate for the client address was exceeded.
	ErrRateLimitExceeded = 1007

	// ErrOriginNotAllowed indicates that the websocket Origin header is not on the allow list.
	ErrOriginNotAllowed = 1008
)

// 2xxx: Board and Session Errors
const (
	// ErrUsernameRequired indicates an empty or whitespace-only display name at board entry.
	ErrUsernameRequired = 2001

	// ErrNotConnected indicates a send attempted after the relay connection was lost.
	ErrNotConnected = 2002

	// ErrSendQueueFull indicates the outbound queue to the relay is saturated.
	ErrSendQueueFull = 2003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
