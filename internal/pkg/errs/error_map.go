/*
Package errs provides custom error types and application-level error code constants.

This file maps each error code to its CustomError template.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many connection attempts. Please try again later.", Status: http.StatusTooManyRequests},
	ErrOriginNotAllowed:  {Code: ErrOriginNotAllowed, Message: "Origin not allowed.", Status: http.StatusForbidden},

	// 2xxx: Board and Session Errors
	ErrUsernameRequired: {Code: ErrUsernameRequired, Message: "Please enter a name!"},
	ErrNotConnected:     {Code: ErrNotConnected, Message: "Not connected to the board."},
	ErrSendQueueFull:    {Code: ErrSendQueueFull, Message: "Outbound queue is full (%d messages)."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
