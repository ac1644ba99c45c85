/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Messaging Business Logic Errors
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageKindInvalid:    {Code: ErrMessageKindInvalid, Message: "Unsupported message kind."},
	ErrCaptionNotAllowed:     {Code: ErrCaptionNotAllowed, Message: "Captions are only allowed on image messages."},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message content is empty."},

	// 3xxx: Session Errors
	ErrNotAuthenticated:   {Code: ErrNotAuthenticated, Message: "Please sign in before sending messages.", Status: http.StatusUnauthorized},
	ErrSessionKicked:      {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrInvalidDisplayName: {Code: ErrInvalidDisplayName, Message: "Invalid display name."},

	// 4xxx: External Provider Errors
	ErrProviderUnavailable: {Code: ErrProviderUnavailable, Message: "External catalogue is currently unavailable.", Status: http.StatusBadGateway},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
