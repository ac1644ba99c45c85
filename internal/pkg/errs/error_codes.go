/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that a request body or WebSocket frame contained malformed JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Messaging Business Logic Errors
const (
	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2001

	// ErrMessageKindInvalid indicates that an unsupported message kind was supplied.
	ErrMessageKindInvalid = 2002

	// ErrCaptionNotAllowed indicates that a caption was supplied on a non-image message.
	ErrCaptionNotAllowed = 2003

	// ErrMessageContentEmpty indicates that a message carried no content.
	ErrMessageContentEmpty = 2004
)

// 3xxx: Session Errors
const (
	// ErrNotAuthenticated indicates an action from a connection with no bound identity.
	ErrNotAuthenticated = 3001

	// ErrSessionKicked indicates that the connection was superseded by a newer
	// login for the same identity.
	ErrSessionKicked = 3002

	// ErrInvalidDisplayName indicates that the asserted display name failed validation.
	ErrInvalidDisplayName = 3003
)

// 4xxx: External Provider Errors
const (
	// ErrProviderUnavailable indicates that a directory or media provider fetch failed.
	ErrProviderUnavailable = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
