/*
Package errs provides the application error type and its numeric error codes.

Codes are shared by the HTTP API and the WebSocket protocol, so clients can react
to a failure the same way regardless of where it surfaced.
*/
package errs

// 1xxx: General request handling errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat protocol and message content errors
const (
	// ErrUnsupportedEvent indicates an inbound WebSocket event type the server does not handle.
	ErrUnsupportedEvent = 2001

	// ErrMalformedEvent indicates an inbound WebSocket frame that is not a valid envelope.
	ErrMalformedEvent = 2002

	// ErrMessageEmpty indicates a text message with no visible content.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length.
	ErrMessageContentTooLong = 2202

	// ErrMessageKindInvalid indicates an unknown message kind.
	ErrMessageKindInvalid = 2203

	// ErrAttachmentInvalid indicates a file message without a usable file reference or media type.
	ErrAttachmentInvalid = 2204

	// ErrRecipientInvalid indicates a private message addressed to the sender itself.
	ErrRecipientInvalid = 2205

	// ErrFileSizeTooLarge indicates an upload request above the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrFileTypeInvalid indicates an upload request with an inconsistent name and MIME type.
	ErrFileTypeInvalid = 2302

	// ErrFileNotFound indicates a download request for an object that does not exist.
	ErrFileNotFound = 2303
)

// 3xxx: User, session and security errors
const (
	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = 3001

	// ErrSessionNotActive indicates a request on a connection that is not in the Active state.
	ErrSessionNotActive = 3002

	// ErrSessionKicked indicates that the connection was closed by a forced logout.
	ErrSessionKicked = 3004

	// ErrInvalidUsername indicates a username outside the allowed pattern.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates a password outside the allowed length.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates a registration with a taken username.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates a reference to an account that does not exist.
	ErrUserNotFound = 3105
)

// 4xxx: Friend relationship errors
const (
	// ErrFriendInvalid indicates an empty friend id or an attempt to befriend yourself.
	ErrFriendInvalid = 4001

	// ErrAlreadyFriends indicates that the relationship already exists.
	ErrAlreadyFriends = 4002

	// ErrFriendNotFound indicates that the relationship does not exist.
	ErrFriendNotFound = 4003

	// ErrGroupInvalid indicates an empty group label.
	ErrGroupInvalid = 4004
)

// 5xxx: Internal system errors
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates the persistence layer failed or timed out.
	ErrStoreUnavailable = 5001

	// ErrFileStorageFailed indicates the object storage could not serve the request.
	ErrFileStorageFailed = 5002

	// ErrFileStorageDisabled indicates that file sharing is not configured on this server.
	ErrFileStorageDisabled = 5003
)
