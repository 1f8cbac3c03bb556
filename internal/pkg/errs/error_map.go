package errs

import "net/http"

// errorMap holds the client-facing message and HTTP status for every error code.
var errorMap = map[int]CustomError{
	// 1xxx
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx
	ErrUnsupportedEvent:      {Code: ErrUnsupportedEvent, Message: "Unsupported event type."},
	ErrMalformedEvent:        {Code: ErrMalformedEvent, Message: "Malformed event."},
	ErrMessageEmpty:          {Code: ErrMessageEmpty, Message: "Message is empty."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long (max %d characters)."},
	ErrMessageKindInvalid:    {Code: ErrMessageKindInvalid, Message: "Unsupported message kind."},
	ErrAttachmentInvalid:     {Code: ErrAttachmentInvalid, Message: "File message requires a file reference and media type."},
	ErrRecipientInvalid:      {Code: ErrRecipientInvalid, Message: "You cannot send a private message to yourself."},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Message: "File is too large (max %d MB).", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Message: "File type does not match its name.", Status: http.StatusBadRequest},
	ErrFileNotFound:          {Code: ErrFileNotFound, Message: "File not found.", Status: http.StatusNotFound},

	// 3xxx
	ErrUnauthorized:       {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrSessionNotActive:   {Code: ErrSessionNotActive, Message: "Connection is not ready."},
	ErrSessionKicked:      {Code: ErrSessionKicked, Message: "You were signed out."},
	ErrInvalidUsername:    {Code: ErrInvalidUsername, Message: "Invalid username.", Status: http.StatusBadRequest},
	ErrInvalidPassword:    {Code: ErrInvalidPassword, Message: "Invalid password.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:  {Code: ErrUserAlreadyExists, Message: "Username is already taken.", Status: http.StatusConflict},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},

	// 4xxx
	ErrFriendInvalid:  {Code: ErrFriendInvalid, Message: "Invalid friend.", Status: http.StatusBadRequest},
	ErrAlreadyFriends: {Code: ErrAlreadyFriends, Message: "You are already friends.", Status: http.StatusConflict},
	ErrFriendNotFound: {Code: ErrFriendNotFound, Message: "Friend not found.", Status: http.StatusNotFound},
	ErrGroupInvalid:   {Code: ErrGroupInvalid, Message: "Group name is required.", Status: http.StatusBadRequest},

	// 5xxx
	ErrUnknown:             {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable:    {Code: ErrStoreUnavailable, Message: "Service temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable},
	ErrFileStorageFailed:   {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrFileStorageDisabled: {Code: ErrFileStorageDisabled, Message: "File sharing is not available.", Status: http.StatusNotImplemented},
}
