package chat

import (
	"mime"
	"strings"
	"unicode/utf8"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

const (
	// DefaultMaxTextLength is the text limit in characters when none is configured.
	DefaultMaxTextLength = 500

	// maxFileRefLength bounds the object key a file message may reference.
	maxFileRefLength = 512

	// maxOriginalNameLength bounds the display name of a shared file.
	maxOriginalNameLength = 255
)

// SendPayload is the payload of SEND_MESSAGE. Kind is "text" or "file"; the concrete
// file kind (image, video, file) is derived from MediaType.
type SendPayload struct {
	Kind         string `json:"kind"`
	Body         string `json:"body,omitempty"`
	FileRef      string `json:"fileRef,omitempty"`
	MediaType    string `json:"mediaType,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	RecipientID  string `json:"recipientId,omitempty"`
}

// BuildMessage validates p on behalf of sender and returns the message to persist.
// The returned message has no ID or CreatedAt yet.
func (p SendPayload) BuildMessage(sender user.User, maxTextLength int) (message.Message, *errs.CustomError) {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}

	recipientID := strings.TrimSpace(p.RecipientID)
	if recipientID != "" && recipientID == sender.ID {
		return message.Message{}, errs.NewError(errs.ErrRecipientInvalid)
	}

	msg := message.Message{
		SenderID:    sender.ID,
		SenderName:  sender.Name,
		RecipientID: recipientID,
	}

	switch message.Kind(strings.ToLower(strings.TrimSpace(p.Kind))) {
	case message.KindText:
		body := strings.TrimSpace(p.Body)
		if body == "" {
			return message.Message{}, errs.NewError(errs.ErrMessageEmpty)
		}
		if utf8.RuneCountInString(body) > maxTextLength {
			return message.Message{}, errs.NewError(errs.ErrMessageContentTooLong, maxTextLength)
		}
		msg.Kind = message.KindText
		msg.Content = body

	case message.KindFile, message.KindImage, message.KindVideo:
		fileRef := strings.TrimSpace(p.FileRef)
		if fileRef == "" || len(fileRef) > maxFileRefLength {
			return message.Message{}, errs.NewError(errs.ErrAttachmentInvalid)
		}

		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(p.MediaType))
		if err != nil || !strings.Contains(mediaType, "/") {
			return message.Message{}, errs.NewError(errs.ErrAttachmentInvalid)
		}

		name := strings.TrimSpace(p.OriginalName)
		if utf8.RuneCountInString(name) > maxOriginalNameLength {
			return message.Message{}, errs.NewError(errs.ErrAttachmentInvalid)
		}

		msg.Kind = message.KindForMediaType(mediaType)
		msg.FileRef = fileRef
		msg.MediaType = mediaType
		msg.OriginalName = name

	default:
		return message.Message{}, errs.NewError(errs.ErrMessageKindInvalid)
	}

	return msg, nil
}
