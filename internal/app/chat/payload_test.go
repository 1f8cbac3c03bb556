package chat

import (
	"strings"
	"testing"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/errs"
)

func TestSendPayload_BuildMessage(t *testing.T) {
	sender := user.User{ID: "u1", Name: "alice"}

	tests := []struct {
		name     string
		payload  SendPayload
		wantCode int
		wantKind message.Kind
	}{
		{name: "text", payload: SendPayload{Kind: "text", Body: "  hello  "}, wantKind: message.KindText},
		{name: "text at limit", payload: SendPayload{Kind: "text", Body: strings.Repeat("é", 10)}, wantKind: message.KindText},
		{name: "text over limit", payload: SendPayload{Kind: "text", Body: strings.Repeat("a", 11)}, wantCode: errs.ErrMessageContentTooLong},
		{name: "whitespace only", payload: SendPayload{Kind: "text", Body: " \n\t "}, wantCode: errs.ErrMessageEmpty},
		{name: "unknown kind", payload: SendPayload{Kind: "sticker", Body: "x"}, wantCode: errs.ErrMessageKindInvalid},
		{name: "image", payload: SendPayload{Kind: "file", FileRef: "files/a.png", MediaType: "image/png", OriginalName: "a.png"}, wantKind: message.KindImage},
		{name: "video", payload: SendPayload{Kind: "file", FileRef: "files/a.mp4", MediaType: "Video/MP4"}, wantKind: message.KindVideo},
		{name: "generic file", payload: SendPayload{Kind: "file", FileRef: "files/a.pdf", MediaType: "application/pdf"}, wantKind: message.KindFile},
		{name: "file without ref", payload: SendPayload{Kind: "file", MediaType: "image/png"}, wantCode: errs.ErrAttachmentInvalid},
		{name: "file without media type", payload: SendPayload{Kind: "file", FileRef: "files/a.png"}, wantCode: errs.ErrAttachmentInvalid},
		{name: "file with bad media type", payload: SendPayload{Kind: "file", FileRef: "files/a.png", MediaType: "png"}, wantCode: errs.ErrAttachmentInvalid},
		{name: "private to self", payload: SendPayload{Kind: "text", Body: "me", RecipientID: "u1"}, wantCode: errs.ErrRecipientInvalid},
		{name: "private", payload: SendPayload{Kind: "text", Body: "you", RecipientID: "u2"}, wantKind: message.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.payload.BuildMessage(sender, 10)

			if tt.wantCode != 0 {
				if err == nil || err.Code != tt.wantCode {
					t.Fatalf("BuildMessage() error = %v, want code %d", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildMessage() unexpected error = %v", err)
			}
			if msg.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", msg.Kind, tt.wantKind)
			}
			if msg.SenderID != "u1" || msg.SenderName != "alice" {
				t.Errorf("sender = (%q, %q)", msg.SenderID, msg.SenderName)
			}
			if msg.Kind.IsFile() == (msg.Content != "") {
				t.Errorf("exactly one of Content/FileRef must be set: %+v", msg)
			}
		})
	}
}

func TestSendPayload_TrimsText(t *testing.T) {
	msg, err := SendPayload{Kind: "text", Body: "  hi  "}.BuildMessage(user.User{ID: "u1"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "hi" {
		t.Errorf("Content = %q, want trimmed", msg.Content)
	}
}

func TestSendPayload_TooLongReportsLimit(t *testing.T) {
	_, err := SendPayload{Kind: "text", Body: strings.Repeat("a", 501)}.BuildMessage(user.User{ID: "u1"}, 0)
	if err == nil || !strings.Contains(err.Message, "500") {
		t.Errorf("error = %v, want the default limit in the message", err)
	}
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		wantErr  bool
	}{
		{"png", "photo.PNG", "image/png", false},
		{"mp4", "clip.mp4", "video/mp4", false},
		{"pdf", "doc.pdf", "application/pdf", false},
		{"mismatch", "photo.png", "image/jpeg", true},
		{"no extension", "photo", "image/png", true},
		{"unknown extension", "run.exe", "application/octet-stream", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileType(tt.fileName, tt.mimeType)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileType(%q, %q) = %v, wantErr %v", tt.fileName, tt.mimeType, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := ValidateFileSize(0); err == nil || err.Code != errs.ErrInvalidParams {
		t.Errorf("ValidateFileSize(0) = %v", err)
	}
	if err := ValidateFileSize(MaxAttachmentSize + 1); err == nil || err.Code != errs.ErrFileSizeTooLarge {
		t.Errorf("ValidateFileSize(too large) = %v", err)
	}
	if err := ValidateFileSize(1024); err != nil {
		t.Errorf("ValidateFileSize(1024) = %v", err)
	}
}
