/*
Package message defines chat messages and the conversation scopes that group them.
*/
package message

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the payload kind of a message.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindFile  Kind = "file"
)

// IsFile reports whether messages of this kind carry a file reference instead of text.
func (k Kind) IsFile() bool {
	return k == KindImage || k == KindVideo || k == KindFile
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindText || k.IsFile()
}

// KindForMediaType maps a MIME type to the file kind used for display.
func KindForMediaType(mediaType string) Kind {
	mt := strings.ToLower(mediaType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	case strings.HasPrefix(mt, "video/"):
		return KindVideo
	default:
		return KindFile
	}
}

// Message is one persisted unit of communication. It is never modified after Append.
// Exactly one of Content (KindText) or FileRef (file kinds) is set.
type Message struct {
	ID           int64     `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	RecipientID  string    `json:"recipientId,omitempty"`
	Kind         Kind      `json:"kind"`
	Content      string    `json:"content,omitempty"`
	FileRef      string    `json:"fileRef,omitempty"`
	MediaType    string    `json:"mediaType,omitempty"`
	OriginalName string    `json:"originalName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsPrivate reports whether the message is addressed to a single recipient.
func (m Message) IsPrivate() bool {
	return m.RecipientID != ""
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// TranscriptLine renders the message as one line of a plain-text history export:
// "[2006-01-02 15:04:05] sender: content", with files shown as "[kind] name".
func (m Message) TranscriptLine() string {
	var content string
	switch {
	case m.Kind == KindText:
		content = lineBreaks.Replace(m.Content)
	case m.Kind.IsFile():
		name := m.OriginalName
		if name == "" {
			name = m.FileRef
		}
		content = fmt.Sprintf("[%s] %s", m.Kind, name)
	default:
		content = "[unknown message]"
	}

	return fmt.Sprintf("[%s] %s: %s", m.CreatedAt.UTC().Format(time.DateTime), m.SenderName, content)
}

// Scope returns the conversation scope the message belongs to.
func (m Message) Scope() Scope {
	if m.IsPrivate() {
		return PrivateScope(m.SenderID, m.RecipientID)
	}
	return PublicScope()
}

// Scope identifies either the public room or an unordered pair of users.
// The zero value is the public scope.
type Scope struct {
	userA string
	userB string
}

// PublicScope returns the broadcast scope.
func PublicScope() Scope {
	return Scope{}
}

// PrivateScope returns the scope shared by a and b, independent of argument order.
func PrivateScope(a, b string) Scope {
	if b < a {
		a, b = b, a
	}
	return Scope{userA: a, userB: b}
}

// IsPublic reports whether s is the broadcast scope.
func (s Scope) IsPublic() bool {
	return s.userA == "" && s.userB == ""
}

// Members returns the two users of a private scope in canonical order.
func (s Scope) Members() (string, string) {
	return s.userA, s.userB
}

// Key returns a string usable as a map key or lock key.
func (s Scope) Key() string {
	if s.IsPublic() {
		return "public"
	}
	return "private:" + s.userA + ":" + s.userB
}

// Label returns "public" or "private" for logs and metrics.
func (s Scope) Label() string {
	if s.IsPublic() {
		return "public"
	}
	return "private"
}
