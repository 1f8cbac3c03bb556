/*
Package auth verifies connection credentials.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/auth/jwt"
)

var (
	// ErrInvalidCredential covers missing, malformed, expired and wrongly signed tokens.
	ErrInvalidCredential = errors.New("auth: invalid credential")

	// ErrUnknownIdentity is returned for a valid token whose user no longer exists.
	ErrUnknownIdentity = errors.New("auth: unknown identity")
)

// UserLookup resolves a user id to the current identity.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (user.User, error)
}

// Verifier checks JWT identity tokens and confirms the user still exists.
type Verifier struct {
	secret string
	users  UserLookup
}

// NewVerifier returns a Verifier for tokens signed with secret.
func NewVerifier(secret string, users UserLookup) *Verifier {
	return &Verifier{secret: secret, users: users}
}

// Verify returns the identity carried by credential. The display name comes from the
// store, not from the token.
func (v *Verifier) Verify(ctx context.Context, credential string) (user.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return user.User{}, ErrInvalidCredential
	}

	payload, err := jwt.ParseToken(credential, v.secret)
	if err != nil {
		return user.User{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	u, err := v.users.UserByID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, ErrUnknownIdentity
		}
		return user.User{}, fmt.Errorf("lookup identity: %w", err)
	}

	return u, nil
}

// IssueToken signs an identity token for u.
func IssueToken(u user.User, secret string) (string, error) {
	return jwt.GenerateToken(&jwt.Payload{ID: u.ID, Name: u.Name}, secret, jwt.UserIdentityExpiration)
}
