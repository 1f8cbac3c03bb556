/*
Package store declares the persistence contracts used by the HTTP handlers and the
chat engine. Implementations live in package db (PostgreSQL) and package memdb.
*/
package store

import (
	"context"
	"errors"

	"relaychat/internal/app/message"
	"relaychat/internal/app/user"
)

var (
	// ErrNotFound is returned when the referenced user or relationship does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a unique constraint (e.g. username) is violated.
	ErrConflict = errors.New("store: conflict")

	// ErrAlreadyFriends is returned by AddFriend for an existing relationship.
	ErrAlreadyFriends = errors.New("store: already friends")
)

// Users stores accounts.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash string) (user.Account, error)
	UserByName(ctx context.Context, username string) (user.Account, error)
	UserByID(ctx context.Context, id string) (user.User, error)
	// SearchUsers returns up to limit users whose name contains query (case-insensitive),
	// excluding requesterID and the requester's friends.
	SearchUsers(ctx context.Context, requesterID, query string, limit int) ([]user.User, error)
}

// Friends stores the symmetric friend graph.
type Friends interface {
	// Friends returns the friends of userID with the group label userID chose.
	// IsOnline is always false at this layer.
	Friends(ctx context.Context, userID string) ([]user.Friend, error)
	// AddFriend links a and b in both directions. a files b under group, b files a
	// under user.DefaultGroup.
	AddFriend(ctx context.Context, a, b, group string) error
	// RemoveFriend unlinks a and b in both directions.
	RemoveFriend(ctx context.Context, a, b string) error
	// MoveFriend changes the group label owner uses for friend.
	MoveFriend(ctx context.Context, owner, friend, group string) error
}

// History is the append-only message log.
type History interface {
	// Append persists msg, assigning ID and CreatedAt.
	Append(ctx context.Context, msg message.Message) (message.Message, error)
	// RecentPublic returns the newest limit public messages, oldest first.
	RecentPublic(ctx context.Context, limit int) ([]message.Message, error)
	// RecentPrivate returns the newest limit messages exchanged between a and b in
	// either direction, oldest first.
	RecentPrivate(ctx context.Context, a, b string, limit int) ([]message.Message, error)
	// ExportHistory calls fn for every message of scope, oldest first, and stops at
	// the first error fn returns.
	ExportHistory(ctx context.Context, scope message.Scope, fn func(message.Message) error) error
}

// Store is the full persistence surface.
type Store interface {
	Users
	Friends
	History
	Close()
}
