/*
Package user contains the identity types shared by the chat engine and the stores.
*/
package user

import "time"

// DefaultGroup is the group label given to a friend when none was chosen.
const DefaultGroup = "Default"

// User is the verified identity attached to a connection. It is read-only for the
// lifetime of the connection.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is a stored user with its credentials.
type Account struct {
	User
	PasswordHash string
	CreatedAt    time.Time
}

// Friend is one side of a friend relationship as seen by its owner.
// IsOnline is filled in by the chat engine from the presence registry.
type Friend struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Group    string `json:"group"`
	IsOnline bool   `json:"isOnline"`
}
