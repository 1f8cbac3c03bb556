package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of an identity token.
type Payload struct {
	jwt.StandardClaims

	// ID is the user id the token was issued to.
	ID string `json:"id"`

	// Name is the display name at issue time. The verifier reloads it from the store.
	Name string `json:"name"`
}
