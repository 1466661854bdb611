package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the JWT claims structure issued by the identity provider.
// The subject claim carries the actor id threaded through every version
// operation for audit fields.
type AccessClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	IsAnonymous          bool   `json:"is_anonymous"`
}

// ActorID returns the acting user's id from the JWT subject claim.
func (c *AccessClaims) ActorID() string {
	return c.Subject
}
