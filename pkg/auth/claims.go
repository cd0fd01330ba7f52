package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorPayload captures the identity minted into a JWT. The equipment core
// trusts this identity unconditionally; policy lives upstream.
type ActorPayload struct {
	UserID uuid.UUID
	Name   string
}

// ActorClaims is the typed JWT issued to clients.
type ActorClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name,omitempty"`
	jwt.RegisteredClaims
}
