package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the access level carried in the token's claims. It is derived,
// never persisted.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// DecodeRole reads the role claim from a bearer token without verifying
// its signature; validation is the backend's concern. Any decode failure
// returns RoleStudent, the least-privileged role, alongside the error.
func DecodeRole(token string) (Role, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return RoleStudent, fmt.Errorf("could not parse token claims: %w", err)
	}
	raw, ok := claims["role"].(string)
	if !ok {
		return RoleStudent, fmt.Errorf("token has no role claim")
	}
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return RoleStudent, fmt.Errorf("unknown role claim %q", raw)
	}
}
