package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingBearer = errors.New("missing bearer token")
)

// Identity is the server-side verified identity of a request. Client
// supplied userId fields are never trusted when a token is present.
type Identity struct {
	UserID   int
	Username string
}

// Verifier validates HS256 bearer tokens issued by the external auth
// service and extracts the identity claims.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a raw JWT and returns the asserted identity.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	userID, ok := claims["userId"].(float64)
	if !ok || userID == 0 {
		return Identity{}, ErrInvalidToken
	}

	username, _ := claims["username"].(string)

	return Identity{UserID: int(userID), Username: username}, nil
}

// FromHeader verifies an "Authorization: Bearer <token>" header value.
func (v *Verifier) FromHeader(header string) (Identity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, ErrMissingBearer
	}
	return v.Verify(parts[1])
}
