package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the subject of a verified bearer token.
type Identity struct {
	UserID string
	Email  string
}

// Claims are the JWT claims accepted at the connection boundary.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier validates HMAC-signed bearer tokens. Token issuance is an
// external collaborator; this side only verifies.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token, returning the subject identity.
// All failure modes collapse to a rejection; callers treat them alike.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
