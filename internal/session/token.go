package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("token expired")

// TokenClaims is what the backend puts into its HS256 bearer tokens.
type TokenClaims struct {
	UserID int64
	Email  string
	Expiry time.Time
}

// ParseToken extracts claims without verifying the signature; the client has no
// secret and only needs the user id and expiry the backend encoded.
func ParseToken(token string) (*TokenClaims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	out := &TokenClaims{}
	if v, ok := claims["user_id"].(float64); ok {
		out.UserID = int64(v)
	}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expiry = exp.Time
		if time.Now().After(out.Expiry) {
			return out, ErrTokenExpired
		}
	}
	return out, nil
}
