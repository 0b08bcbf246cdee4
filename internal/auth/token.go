package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatmesh/internal/config"
)

// SessionClaims identify which instance admitted a user's live session.
type SessionClaims struct {
	Username string `json:"uname"`
	Instance string `json:"inst"`
	jwt.RegisteredClaims
}

// NewSessionToken mints the signed token stored as a user's session record.
func NewSessionToken(cfg config.AuthConfig, username, instanceID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Username: username,
		Instance: instanceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   cfg.Issuer,
			Subject:  username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseSessionToken validates a stored session record and extracts its claims.
func ParseSessionToken(cfg config.AuthConfig, tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
