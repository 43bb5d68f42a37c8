package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jaevor/go-nanoid"
)

const (
	sessionTokenLength = 40
	issuer             = "expense-ledger"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   int64
	Username string
}

// SessionClaims is the payload of the signed session cookie. The registered
// ID claim carries the server-side session token.
type SessionClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Principal returns the identity named by the claims.
func (c *SessionClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Username: c.Username}
}

// GenerateSessionToken returns a new random session token.
func GenerateSessionToken() (string, error) {
	generateID, err := nanoid.Standard(sessionTokenLength)
	if err != nil {
		return "", err
	}
	return generateID(), nil
}

// SignSession produces the cookie value for a session.
func SignSession(p Principal, sessionToken string, expiresAt time.Time, secret []byte) (string, error) {
	claims := &SessionClaims{
		UserID:   p.UserID,
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionToken,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifySession checks the signature and expiry of a cookie value.
func VerifySession(value string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, errors.New("session claims incomplete")
	}
	return claims, nil
}
