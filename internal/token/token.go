// Package token issues and verifies the bearer tokens used by the JSON API.
package token

import (
	"encoding/base64"
	"time"

	"github.com/acetime/acetime/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.NewSentinel("invalid token")

// Claims carries the registered claims plus the user handle the token was
// issued to. The handle is base64-encoded because it is raw bytes.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret   []byte
	validity time.Duration
}

func NewIssuer(secret []byte, validity time.Duration) *Issuer {
	return &Issuer{
		secret:   secret,
		validity: validity,
	}
}

// Issue returns a signed token for the user.
func (i *Issuer) Issue(userID []byte) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.validity)),
		},
		UserID: base64.RawURLEncoding.EncodeToString(userID),
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the user handle the
// token was issued to.
func (i *Issuer) Verify(tokenString string) ([]byte, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := base64.RawURLEncoding.DecodeString(claims.UserID)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "decode user ID")
	}
	return userID, nil
}
