package auth

import (
	"errors"
	"time"

	"skillswap/backend/internal/errs"

	jwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "skillswap-service"

// Issuer signs and verifies access tokens. The subject is the user id.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	return token, expires, err
}

// Parse returns the user id of a valid token.
func (i *Issuer) Parse(token string) (string, error) {
	if token == "" {
		return "", errMissing
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", errExpired
	case err != nil:
		return "", errInvalid
	case claims.Subject == "":
		return "", errInvalid
	}
	return claims.Subject, nil
}

var (
	errMissing = errs.Unauthenticated("token missing")
	errExpired = errs.Unauthenticated("token expired")
	errInvalid = errs.Unauthenticated("invalid token")
)
