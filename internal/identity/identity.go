// Package identity mints and resolves the short-lived QR tokens members
// present at the front desk to check in.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way a QR token can fail to resolve:
// malformed, wrong signature, expired, or not a QR token at all.
var ErrInvalidToken = errors.New("invalid qr token")

const qrUse = "checkin"

// Resolver signs and verifies QR check-in tokens.  Tokens are HS256
// JWTs carrying the member ID as subject and a use claim that keeps
// access tokens from doubling as QR codes.
type Resolver struct {
	secret []byte
	ttl    time.Duration
}

// NewResolver builds a Resolver with the given signing secret and
// token lifetime.
func NewResolver(secret string, ttl time.Duration) *Resolver {
	return &Resolver{secret: []byte(secret), ttl: ttl}
}

// NewToken signs a fresh QR token for the member and returns it with
// its expiry.  Clients render the string as a QR code; the short TTL
// bounds the damage of a screenshotted code.
func (r *Resolver) NewToken(memberID uint64) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(r.ttl)
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", memberID),
		"use": qrUse,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ResolveMember verifies a scanned token and returns the member ID it
// was issued to, or ErrInvalidToken.
func (r *Resolver) ResolveMember(token string) (uint64, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if use, _ := claims["use"].(string); use != qrUse {
		return 0, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrInvalidToken
	}
	var memberID uint64
	if _, err := fmt.Sscanf(sub, "%d", &memberID); err != nil || memberID == 0 {
		return 0, ErrInvalidToken
	}
	return memberID, nil
}
