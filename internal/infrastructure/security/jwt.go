// Package security provides JWT token utilities
package security

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a signed token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateAnonymousSessionToken mints a signed anonymous session token.
// AnonID is the stable visitor identity; jti is unique per issued token.
func GenerateAnonymousSessionToken(anonID, issuer, audience, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"jti":      GenerateULID(),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"iss":      issuer,
		"aud":      audience,
		"sub_type": session.SubTypeAnonymousSession,
		"anon_id":  anonID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// GenerateUserToken mints a signed token for an authenticated user.
func GenerateUserToken(userID, jwtSecret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      userID,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
		"sub_type": "user_session",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// AnonymousClaimsFromMap extracts typed anonymous claims from verified
// map claims. Returns nil when the token is not an anonymous session
// token.
func AnonymousClaimsFromMap(claims jwt.MapClaims) *session.AnonymousClaims {
	subType, _ := claims["sub_type"].(string)
	if subType != session.SubTypeAnonymousSession {
		return nil
	}

	out := &session.AnonymousClaims{SubType: subType}
	if v, ok := claims["jti"].(string); ok {
		out.Jti = v
	}
	if v, ok := claims["iss"].(string); ok {
		out.Iss = v
	}
	if v, ok := claims["aud"].(string); ok {
		out.Aud = v
	}
	if v, ok := claims["anon_id"].(string); ok {
		out.AnonID = v
	}
	if v, ok := claims["iat"].(float64); ok {
		out.Iat = int64(v)
	}
	if v, ok := claims["exp"].(float64); ok {
		out.Exp = int64(v)
	}
	return out
}

// DecodeUnverifiedClaims decodes the payload segment of a compact
// signed token without verifying its signature; verification is the
// backend's job. Any structural corruption (missing segment, invalid
// base64, invalid JSON) yields nil rather than an error so callers can
// treat a corrupt cached token exactly like an expired one.
func DecodeUnverifiedClaims(tokenString string) *session.AnonymousClaims {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}

	var claims session.AnonymousClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}

	return &claims
}
