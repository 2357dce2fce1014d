package auth

import (
	"errors"
	"fmt"
	"time"

	"LabelDesk/errs"
	"LabelDesk/model"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Claims carries the acting identity inside an API token.
type Claims struct {
	Actor model.Actor `json:"actor"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for actor.
func GenerateToken(secret string, actor model.Actor, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Actor: actor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "labeldesk",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IsStaff reports whether actor reviews releases for the platform.
func IsStaff(actor model.Actor) bool {
	return actor.IsStaff()
}

// Can reports whether actor holds perm.
func Can(actor model.Actor, perm model.Permission) bool {
	return actor.Has(perm)
}

// RequireStaff returns an AuthorizationError unless actor is Owner or Staff.
func RequireStaff(actor model.Actor, action string) error {
	if actor.IsStaff() {
		return nil
	}
	return errs.Unauthorized(action, "role %s is not a staff reviewer", actor.Role)
}

// RequirePermission returns an AuthorizationError unless actor holds perm.
func RequirePermission(actor model.Actor, perm model.Permission, action string) error {
	if actor.Has(perm) {
		return nil
	}
	return errs.Unauthorized(action, "missing permission %s", perm)
}
