package session

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// Claims is the subset of the access token payload the console relies on.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	Role      domain.Role
	ExpiresAt time.Time
}

var unverified = jwt.NewParser()

// DecodeClaims reads the token payload without verifying the signature.
// The backend owns the signing key; the console only needs exp/sub/role.
func DecodeClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := unverified.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("decode token: %w", err)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("decode token exp: %w", err)
	}

	claims := Claims{
		Subject: stringClaim(mc, "sub"),
		Email:   stringClaim(mc, "email"),
		Name:    stringClaim(mc, "name"),
		Role:    domain.Role(stringClaim(mc, "role")),
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Expired reports whether the token is no longer usable at now. Tokens
// without an exp claim never expire on the client side.
func (c Claims) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// User builds a user record from the claims. Older backends put the email in sub.
func (c Claims) User() domain.User {
	u := domain.User{
		ID:    domain.ID(c.Subject),
		Email: c.Email,
		Name:  c.Name,
		Role:  c.Role,
	}
	if u.Email == "" {
		u.Email = c.Subject
	}
	return u
}

// TokenExpired treats an undecodable token as expired.
func TokenExpired(token string, now time.Time) bool {
	claims, err := DecodeClaims(token)
	if err != nil {
		return true
	}
	return claims.Expired(now)
}

func stringClaim(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
