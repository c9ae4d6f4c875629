// Package auth validates bearer tokens and carries the authenticated user
// through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role claim")
)

// Claims is the token payload issued by the account service.
type Claims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// CurrentUser is the caller resolved from a valid token.
type CurrentUser struct {
	ID    string
	Email string
	Role  model.Role
}

// IsStaff reports whether the user may manage tickets of any attendee.
func (u *CurrentUser) IsStaff() bool {
	return u != nil && (u.Role == model.RoleAdmin || u.Role == model.RoleOrganizer)
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// ValidateToken parses and verifies token and returns the caller it names.
func (v *Verifier) ValidateToken(token string) (*CurrentUser, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Sub == "" {
		return nil, ErrInvalidToken
	}
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}
	return &CurrentUser{ID: c.Sub, Email: c.Email, Role: role}, nil
}

// Sign issues a token for u that expires after ttl.
func (v *Verifier) Sign(u CurrentUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:   u.ID,
		Role:  string(u.Role),
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type userKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *CurrentUser) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the authenticated user, or nil for anonymous requests.
func UserFrom(ctx context.Context) *CurrentUser {
	u, _ := ctx.Value(userKey{}).(*CurrentUser)
	return u
}
