package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/atinyakov/FieldInventory/internal/models"
)

const issuer = "field-inventory"

// Claims are the signed session claims. Subject carries the identity id.
// Role is informational; authorization always uses the stored role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityLookup loads the stored identity a token refers to.
type IdentityLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Issuer mints and validates HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	users  IdentityLookup
}

// NewIssuer creates an Issuer. The secret is shared by the whole process.
func NewIssuer(secret string, ttl time.Duration, users IdentityLookup) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is not configured")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be greater than zero")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, users: users}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for u that expires at now + TTL.
func (i *Issuer) Issue(u *models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks token at time now and returns the stored identity it
// refers to. Every failure matches models.ErrUnauthenticated except store
// outages, which match models.ErrStoreUnavailable.
func (i *Issuer) Validate(ctx context.Context, token string, now time.Time) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, models.ErrMissingBearerToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrTokenMalformed
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, models.ErrTokenMalformed
	}

	u, err := i.users.FindByID(ctx, claims.Subject)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, models.ErrIdentityNotFound
	case err != nil:
		return nil, fmt.Errorf("load identity: %w", err)
	case !u.IsActive:
		return nil, models.ErrIdentityInactive
	}
	return u, nil
}
