// Package auth is the identity boundary: it turns a bearer token into the
// owner ID that scopes every store operation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/config"
)

var (
	ErrMissingToken = errors.New("missing authentication token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Tokens issues and validates HS256 access tokens whose subject is the owner ID.
type Tokens struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// New creates Tokens from config. A secret is required.
func New(cfg config.AuthConfig, ttl time.Duration) (*Tokens, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: jwt secret is required (RAPPORT_AUTH_JWT_SECRET)")
	}
	return &Tokens{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue mints a token for ownerID.
func (t *Tokens) Issue(ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New("auth: owner ID is required")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   ownerID,
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	if t.audience != "" {
		claims.Audience = jwt.ClaimStrings{t.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Validate checks a token (with or without a "Bearer" scheme, matched
// case-insensitively) and returns its owner ID.
func (t *Tokens) Validate(token string) (string, error) {
	token = stripBearer(token)
	if token == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func stripBearer(header string) string {
	header = strings.TrimSpace(header)
	const scheme = "bearer"
	if len(header) >= len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		rest := header[len(scheme):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			return strings.TrimSpace(rest)
		}
	}
	return header
}

type contextKey struct{}

// WithOwner returns ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, contextKey{}, ownerID)
}

// OwnerFrom returns the owner ID set by Middleware, or "".
func OwnerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(contextKey{}).(string)
	return owner
}

// Middleware rejects requests without a valid bearer token and puts the
// token's owner ID in the request context. onError renders the rejection.
func (t *Tokens) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := t.Validate(r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, apperr.Unauthorized(err.Error()))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
