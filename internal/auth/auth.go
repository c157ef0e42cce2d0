// Package auth resolves the caller identity of a request. Tokens are issued
// by an external provider; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/medvoice/backend/pkg/apperr"
)

// Modes accepted by AUTH_MODE.
const (
	ModeJWT    = "jwt"
	ModeHeader = "header"
)

// IdentityHeader carries the caller in header mode.
const IdentityHeader = "X-User-Email"

// TokenQueryParam carries the bearer token when no Authorization header is
// present.
const TokenQueryParam = "access_token"

// Verifier extracts the caller identity from a request.
type Verifier interface {
	Verify(r *http.Request) (string, error)
}

var errMissingCredentials = apperr.New(apperr.KindUnauthorized, "auth.verify", "missing credentials")

// JWTVerifier validates HS256 bearer tokens and reads the identity from a
// claim. The first non-empty claim in Claims wins.
type JWTVerifier struct {
	secret []byte
	claims []string
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. claim may be a comma separated list.
func NewJWTVerifier(secret, claim string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	var claims []string
	for _, c := range strings.Split(claim, ",") {
		if c = strings.TrimSpace(c); c != "" {
			claims = append(claims, c)
		}
	}
	if len(claims) == 0 {
		claims = []string{"email", "sub"}
	}

	return &JWTVerifier{
		secret: []byte(secret),
		claims: claims,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

func (v *JWTVerifier) Verify(r *http.Request) (string, error) {
	const op = "auth.verify"

	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		// browsers cannot set headers on websocket upgrades
		tokenStr = r.URL.Query().Get(TokenQueryParam)
	}
	if strings.TrimSpace(tokenStr) == "" {
		return "", errMissingCredentials
	}

	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(strings.TrimSpace(tokenStr), claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.Wrap(apperr.KindUnauthorized, op, "invalid token", err)
	}

	for _, name := range v.claims {
		if value, ok := claims[name].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", apperr.New(apperr.KindUnauthorized, op, "token carries no identity")
}

// HeaderVerifier trusts IdentityHeader as set by a fronting proxy. Meant for
// local development only.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(r *http.Request) (string, error) {
	identity := strings.TrimSpace(r.Header.Get(IdentityHeader))
	if identity == "" {
		return "", errMissingCredentials
	}
	return identity, nil
}

// NewVerifier picks the verifier for mode.
func NewVerifier(mode, secret, claim string) (Verifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeJWT:
		return NewJWTVerifier(secret, claim)
	case ModeHeader:
		return HeaderVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

type ctxKey struct{}

// WithIdentity stores the caller identity on ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(ctxKey{}).(string)
	return identity, ok && identity != ""
}

// RequireIdentity is IdentityFrom that fails with an unauthorized error.
func RequireIdentity(ctx context.Context) (string, error) {
	identity, ok := IdentityFrom(ctx)
	if !ok {
		return "", errMissingCredentials
	}
	return identity, nil
}
