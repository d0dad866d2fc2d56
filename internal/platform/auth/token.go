package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// StaticTokenAuthenticator accepts one pre-shared bearer token. Intended for
// service-to-service wiring and local development, not multi-user deployments.
type StaticTokenAuthenticator struct {
	token    string
	identity Identity
}

func NewStaticTokenAuthenticator(cfg Config) (*StaticTokenAuthenticator, error) {
	if strings.TrimSpace(cfg.StaticToken) == "" {
		return nil, errors.New("static token is required")
	}
	return &StaticTokenAuthenticator{
		token: cfg.StaticToken,
		identity: Identity{
			Subject: cfg.TokenSubject,
			Roles:   cfg.TokenRoles,
		},
	}, nil
}

func (a *StaticTokenAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := tokenFromHeader(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(raw), []byte(a.token)) != 1 {
		return Identity{}, errors.New("invalid token")
	}
	return a.identity, nil
}

func tokenFromHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
