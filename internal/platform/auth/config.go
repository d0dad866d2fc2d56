package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/runforge-labs/actiond/internal/platform/env"
)

type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeToken    Mode = "token"
	ModeOIDC     Mode = "oidc"
)

type Config struct {
	Mode Mode

	// token mode
	StaticToken  string
	TokenSubject string
	TokenRoles   []string

	// oidc mode
	OIDCIssuerURL string
	OIDCClientID  string
	RolesClaim    string
	EmailClaim    string
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Mode:          Mode(strings.ToLower(env.String("ACTIOND_AUTH_MODE", string(ModeDisabled)))),
		StaticToken:   env.String("ACTIOND_AUTH_TOKEN", ""),
		TokenSubject:  env.String("ACTIOND_AUTH_TOKEN_SUBJECT", "service-account"),
		TokenRoles:    splitList(env.String("ACTIOND_AUTH_TOKEN_ROLES", "admin")),
		OIDCIssuerURL: env.String("ACTIOND_OIDC_ISSUER_URL", ""),
		OIDCClientID:  env.String("ACTIOND_OIDC_CLIENT_ID", ""),
		RolesClaim:    env.String("ACTIOND_OIDC_ROLES_CLAIM", "roles"),
		EmailClaim:    env.String("ACTIOND_OIDC_EMAIL_CLAIM", "email"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeDisabled:
		return nil
	case ModeToken:
		if strings.TrimSpace(c.StaticToken) == "" {
			return errors.New("ACTIOND_AUTH_TOKEN is required in token mode")
		}
		return nil
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("ACTIOND_OIDC_ISSUER_URL is required in oidc mode")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("ACTIOND_OIDC_CLIENT_ID is required in oidc mode")
		}
		return nil
	default:
		return fmt.Errorf("unknown auth mode %q", c.Mode)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
