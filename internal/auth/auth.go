// Package auth identifies dashboard users.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// Profile is the signed-in user.
type Profile struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Provider string `json:"provider"`
}

// Authenticator turns a credential into a profile.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (Profile, error)
}

// New builds the authenticator selected in config.
func New(ctx context.Context, cfg domain.AuthConfig) (Authenticator, error) {
	switch cfg.Mode {
	case "", domain.AuthModeDev:
		return DevAuthenticator{}, nil
	case domain.AuthModeOIDC:
		return NewOIDC(ctx, cfg.Issuer, cfg.ClientID)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// DevAuthenticator trusts any well-formed email address.
// It is meant for local use only.
type DevAuthenticator struct{}

// Authenticate parses the credential as an email address.
func (DevAuthenticator) Authenticate(_ context.Context, credential string) (Profile, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Profile{}, fmt.Errorf("%w: email is required", domain.ErrUnauthenticated)
	}
	addr, err := mail.ParseAddress(credential)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: invalid email %q", domain.ErrUnauthenticated, credential)
	}
	return Profile{
		Email:    strings.ToLower(addr.Address),
		Name:     addr.Name,
		Provider: domain.AuthModeDev,
	}, nil
}

// OIDCAuthenticator verifies ID tokens issued by the identity provider.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC discovers the issuer and builds a verifier for clientID.
func NewOIDC(ctx context.Context, issuer, clientID string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("oidc auth requires issuer and client id")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	return NewOIDCWithVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCWithVerifier wraps an existing verifier.
func NewOIDCWithVerifier(v *oidc.IDTokenVerifier) *OIDCAuthenticator {
	return &OIDCAuthenticator{verifier: v}
}

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// Authenticate verifies a raw ID token, optionally prefixed with "Bearer ".
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, credential string) (Profile, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if raw == "" {
		return Profile{}, fmt.Errorf("%w: id token is required", domain.ErrUnauthenticated)
	}

	token, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	var claims idClaims
	if err := token.Claims(&claims); err != nil {
		return Profile{}, fmt.Errorf("%w: read claims: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Email == "" {
		return Profile{}, fmt.Errorf("%w: token has no email claim", domain.ErrUnauthenticated)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return Profile{}, fmt.Errorf("%w: email %s is not verified", domain.ErrUnauthenticated, claims.Email)
	}

	return Profile{
		Email:    strings.ToLower(claims.Email),
		Name:     claims.Name,
		Subject:  token.Subject,
		Provider: domain.AuthModeOIDC,
	}, nil
}
