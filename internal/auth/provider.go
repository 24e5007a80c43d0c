package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/teresa-solution/housezen-portal/internal/model"
	"golang.org/x/oauth2"
)

// Identity is what a completed OAuth sign-in yields.
type Identity struct {
	User      model.User
	ExpiresAt time.Time
}

// Provider is the external OAuth redirect flow.
type Provider interface {
	// AuthCodeURL is where the browser is sent to sign in.
	AuthCodeURL(state string) string
	// Exchange trades the callback code for a verified identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// OIDCProvider signs users in with an OpenID Connect provider.
type OIDCProvider struct {
	issuer   string
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// OIDCConfig configures NewOIDCProvider.
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewOIDCProvider discovers the provider's endpoints.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return &OIDCProvider{
		issuer: cfg.IssuerURL,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("token response has no id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("failed to extract claims from token: %w", err)
	}
	name := c.FullName
	if name == "" {
		name = c.Name
	}
	return &Identity{
		User: model.User{
			ID:       UserID(p.issuer, c.Subject),
			Email:    c.Email,
			FullName: name,
		},
		ExpiresAt: idToken.Expiry,
	}, nil
}

// UserID maps a token subject to the backend's user id. Subjects that already
// are UUIDs are used as is; others are mapped to a stable name-based UUID.
func UserID(issuer, subject string) uuid.UUID {
	if id, err := uuid.Parse(subject); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(issuer+"#"+subject))
}
