// Package auth supplies Microsoft 365 access tokens to drivers. Tokens are
// acquired outside tfx and handed over through environment variables.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Scopes requested by drivers.
var (
	AppStudioScopes = []string{"https://dev.teams.microsoft.com/AppDefinitions.ReadWrite"}
	GraphScopes     = []string{"https://graph.microsoft.com/User.Read"}
)

// ErrNoToken is returned when no token is available for the scopes.
var ErrNoToken = errors.New("no access token")

// TokenProvider returns bearer tokens for a set of scopes.
type TokenProvider interface {
	AccessToken(ctx context.Context, scopes []string) (string, error)
	// JSONObject returns the claims of the token for scopes.
	JSONObject(ctx context.Context, scopes []string) (map[string]any, error)
}

// EnvTokenProvider reads AppStudio and Graph tokens from environment
// variables.
type EnvTokenProvider struct {
	AppStudioEnv string
	GraphEnv     string
	lookup       func(string) (string, bool)
}

// NewEnvTokenProvider creates a provider reading the given variables.
func NewEnvTokenProvider(appStudioEnv, graphEnv string) *EnvTokenProvider {
	return &EnvTokenProvider{AppStudioEnv: appStudioEnv, GraphEnv: graphEnv, lookup: os.LookupEnv}
}

// AccessToken returns the token whose audience matches scopes.
func (p *EnvTokenProvider) AccessToken(_ context.Context, scopes []string) (string, error) {
	name := p.envFor(scopes)
	if name == "" {
		return "", fmt.Errorf("%w: unsupported scopes %v", ErrNoToken, scopes)
	}
	lookup := p.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	token, ok := lookup(name)
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if !ok || token == "" {
		return "", fmt.Errorf("%w: set %s", ErrNoToken, name)
	}
	return token, nil
}

// JSONObject decodes the claims of the token for scopes. The signature is
// not verified: the token is only read for the caller's own identity.
func (p *EnvTokenProvider) JSONObject(ctx context.Context, scopes []string) (map[string]any, error) {
	token, err := p.AccessToken(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return Claims(token)
}

func (p *EnvTokenProvider) envFor(scopes []string) string {
	for _, s := range scopes {
		switch {
		case strings.HasPrefix(s, "https://dev.teams.microsoft.com"):
			return p.AppStudioEnv
		case strings.HasPrefix(s, "https://graph.microsoft.com"):
			return p.GraphEnv
		}
	}
	return ""
}

// Claims parses a JWT without verifying it and returns its claims.
func Claims(token string) (map[string]any, error) {
	tok, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims := make(map[string]any)
	for _, k := range tok.Keys() {
		var v any
		if err := tok.Get(k, &v); err != nil {
			return nil, fmt.Errorf("read claim %s: %w", k, err)
		}
		claims[k] = v
	}
	return claims, nil
}

// ObjectID returns the "oid" claim of the token for scopes.
func ObjectID(ctx context.Context, p TokenProvider, scopes []string) (string, error) {
	claims, err := p.JSONObject(ctx, scopes)
	if err != nil {
		return "", err
	}
	oid, _ := claims["oid"].(string)
	if oid == "" {
		return "", errors.New("token has no oid claim")
	}
	return oid, nil
}

// StaticTokenProvider serves fixed tokens, keyed by the first scope.
type StaticTokenProvider map[string]string

func (s StaticTokenProvider) AccessToken(_ context.Context, scopes []string) (string, error) {
	if len(scopes) > 0 {
		if t, ok := s[scopes[0]]; ok {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrNoToken, scopes)
}

func (s StaticTokenProvider) JSONObject(ctx context.Context, scopes []string) (map[string]any, error) {
	token, err := s.AccessToken(ctx, scopes)
	if err != nil {
		return nil, err
	}
	return Claims(token)
}
