package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	tok := jwt.New()
	for k, v := range claims {
		if err := tok.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	data, err := jwt.Sign(tok, jwt.WithInsecureNoSignature())
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestEnvTokenProvider(t *testing.T) {
	graph := unsignedToken(t, map[string]any{"oid": "user-1", "name": "Ada"})
	t.Setenv("TEST_APPSTUDIO_TOKEN", "Bearer studio-token")
	t.Setenv("TEST_GRAPH_TOKEN", graph)
	p := NewEnvTokenProvider("TEST_APPSTUDIO_TOKEN", "TEST_GRAPH_TOKEN")
	ctx := context.Background()

	token, err := p.AccessToken(ctx, AppStudioScopes)
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "studio-token" {
		t.Errorf("expected studio-token, got %q", token)
	}

	oid, err := ObjectID(ctx, p, GraphScopes)
	if err != nil {
		t.Fatalf("ObjectID: %v", err)
	}
	if oid != "user-1" {
		t.Errorf("expected user-1, got %q", oid)
	}
}

func TestEnvTokenProvider_Missing(t *testing.T) {
	t.Setenv("TEST_APPSTUDIO_TOKEN", "")
	p := NewEnvTokenProvider("TEST_APPSTUDIO_TOKEN", "TEST_GRAPH_TOKEN")

	if _, err := p.AccessToken(context.Background(), AppStudioScopes); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
	if _, err := p.AccessToken(context.Background(), []string{"https://example.com/.default"}); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken for unknown scope, got %v", err)
	}
}

func TestClaims_Invalid(t *testing.T) {
	if _, err := Claims("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestObjectID_NoClaim(t *testing.T) {
	p := StaticTokenProvider{GraphScopes[0]: unsignedToken(t, map[string]any{"name": "Ada"})}
	if _, err := ObjectID(context.Background(), p, GraphScopes); err == nil {
		t.Error("expected error without oid")
	}
}
