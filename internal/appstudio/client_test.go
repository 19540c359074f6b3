package appstudio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teamsfx/tfx/internal/config"
)

func TestCreateAPISecretRegistration(t *testing.T) {
	var got APISecretRegistration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != registrationsPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		got.ID = "reg-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	c := NewClient(config.AppStudioConfig{Endpoint: srv.URL + "/"}, srv.Client())
	reg := APISecretRegistration{
		Description:      "my key",
		ClientSecrets:    []ClientSecret{{Value: "abcdefghij", Description: "my key", IsValueRedacted: true}},
		SpecificAppID:    "app-1",
		ApplicableToApps: AppTypeSpecificApp,
	}
	out, err := c.CreateAPISecretRegistration(context.Background(), "tok", reg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.ID != "reg-1" {
		t.Errorf("expected reg-1, got %q", out.ID)
	}
	if got.SpecificAppID != "app-1" || len(got.ClientSecrets) != 1 {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestGetAPISecretRegistration_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != registrationsPath+"/missing" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(config.AppStudioConfig{Endpoint: srv.URL}, srv.Client())
	_, err := c.GetAPISecretRegistration(context.Background(), "tok", "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
