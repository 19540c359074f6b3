// Package appstudio is a client for the Teams Developer Portal (AppStudio)
// API secret registrations.
package appstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teamsfx/tfx/internal/config"
)

const registrationsPath = "/api/v1.0/apiSecretRegistrations"

// App types a registration applies to.
const (
	AppTypeSpecificApp = "SpecificApp"
	AppTypeAnyApp      = "AnyApp"
)

// Access types for users managing a registration.
const (
	AccessRead      = "Read"
	AccessReadWrite = "ReadWrite"
)

// ClientSecret is one secret value of a registration.
type ClientSecret struct {
	ID              string `json:"id,omitempty"`
	Value           string `json:"value"`
	Description     string `json:"description"`
	Priority        int    `json:"priority"`
	IsValueRedacted bool   `json:"isValueRedacted"`
}

// ManageableByUser grants a user access to a registration.
type ManageableByUser struct {
	UserID     string `json:"userId"`
	AccessType string `json:"accessType"`
}

// APISecretRegistration is the payload of the apiSecretRegistrations API.
type APISecretRegistration struct {
	ID                        string             `json:"id,omitempty"`
	Description               string             `json:"description"`
	ClientSecrets             []ClientSecret     `json:"clientSecrets"`
	TenantID                  string             `json:"tenantId,omitempty"`
	TargetURLsShouldStartWith []string           `json:"targetUrlsShouldStartWith"`
	SpecificAppID             string             `json:"specificAppId,omitempty"`
	ApplicableToApps          string             `json:"applicableToApps,omitempty"`
	TargetAudience            string             `json:"targetAudience,omitempty"`
	ManageableByUser          []ManageableByUser `json:"manageableByUser,omitempty"`
}

// APIError is a non-2xx answer from AppStudio.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appstudio %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an AppStudio 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the AppStudio REST API with a caller-supplied token.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a Client from config. httpClient may be nil.
func NewClient(cfg config.AppStudioConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout.Duration()
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{http: httpClient, endpoint: strings.TrimRight(cfg.Endpoint, "/")}
}

// CreateAPISecretRegistration registers reg and returns the stored
// registration, including its id.
func (c *Client) CreateAPISecretRegistration(ctx context.Context, token string, reg APISecretRegistration) (*APISecretRegistration, error) {
	var out APISecretRegistration
	if err := c.do(ctx, token, http.MethodPost, registrationsPath, reg, &out); err != nil {
		return nil, err
	}
	slog.Debug("api secret registration created", "id", out.ID)
	return &out, nil
}

// GetAPISecretRegistration fetches a registration by id.
func (c *Client) GetAPISecretRegistration(ctx context.Context, token, id string) (*APISecretRegistration, error) {
	var out APISecretRegistration
	if err := c.do(ctx, token, http.MethodGet, registrationsPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("appstudio %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read appstudio response: %w", err)
	}
	slog.Debug("appstudio call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode appstudio response: %w", err)
	}
	return nil
}
