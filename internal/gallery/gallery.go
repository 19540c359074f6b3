// Package gallery fetches sample and template projects hosted on GitHub:
// the online samples catalog, repository file listings and raw file
// downloads.
package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teamsfx/tfx/internal/config"
)

// ErrSampleNotFound is returned for an unknown sample id.
var ErrSampleNotFound = errors.New("sample not found")

// Default location of Teams samples.
const (
	DefaultSampleOwner = "OfficeDev"
	DefaultSampleRepo  = "TeamsFx-Samples"
	DefaultSampleRef   = "dev"
)

// SampleURLInfo locates a directory inside a GitHub repository.
type SampleURLInfo struct {
	Owner      string `json:"owner"`
	Repository string `json:"repository"`
	Ref        string `json:"ref"`
	Dir        string `json:"dir"`
}

func (i SampleURLInfo) String() string {
	return fmt.Sprintf("%s/%s@%s/%s", i.Owner, i.Repository, i.Ref, i.Dir)
}

// Sample is one entry of the online samples catalog.
type Sample struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	ShortDescription string         `json:"shortDescription"`
	FullDescription  string         `json:"fullDescription"`
	Types            []string       `json:"types,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Time             string         `json:"time,omitempty"`
	Configuration    string         `json:"configuration,omitempty"`
	ThumbnailPath    string         `json:"thumbnailPath,omitempty"`
	GifPath          string         `json:"gifPath,omitempty"`
	DownloadURLInfo  *SampleURLInfo `json:"downloadUrlInfo,omitempty"`
}

// SampleConfig is the online samples catalog.
type SampleConfig struct {
	Samples []Sample `json:"samples"`
}

// Client talks to GitHub and the samples catalog.
type Client struct {
	http        *http.Client
	configURL   string
	githubAPI   string
	rawBase     string
	token       string
	ignore      []string
	retries     int
	concurrency int

	mu           sync.Mutex
	cached       *SampleConfig
	configFlight singleflight.Group
}

// NewClient creates a Client from config. httpClient may be nil.
func NewClient(cfg config.SamplesConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		http:        httpClient,
		configURL:   cfg.ConfigURL,
		githubAPI:   strings.TrimRight(cfg.GitHubAPI, "/"),
		rawBase:     strings.TrimRight(cfg.RawBaseURL, "/"),
		token:       cfg.Token,
		ignore:      cfg.Ignore,
		retries:     cfg.Retries,
		concurrency: cfg.Concurrency,
	}
}

// Retries returns the configured per-request retry count.
func (c *Client) Retries() int { return c.retries }

// Concurrency returns the configured download fan-out.
func (c *Client) Concurrency() int { return c.concurrency }

// FetchSampleConfig downloads the samples catalog once and caches it.
// Concurrent callers share a single download.
func (c *Client) FetchSampleConfig(ctx context.Context) (*SampleConfig, error) {
	if cfg := c.cachedConfig(); cfg != nil {
		return cfg, nil
	}
	v, err, _ := c.configFlight.Do("config", func() (any, error) {
		if cfg := c.cachedConfig(); cfg != nil {
			return cfg, nil
		}
		body, err := c.get(ctx, c.configURL, c.retries)
		if err != nil {
			return nil, fmt.Errorf("fetch sample config: %w", err)
		}
		var cfg SampleConfig
		if err := json.Unmarshal(body, &cfg); err != nil {
			return nil, fmt.Errorf("parse sample config: %w", err)
		}
		c.mu.Lock()
		c.cached = &cfg
		c.mu.Unlock()
		slog.Debug("sample config loaded", "samples", len(cfg.Samples))
		return &cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SampleConfig), nil
}

func (c *Client) cachedConfig() *SampleConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

// Sample returns the catalog entry with id.
func (c *Client) Sample(ctx context.Context, id string) (*Sample, error) {
	cfg, err := c.FetchSampleConfig(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cfg.Samples {
		if cfg.Samples[i].ID == id {
			return &cfg.Samples[i], nil
		}
	}
	return nil, fmt.Errorf("%s: %w", id, ErrSampleNotFound)
}

// DownloadURLInfo locates a sample: OfficeDev/TeamsFx-Samples@dev/<id>
// unless the catalog entry names another location. Samples missing from
// the catalog get the default location.
func (c *Client) DownloadURLInfo(ctx context.Context, sampleID string) (SampleURLInfo, error) {
	info := SampleURLInfo{
		Owner:      DefaultSampleOwner,
		Repository: DefaultSampleRepo,
		Ref:        DefaultSampleRef,
		Dir:        sampleID,
	}
	s, err := c.Sample(ctx, sampleID)
	if errors.Is(err, ErrSampleNotFound) {
		slog.Debug("sample not in catalog, using default location", "sample", sampleID)
		return info, nil
	}
	if err != nil {
		return info, err
	}
	if s.DownloadURLInfo != nil {
		info = *s.DownloadURLInfo
	}
	return info, nil
}

// get performs a GET with up to retries additional attempts.
func (c *Client) get(ctx context.Context, url string, retries int) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying request", "url", url, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			break
		}
	}
	return nil, lastErr
}

type statusError struct {
	url  string
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.url, e.code)
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" && strings.HasPrefix(url, c.githubAPI) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{url: url, code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
