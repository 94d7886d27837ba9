// Package client talks to a running rapport server over its JSON API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lazypower/rapport/internal/apperr"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:5000"
	httpTimeout      = 60 * time.Second
)

// Client is an authenticated API client.
type Client struct {
	http *resty.Client
}

// New creates a client for serverURL authenticating with token.
func New(serverURL, token string) *Client {
	c := resty.New().
		SetBaseURL(serverURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(httpTimeout)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// FromEnv creates a client from RAPPORT_URL (default http://127.0.0.1:5000)
// and RAPPORT_TOKEN.
func FromEnv() *Client {
	u := os.Getenv("RAPPORT_URL")
	if u == "" {
		u = defaultServerURL
	}
	return New(u, os.Getenv("RAPPORT_TOKEN"))
}

type envelope[T any] struct {
	Success bool          `json:"success"`
	Data    T             `json:"data"`
	Error   *apperr.Error `json:"error"`
}

// do sends a request and decodes the data of a success envelope into T.
// Error envelopes come back as *apperr.Error.
func do[T any](req *resty.Request, method, path string) (T, error) {
	var zero T
	resp, err := req.Execute(method, path)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return zero, fmt.Errorf("%s %s: status %d: decode response: %w", method, path, resp.StatusCode(), err)
	}
	if !env.Success {
		if env.Error != nil {
			return zero, env.Error
		}
		return zero, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode(), resp.String())
	}
	return env.Data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// SubmitInteraction records an interaction. date may be empty.
func (c *Client) SubmitInteraction(ctx context.Context, profileID, description, typ, date string) (*store.Interaction, error) {
	body := map[string]string{"profileId": profileID, "description": description}
	if typ != "" {
		body["type"] = typ
	}
	if date != "" {
		body["date"] = date
	}
	return do[*store.Interaction](c.http.R().SetContext(ctx).SetBody(body), http.MethodPost, "/api/interactions")
}

// ListProfiles returns the caller's profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]store.ProfileSummary, error) {
	return do[[]store.ProfileSummary](c.http.R().SetContext(ctx), http.MethodGet, "/api/profiles")
}

// ProfileStats returns the rollup for one profile.
func (c *Client) ProfileStats(ctx context.Context, profileID string) (*engine.Stats, error) {
	return do[*engine.Stats](c.http.R().SetContext(ctx), http.MethodGet, "/api/profiles/"+url.PathEscape(profileID)+"/stats")
}

// Pulse returns a profile's pulse series for timeframe.
func (c *Client) Pulse(ctx context.Context, profileID, timeframe string) (*engine.PulseSeries, error) {
	req := c.http.R().SetContext(ctx).SetQueryParam("profileId", profileID)
	if timeframe != "" {
		req.SetQueryParam("timeframe", timeframe)
	}
	return do[*engine.PulseSeries](req, http.MethodGet, "/api/interactions/pulse")
}
