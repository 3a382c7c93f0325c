package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sumire/bebop/internal/domain"
)

const maxErrorBody = 4 << 10

// Client talks to the forum API. Requests carry the bearer token set with
// SetToken until ClearToken is called.
type Client struct {
	baseURL *url.URL
	base    *http.Client

	mu     sync.RWMutex
	authed *http.Client
}

// New creates a Client rooted at baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, base: httpClient}, nil
}

// SetToken makes subsequent requests send "Authorization: Bearer <token>".
func (c *Client) SetToken(token string) {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})

	c.mu.Lock()
	c.authed = oauth2.NewClient(ctx, src)
	c.mu.Unlock()
}

// ClearToken drops the Authorization header from subsequent requests.
func (c *Client) ClearToken() {
	c.mu.Lock()
	c.authed = nil
	c.mu.Unlock()
}

// HasToken reports whether requests currently carry a bearer token.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authed != nil
}

// URL resolves a path relative to the API root.
func (c *Client) URL(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
}

func (c *Client) httpClient() *http.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.authed != nil {
		return c.authed
	}
	return c.base
}

// MeResponse is the raw body of GET api/v1/me.
type MeResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

// Me fetches the identity bound to the current token.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var resp MeResponse
	if err := c.do(ctx, http.MethodGet, "api/v1/me", nil, &resp); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &resp, nil
}

// SetName chooses the display name of the current user.
func (c *Client) SetName(ctx context.Context, name string) error {
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPut, "api/v1/me/name", body, nil); err != nil {
		return fmt.Errorf("set name: %w", err)
	}
	return nil
}

// Config fetches the forum's config.json.
func (c *Client) Config(ctx context.Context) (*domain.SiteConfig, error) {
	var cfg domain.SiteConfig
	if err := c.do(ctx, http.MethodGet, "config.json", nil, &cfg); err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return &cfg, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrNetwork, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	httpErr := &domain.HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, httpErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrNetwork, httpErr)
}
