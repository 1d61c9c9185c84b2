package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"Agent311/internal/backend"
)

// TokenKey is the fixed storage key of the bearer credential
const TokenKey = "agentui-token"

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrLoginFailed  = errors.New("login failed")
)

// KV is the persistent storage behind the token store
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// HTTPDoer is the transport used for outbound requests
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Navigator receives the redirect to the login surface
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

// TokenStore persists the bearer credential across restarts.
// Without a backing KV (headless use) reads return "" and writes are no-ops.
type TokenStore struct {
	kv     KV
	logger *slog.Logger
}

// NewTokenStore creates a token store over kv, which may be nil
func NewTokenStore(kv KV, logger *slog.Logger) *TokenStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{kv: kv, logger: logger}
}

// Token returns the stored token or "" when none is stored
func (t *TokenStore) Token() string {
	if t == nil || t.kv == nil {
		return ""
	}
	token, ok, err := t.kv.Get(TokenKey)
	if err != nil {
		t.logger.Warn("failed to read token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// SetToken replaces any previous token
func (t *TokenStore) SetToken(token string) error {
	if t == nil || t.kv == nil {
		return nil
	}
	return t.kv.Set(TokenKey, token)
}

// Clear removes the stored token
func (t *TokenStore) Clear() error {
	if t == nil || t.kv == nil {
		return nil
	}
	return t.kv.Delete(TokenKey)
}

// LoggedIn reports whether a token is present
func (t *TokenStore) LoggedIn() bool {
	return t.Token() != ""
}

// Client decorates requests with the bearer token and traps 401 responses.
type Client struct {
	baseURL string
	http    HTTPDoer
	tokens  *TokenStore
	logger  *slog.Logger

	mu  sync.RWMutex
	nav Navigator
}

// NewClient creates an authenticated request helper for the backend at baseURL
func NewClient(baseURL string, httpClient HTTPDoer, tokens *TokenStore, logger *slog.Logger) *Client {
	if httpClient == nil {
		// No timeout: chat responses are long-lived streams
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// SetNavigator installs the login redirect target. Front ends call this once
// they exist; until then a 401 only clears the token.
func (c *Client) SetNavigator(nav Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nav = nav
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Tokens returns the token store
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// Do sends req with the bearer token when one is stored. On HTTP 401 the token
// is cleared and the navigator is sent to the login surface before Do returns.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("request unauthorized, clearing token", "method", req.Method, "path", req.URL.Path)
		if err := c.tokens.Clear(); err != nil {
			c.logger.Error("failed to clear token", "error", err)
		}
		c.toLogin()
	}
	return resp, nil
}

// Login exchanges the fixed credential for a token and stores it
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(backend.LoginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("%w: HTTP %d", ErrLoginFailed, resp.StatusCode)
	}

	var loginResp backend.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if loginResp.Token == "" {
		return fmt.Errorf("%w: empty token", ErrLoginFailed)
	}

	if err := c.tokens.SetToken(loginResp.Token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	c.logger.Info("logged in", "email", email)
	return nil
}

// Logout clears the token and returns to the login surface
func (c *Client) Logout() error {
	err := c.tokens.Clear()
	c.toLogin()
	c.logger.Info("logged out")
	return err
}

func (c *Client) toLogin() {
	c.mu.RLock()
	nav := c.nav
	c.mu.RUnlock()
	if nav != nil {
		nav.ToLogin()
	}
}
