package ebay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

const (
	// Sandbox URLs
	SandboxAuthURL    = "https://auth.sandbox.ebay.com/oauth2/authorize"
	SandboxTokenURL   = "https://api.sandbox.ebay.com/identity/v1/oauth2/token"
	SandboxAPIBaseURL = "https://api.sandbox.ebay.com"

	// Production URLs
	ProductionAuthURL    = "https://auth.ebay.com/oauth2/authorize"
	ProductionTokenURL   = "https://api.ebay.com/identity/v1/oauth2/token"
	ProductionAPIBaseURL = "https://api.ebay.com"
)

// ErrNotAuthenticated is returned by API calls made before the OAuth flow completed
var ErrNotAuthenticated = errors.New("ebay client not authenticated")

// Config holds eBay API configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Sandbox      bool
	Scopes       []string

	MarketplaceID       string
	Currency            string
	CategoryID          string
	MerchantLocationKey string
	FulfillmentPolicyID string
	PaymentPolicyID     string
	ReturnPolicyID      string

	// BaseURL and TokenURL override the environment endpoints when set
	BaseURL  string
	TokenURL string
}

// TokenStore persists the OAuth token between restarts
type TokenStore interface {
	SaveToken(ctx context.Context, token *oauth2.Token) error
	LoadToken(ctx context.Context) (*oauth2.Token, error)
}

// APIError is a non-2xx answer from the eBay API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ebay API error %d: %s", e.StatusCode, e.Body)
}

// Client is the eBay API client. It is safe for concurrent use.
type Client struct {
	config      Config
	httpClient  *http.Client
	oauthConfig *oauth2.Config
	baseURL     string
	store       TokenStore

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewClient creates a new eBay API client
func NewClient(cfg Config) *Client {
	authURL, tokenURL, baseURL := ProductionAuthURL, ProductionTokenURL, ProductionAPIBaseURL
	if cfg.Sandbox {
		authURL, tokenURL, baseURL = SandboxAuthURL, SandboxTokenURL, SandboxAPIBaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	if cfg.TokenURL != "" {
		tokenURL = cfg.TokenURL
	}
	if cfg.MarketplaceID == "" {
		cfg.MarketplaceID = "EBAY_US"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{
			"https://api.ebay.com/oauth/api_scope",
			"https://api.ebay.com/oauth/api_scope/sell.inventory",
			"https://api.ebay.com/oauth/api_scope/sell.inventory.readonly",
			"https://api.ebay.com/oauth/api_scope/sell.account.readonly",
		}
	}

	return &Client{
		config: cfg,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// WithTokenStore makes the client persist tokens it obtains or refreshes
func (c *Client) WithTokenStore(store TokenStore) *Client {
	c.store = store
	return c
}

// WithHTTPClient replaces the transport used for API calls
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Restore loads a previously stored token, if any
func (c *Client) Restore(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	token, err := c.store.LoadToken(ctx)
	if err != nil {
		return false, fmt.Errorf("load stored token: %w", err)
	}
	if token == nil {
		return false, nil
	}
	c.SetToken(token)
	return true, nil
}

// Marketplace returns the configured marketplace id
func (c *Client) Marketplace() string {
	return c.config.MarketplaceID
}

// AuthURL returns the OAuth authorization URL
func (c *Client) AuthURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an auth code for tokens and persists them
func (c *Client) ExchangeCode(ctx context.Context, code string) error {
	token, err := c.oauthConfig.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}
	return c.storeToken(ctx, token)
}

// SetToken sets the OAuth token directly
func (c *Client) SetToken(token *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current token
func (c *Client) Token() *oauth2.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Disconnect forgets the token, including the stored copy when the token
// store can clear it
func (c *Client) Disconnect(ctx context.Context) error {
	c.SetToken(nil)
	if clearer, ok := c.store.(interface {
		ClearToken(ctx context.Context) error
	}); ok {
		return clearer.ClearToken(ctx)
	}
	return nil
}

// IsAuthenticated reports whether a token is held. An expired access token
// still counts when it can be refreshed.
func (c *Client) IsAuthenticated() bool {
	token := c.Token()
	return token != nil && (token.Valid() || token.RefreshToken != "")
}

// IsConfigured returns true if eBay API credentials are set
func (c *Client) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

func (c *Client) storeToken(ctx context.Context, token *oauth2.Token) error {
	c.SetToken(token)
	if c.store == nil {
		return nil
	}
	if err := c.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// freshToken returns a valid access token, refreshing and persisting it when
// the current one expired
func (c *Client) freshToken(ctx context.Context) (*oauth2.Token, error) {
	current := c.Token()
	if current == nil {
		return nil, ErrNotAuthenticated
	}
	if current.Valid() {
		return current, nil
	}

	token, err := c.oauthConfig.TokenSource(c.oauthContext(ctx), current).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.AccessToken != current.AccessToken {
		if err := c.storeToken(ctx, token); err != nil {
			return nil, err
		}
	}
	return token, nil
}

// doJSON makes an authenticated API request. in is marshalled as the body
// when non-nil; out receives the decoded response when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	token, err := c.freshToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Language", "en-US")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
