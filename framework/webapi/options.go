package webapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// settings collects Option values before the resty client is built
type settings struct {
	httpClient *http.Client
	cookies    []*http.Cookie
	timeout    time.Duration
	logger     *slog.Logger
	debug      bool
	err        error
}

// Option configures a Gateway
type Option func(*settings)

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout sets the per-request deadline enforced by the transport.
// Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithDebug makes resty dump requests and responses through the logger
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.debug = debug
	}
}

// WithHTTPClient uses an existing, already authenticated HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

// WithCookies attaches session cookies (for example those of a logged-in
// browser context) to every request.
func WithCookies(cookies []*http.Cookie) Option {
	return func(s *settings) {
		s.cookies = append(s.cookies, cookies...)
	}
}

// WithTokenSource authenticates every request with tokens from ts
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(s *settings) {
		s.httpClient = oauth2.NewClient(context.Background(), ts)
	}
}

// WithBearerToken authenticates every request with a fixed access token
func WithBearerToken(token string) Option {
	return func(s *settings) {
		if token == "" {
			s.err = errors.New("bearer token is empty")
			return
		}
		s.httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token, TokenType: "Bearer"},
		))
	}
}

// ClientCredentials identifies an application user registered in the tenant.
type ClientCredentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Resource is the organization URL, e.g. https://org.crm4.dynamics.com.
	// The token is requested for <Resource>/.default.
	Resource string

	// TokenURL overrides the Microsoft identity platform endpoint
	TokenURL string
}

// TokenEndpoint returns the OAuth 2.0 token URL for the tenant
func (c ClientCredentials) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.TenantID)
}

// Validate checks that all values needed for the token request are present
func (c ClientCredentials) Validate() error {
	var missing []string
	if c.TokenURL == "" && c.TenantID == "" {
		missing = append(missing, "tenant id")
	}
	if c.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.Resource == "" {
		missing = append(missing, "resource")
	}
	if len(missing) > 0 {
		return fmt.Errorf("client credentials incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// WithClientCredentials authenticates as an application user using the
// OAuth 2.0 client credentials grant. ctx governs token requests.
func WithClientCredentials(ctx context.Context, creds ClientCredentials) Option {
	return func(s *settings) {
		if err := creds.Validate(); err != nil {
			s.err = err
			return
		}
		cfg := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenEndpoint(),
			Scopes:       []string{strings.TrimRight(creds.Resource, "/") + "/.default"},
		}
		s.httpClient = cfg.Client(ctx)
	}
}
