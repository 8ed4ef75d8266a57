package framework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// Framework is the entry point for end-to-end specs against one organization
type Framework struct {
	ctx    context.Context
	logger *slog.Logger
	config *config.Config
	env    *config.Environment
	urls   config.URLs

	gateway     *webapi.Gateway
	gatewayOpts []webapi.Option
	browser     *Browser

	// Record tracking
	mu      sync.Mutex
	tracked []TrackedRecord
}

var _ FrameworkOperations = (*Framework)(nil)

// Option is a function that configures the Framework
type Option func(*Framework)

// WithLogger sets a custom logger for the framework
func WithLogger(logger *slog.Logger) Option {
	return func(f *Framework) {
		f.logger = logger
	}
}

// WithConfig sets a custom configuration for the framework
func WithConfig(cfg *config.Config) Option {
	return func(f *Framework) {
		f.config = cfg
	}
}

// WithGateway uses an existing gateway instead of building one from the environment
func WithGateway(gw *webapi.Gateway) Option {
	return func(f *Framework) {
		f.gateway = gw
	}
}

// WithGatewayOptions adds options applied whenever the framework builds a gateway
func WithGatewayOptions(opts ...webapi.Option) Option {
	return func(f *Framework) {
		f.gatewayOpts = append(f.gatewayOpts, opts...)
	}
}

// New creates a new Framework instance for the organization described by env.
// The context is used for all Web API and browser operations and should be
// cancelled to stop any in-progress operations.
//
// A gateway is built from the application user in env, or else from the
// cookies of a saved browser session. When neither exists the framework is
// still returned; call Authenticate before using the Web API.
func New(ctx context.Context, env *config.Environment, opts ...Option) (*Framework, error) {
	if env == nil || env.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	if ctx == nil {
		ctx = context.Background()
	}

	f := &Framework{
		ctx:     ctx,
		logger:  slog.Default(),
		config:  config.FromEnv(),
		env:     env,
		urls:    config.NewURLs(env),
		tracked: make([]TrackedRecord, 0),
	}

	// Apply options
	for _, opt := range opts {
		opt(f)
	}

	if f.gateway == nil {
		gw, err := f.gatewayFromEnvironment()
		switch {
		case err == nil:
			f.gateway = gw
		case errors.Is(err, ErrNoCredentials):
			f.logger.Info("no API session yet, authenticate before using the Web API")
		default:
			return nil, err
		}
	}

	return f, nil
}

// gatewayFromEnvironment builds a gateway authenticated as the application
// user, or with the cookies of the saved browser session.
func (f *Framework) gatewayFromEnvironment() (*webapi.Gateway, error) {
	if f.env.HasClientCredentials() {
		f.logger.Debug("using client credentials for the Web API", "client", f.env.ClientID)
		return f.buildGateway(webapi.WithClientCredentials(f.ctx, webapi.ClientCredentials{
			TenantID:     f.env.TenantID,
			ClientID:     f.env.ClientID,
			ClientSecret: f.env.ClientSecret,
			Resource:     f.env.BaseURL,
		}))
	}

	if _, err := os.Stat(f.env.StorageStatePath); err == nil {
		cookies, err := LoadStorageStateCookies(f.env.StorageStatePath, f.host())
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			f.logger.Debug("using saved browser session for the Web API", "path", f.env.StorageStatePath, "cookies", len(cookies))
			return f.buildGateway(webapi.WithCookies(cookies))
		}
	}

	return nil, ErrNoCredentials
}

func (f *Framework) buildGateway(auth ...webapi.Option) (*webapi.Gateway, error) {
	opts := []webapi.Option{
		webapi.WithLogger(f.logger),
		webapi.WithTimeout(f.config.HTTPTimeout),
	}
	opts = append(opts, auth...)
	opts = append(opts, f.gatewayOpts...)

	gw, err := webapi.New(f.env.WebAPIURL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Web API gateway: %w", err)
	}
	return gw, nil
}

func (f *Framework) host() string {
	u, err := url.Parse(f.env.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// api returns the gateway or ErrNoCredentials when there is no session yet
func (f *Framework) api() (*webapi.Gateway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gateway == nil {
		return nil, ErrNoCredentials
	}
	return f.gateway, nil
}

// Gateway returns the Web API gateway, or nil before authentication
func (f *Framework) Gateway() *webapi.Gateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gateway
}

// Environment returns the organization settings
func (f *Framework) Environment() *config.Environment {
	return f.env
}

// URLs returns the application URLs
func (f *Framework) URLs() config.URLs {
	return f.urls
}

// FrameworkConfig returns the framework configuration
func (f *Framework) FrameworkConfig() *config.Config {
	return f.config
}

// Context returns the context
func (f *Framework) Context() context.Context {
	return f.ctx
}

// Logger returns the logger
func (f *Framework) Logger() *slog.Logger {
	return f.logger
}

// Browser returns the running browser, or nil
func (f *Framework) Browser() *Browser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.browser
}

// TrackRecord adds a record to the list deleted by Cleanup
func (f *Framework) TrackRecord(collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, TrackedRecord{
		Collection: collection,
		ID:         id,
		CreatedAt:  time.Now(),
	})
}

// UntrackRecord removes a record from the tracked list
func (f *Framework) UntrackRecord(collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.tracked {
		if r.Collection == collection && r.ID == id {
			f.tracked = append(f.tracked[:i], f.tracked[i+1:]...)
			return nil
		}
	}
	return NewRecordError(collection, id, ErrRecordNotTracked)
}

// GetTrackedRecords returns a copy of the tracked records
func (f *Framework) GetTrackedRecords() []TrackedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]TrackedRecord, len(f.tracked))
	copy(result, f.tracked)
	return result
}

func (f *Framework) clearTracked(done []TrackedRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	remove := make(map[TrackedRecord]bool, len(done))
	for _, r := range done {
		remove[r] = true
	}
	kept := f.tracked[:0]
	for _, r := range f.tracked {
		if !remove[r] {
			kept = append(kept, r)
		}
	}
	f.tracked = kept
}
