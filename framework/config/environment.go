package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

// DefaultAPIVersion is the Web API version used when none is configured
const DefaultAPIVersion = "9.2"

// DefaultStorageStatePath is where the signed-in browser state is saved
const DefaultStorageStatePath = "playwright/.auth/user.json"

// DefaultResultsDir receives reports and failure screenshots
const DefaultResultsDir = "test-results"

// Environment variables read by LoadEnvironment when no file is present
const (
	EnvBaseURL        = "CRM_E2E_BASE_URL"
	EnvAPIVersion     = "CRM_E2E_API_VERSION"
	EnvAppID          = "CRM_E2E_APP_ID"
	EnvUsername       = "CRM_E2E_USERNAME"
	EnvPassword       = "CRM_E2E_PASSWORD"
	EnvTOTPSecret     = "CRM_E2E_SECRET"
	EnvCopilotEnabled = "CRM_E2E_COPILOT_ENABLED"
	EnvHeadless       = "CRM_E2E_HEADLESS"
	EnvBrowserChannel = "CRM_E2E_BROWSER_CHANNEL"
	EnvStorageState   = "CRM_E2E_STORAGE_STATE"
	EnvResultsDir     = "CRM_E2E_RESULTS_DIR"
	EnvTenantID       = "CRM_E2E_TENANT_ID"
	EnvClientID       = "CRM_E2E_CLIENT_ID"
	EnvClientSecret   = "CRM_E2E_CLIENT_SECRET"
)

var (
	// ErrBaseURLRequired indicates the environment has no organization URL
	ErrBaseURLRequired = errors.New("base URL is required")

	// ErrNoCredentials indicates neither a user login nor an application user is configured
	ErrNoCredentials = errors.New("no credentials configured")
)

// Environment describes the organization under test and how to sign in to it.
// It is loaded once at startup and passed explicitly to whatever needs it.
type Environment struct {
	// BaseURL is the organization root, e.g. https://org.crm4.dynamics.com
	BaseURL    string `json:"baseUrl"`
	APIVersion string `json:"apiVersion,omitempty"`
	AppID      string `json:"appId"`

	// Interactive sign-in
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	TOTPSecret string `json:"secret,omitempty"`

	// Application user for API-only runs
	TenantID     string `json:"tenantId,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`

	// Browser
	CopilotEnabled   bool   `json:"copilotEnabled,omitempty"`
	Headless         bool   `json:"headless"`
	BrowserChannel   string `json:"browserChannel,omitempty"`
	StorageStatePath string `json:"storageStatePath,omitempty"`
	ResultsDir       string `json:"resultsDir,omitempty"`
}

// DefaultEnvironment returns an Environment with defaults and no organization
func DefaultEnvironment() *Environment {
	return &Environment{
		APIVersion:       DefaultAPIVersion,
		Headless:         true,
		StorageStatePath: DefaultStorageStatePath,
		ResultsDir:       DefaultResultsDir,
	}
}

// LoadEnvironment reads path as YAML or JSON when it exists; otherwise the
// values come from CRM_E2E_* environment variables. An empty path always uses
// the environment. Unset values keep their defaults.
func LoadEnvironment(path string) (*Environment, error) {
	env := DefaultEnvironment()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			slog.Info("loading environment from file", "path", path)
			if err := yaml.Unmarshal(data, env); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			env.normalize()
			return env, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	slog.Info("loading environment from variables")
	env.fromVariables()
	env.normalize()
	return env, nil
}

func (e *Environment) fromVariables() {
	strs := []struct {
		env string
		dst *string
	}{
		{EnvBaseURL, &e.BaseURL},
		{EnvAPIVersion, &e.APIVersion},
		{EnvAppID, &e.AppID},
		{EnvUsername, &e.Username},
		{EnvPassword, &e.Password},
		{EnvTOTPSecret, &e.TOTPSecret},
		{EnvBrowserChannel, &e.BrowserChannel},
		{EnvStorageState, &e.StorageStatePath},
		{EnvResultsDir, &e.ResultsDir},
		{EnvTenantID, &e.TenantID},
		{EnvClientID, &e.ClientID},
		{EnvClientSecret, &e.ClientSecret},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	e.CopilotEnabled = strings.EqualFold(os.Getenv(EnvCopilotEnabled), "true")
	if v := os.Getenv(EnvHeadless); v != "" {
		e.Headless = !strings.EqualFold(v, "false")
	}
}

func (e *Environment) normalize() {
	e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	e.APIVersion = strings.TrimPrefix(strings.TrimSpace(e.APIVersion), "v")
	if e.APIVersion == "" {
		e.APIVersion = DefaultAPIVersion
	}
	if e.StorageStatePath == "" {
		e.StorageStatePath = DefaultStorageStatePath
	}
	if e.ResultsDir == "" {
		e.ResultsDir = DefaultResultsDir
	}
}

// HasUserCredentials reports whether an interactive sign-in is possible
func (e *Environment) HasUserCredentials() bool {
	return e.Username != "" && e.Password != ""
}

// HasClientCredentials reports whether an application user is configured
func (e *Environment) HasClientCredentials() bool {
	return e.TenantID != "" && e.ClientID != "" && e.ClientSecret != ""
}

// WebAPIURL returns the Web API root without a trailing slash
func (e *Environment) WebAPIURL() string {
	return e.BaseURL + "/api/data/v" + e.APIVersion
}

// Validate checks that the environment can reach and sign in to an organization
func (e *Environment) Validate() error {
	if e.BaseURL == "" {
		return ErrBaseURLRequired
	}
	u, err := url.Parse(e.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", e.BaseURL)
	}
	if !e.HasUserCredentials() && !e.HasClientCredentials() {
		return ErrNoCredentials
	}
	return nil
}

// Redacted returns a copy safe to log
func (e *Environment) Redacted() Environment {
	cp := *e
	if cp.Password != "" {
		cp.Password = "***"
	}
	if cp.TOTPSecret != "" {
		cp.TOTPSecret = "***"
	}
	if cp.ClientSecret != "" {
		cp.ClientSecret = "***"
	}
	return cp
}
