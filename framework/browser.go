package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/config"
	"github.com/modeldriven/crm-e2e/test/framework/pages"
	"github.com/modeldriven/crm-e2e/test/framework/retry"
)

// Browser is a playwright browser with one context, shared by the pages of a run
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext

	env    *config.Environment
	config *config.Config
	logger *slog.Logger
}

// LaunchBrowser starts playwright and a browser. When storageState names an
// existing file the context starts signed in with it.
func LaunchBrowser(ctx context.Context, env *config.Environment, cfg *config.Config, logger *slog.Logger, storageState string) (*Browser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := retry.DoWithData(ctx, func(ctx context.Context) (*playwright.Playwright, error) {
		return playwright.Run()
	},
		retry.WithMaxAttempts(2),
		retry.WithInitialDelay(time.Second),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			// the driver may be missing or mismatched; install it before the next attempt
			logger.Warn("could not start playwright, installing driver", "attempt", attempt, "error", err)
			_ = playwright.Install()
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(env.Headless),
	}
	if env.BrowserChannel != "" {
		launch.Channel = playwright.String(env.BrowserChannel)
	}
	if !env.Headless {
		launch.Args = []string{"--start-maximized"}
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	}
	if storageState != "" {
		if _, err := os.Stat(storageState); err == nil {
			contextOpts.StorageStatePath = playwright.String(storageState)
		} else {
			logger.Warn("storage state not found, starting signed out", "path", storageState)
		}
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: failed to create context: %v", ErrBrowserLaunch, err)
	}
	bctx.SetDefaultTimeout(config.Milliseconds(cfg.ActionTimeout))
	bctx.SetDefaultNavigationTimeout(config.Milliseconds(cfg.NavigationTimeout))

	logger.Info("browser started", "headless", env.Headless, "channel", env.BrowserChannel)

	return &Browser{
		pw:      pw,
		browser: browser,
		context: bctx,
		env:     env,
		config:  cfg,
		logger:  logger,
	}, nil
}

// NewPage opens a new tab in the shared context
func (b *Browser) NewPage() (playwright.Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Goto navigates page to url. When Copilot is enabled for the app its pane,
// which opens on every direct navigation, is closed again.
func (b *Browser) Goto(page playwright.Page, url string) error {
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if !b.env.CopilotEnabled || pages.IsLoginURL(page.URL()) {
		return nil
	}
	return pages.DismissCopilot(page, b.config.NavigationTimeout)
}

// SaveStorageState writes the cookies and local storage of the context to path
func (b *Browser) SaveStorageState(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if _, err := b.context.StorageState(path); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	b.logger.Info("saved browser session", "path", path)
	return nil
}

// SessionCookies returns the context cookies that apply to host
func (b *Browser) SessionCookies(host string) ([]*http.Cookie, error) {
	cookies, err := b.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return cookiesForHost(cookies, host, time.Now()), nil
}

// Screenshot saves a full-page screenshot under dir and returns its path
func (b *Browser) Screenshot(page playwright.Page, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%d.png", sanitizeFileName(name), time.Now().Unix()))
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("failed to take screenshot: %w", err)
	}
	return path, nil
}

// Close releases the context, the browser and the playwright driver
func (b *Browser) Close() error {
	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return NewCleanupError("browser", errs...)
	}
	return nil
}

// LoadStorageStateCookies reads a storage state file saved by SaveStorageState
// and returns the unexpired cookies that apply to host.
func LoadStorageStateCookies(path, host string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}

	var state playwright.StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse storage state %s: %w", path, err)
	}
	return cookiesForHost(state.Cookies, host, time.Now()), nil
}

// cookiesForHost converts browser cookies to HTTP cookies, keeping those whose
// domain matches host and that have not expired at now.
func cookiesForHost(cookies []playwright.Cookie, host string, now time.Time) []*http.Cookie {
	host = strings.ToLower(host)
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		// session cookies carry -1
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
