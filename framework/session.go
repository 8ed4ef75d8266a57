package framework

import (
	"fmt"
	"net/http"

	"github.com/playwright-community/playwright-go"

	"github.com/modeldriven/crm-e2e/test/framework/pages"
	"github.com/modeldriven/crm-e2e/test/framework/webapi"
)

// launchBrowser is replaced in tests
var launchBrowser = LaunchBrowser

// OpenBrowser starts the browser signed in with the saved session, or returns
// the one already running.
func (f *Framework) OpenBrowser() (*Browser, error) {
	if b := f.Browser(); b != nil {
		return b, nil
	}

	// f.mu is not held while the browser starts
	b, err := launchBrowser(f.ctx, f.env, f.config, f.logger, f.env.StorageStatePath)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.browser != nil {
		existing := f.browser
		f.mu.Unlock()
		_ = b.Close()
		return existing, nil
	}
	f.browser = b
	f.mu.Unlock()
	return b, nil
}

// OpenPage opens a new tab at url
func (f *Framework) OpenPage(url string) (playwright.Page, error) {
	b, err := f.OpenBrowser()
	if err != nil {
		return nil, err
	}

	page, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	if err := b.Goto(page, url); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// Screenshot saves a screenshot of page under the results directory
func (f *Framework) Screenshot(page playwright.Page, name string) (string, error) {
	b := f.Browser()
	if b == nil {
		return "", ErrNoBrowser
	}
	return b.Screenshot(page, f.env.ResultsDir, name)
}

// Authenticate signs in through the app with the configured user, saves the
// browser session to the storage state path, and switches the Web API
// gateway to the session cookies unless client credentials are configured.
func (f *Framework) Authenticate() error {
	if !f.env.HasUserCredentials() {
		return fmt.Errorf("%w: username and password are required to sign in", ErrNoCredentials)
	}

	// sign in from a clean context so a stale session does not skip the prompts
	b, err := launchBrowser(f.ctx, f.env, f.config, f.logger, "")
	if err != nil {
		return err
	}

	f.mu.Lock()
	previous := f.browser
	f.browser = b
	f.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}

	page, err := b.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	f.logger.Info("signing in", "user", f.env.Username, "app", f.urls.Application)

	if _, err := page.Goto(f.urls.Application, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	login := pages.NewLoginPage(page, f.config.LoginTimeout)
	if err := login.WithCredentials(pages.Credentials{
		Username: f.env.Username,
		Password: f.env.Password,
		Secret:   f.env.TOTPSecret,
	}); err != nil {
		if path, shotErr := b.Screenshot(page, f.env.ResultsDir, "login-failure"); shotErr == nil {
			f.logger.Warn("sign in failed", "screenshot", path)
		}
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	if err := b.SaveStorageState(f.env.StorageStatePath); err != nil {
		return err
	}

	if f.env.HasClientCredentials() {
		return nil
	}

	cookies, err := b.SessionCookies(f.host())
	if err != nil {
		return err
	}
	return f.UseSessionCookies(cookies)
}

// UseSessionCookies points the Web API gateway at the given browser session
func (f *Framework) UseSessionCookies(cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("%w: browser session has no cookies for %s", ErrNoCredentials, f.host())
	}

	gw, err := f.buildGateway(webapi.WithCookies(cookies))
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.gateway = gw
	f.mu.Unlock()

	f.logger.Debug("web API now uses the browser session", "cookies", len(cookies))
	return nil
}
