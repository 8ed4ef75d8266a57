// Package pages holds the page objects shared by every model-driven app page:
// the sign-in flow and the Copilot pane. Table-specific pages live in the
// forms and views subpackages.
package pages

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/pquerna/otp/totp"

	"github.com/modeldriven/crm-e2e/test/framework/config"
)

// codePromptTimeout bounds the wait for the MFA code prompt
const codePromptTimeout = 3 * time.Second

// loginHosts serve the interactive sign-in pages
var loginHosts = []string{
	"login.microsoftonline.com",
	"login.live.com",
}

// Credentials identify the interactive user. Secret is the base32 TOTP seed
// of the user's authenticator app and may be empty when MFA is off.
type Credentials struct {
	Username string
	Password string
	Secret   string
}

// LoginPage is the organization sign-in flow
type LoginPage struct {
	page    playwright.Page
	timeout time.Duration

	usernameInput playwright.Locator
	passwordInput playwright.Locator
	codeInput     playwright.Locator
	submitButton  playwright.Locator
	keepSignedIn  playwright.Locator
	appNavBar     playwright.Locator
}

// NewLoginPage creates the sign-in page object. timeout bounds the wait for
// the app to load once the user is signed in.
func NewLoginPage(page playwright.Page, timeout time.Duration) *LoginPage {
	return &LoginPage{
		page:          page,
		timeout:       timeout,
		usernameInput: page.GetByPlaceholder("Email, phone, or Skype"),
		passwordInput: page.GetByPlaceholder("Password"),
		codeInput:     page.GetByPlaceholder("Code"),
		submitButton:  page.Locator("input[type=submit]"),
		keepSignedIn:  page.Locator("#KmsiDescription"),
		appNavBar:     page.Locator("#siteMapPanelBodyDiv"),
	}
}

// WithCredentials signs in and waits for the app navigation bar
func (p *LoginPage) WithCredentials(creds Credentials) error {
	if err := p.usernameInput.Fill(creds.Username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := p.submitButton.Click(); err != nil {
		return fmt.Errorf("failed to submit username: %w", err)
	}

	if err := p.passwordInput.Fill(creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := p.submitButton.Click(); err != nil {
		return fmt.Errorf("failed to submit password: %w", err)
	}

	if creds.Secret != "" {
		if err := p.submitCode(creds.Secret); err != nil {
			return err
		}
	}

	if err := p.keepSignedIn.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}); err != nil {
		return fmt.Errorf("stay signed in prompt not shown: %w", err)
	}
	if err := p.submitButton.Click(); err != nil {
		return fmt.Errorf("failed to confirm stay signed in: %w", err)
	}

	if err := p.appNavBar.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(config.Milliseconds(p.timeout)),
	}); err != nil {
		return fmt.Errorf("app did not load after sign in: %w", err)
	}
	return nil
}

func (p *LoginPage) submitCode(secret string) error {
	if err := p.codeInput.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(config.Milliseconds(codePromptTimeout)),
	}); err != nil {
		return fmt.Errorf("verification code prompt not shown: %w", err)
	}

	code, err := OneTimeCode(secret, time.Now())
	if err != nil {
		return err
	}
	if err := p.codeInput.Fill(code); err != nil {
		return fmt.Errorf("failed to fill verification code: %w", err)
	}
	if err := p.submitButton.Click(); err != nil {
		return fmt.Errorf("failed to submit verification code: %w", err)
	}
	return nil
}

// OneTimeCode returns the TOTP code for secret at t. Spaces and lower case,
// as authenticator setup pages display the seed, are accepted.
func OneTimeCode(secret string, t time.Time) (string, error) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	code, err := totp.GenerateCode(secret, t)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return code, nil
}

// IsLoginURL reports whether rawURL is an interactive sign-in page
func IsLoginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range loginHosts {
		if host == h {
			return true
		}
	}
	return false
}
