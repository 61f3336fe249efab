package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dhruvsoni1802/dailydm/internal/session"
)

// loginMarker is the text of the login affordance shown to anonymous visitors
const loginMarker = "Log in"

const loginPath = "/login/phone-or-email/email"

var (
	usernameField = session.Name("username")
	passwordField = session.XPath("//input[@type='password']")
	submitButton  = session.XPath("//button[@type='submit']")
)

// LoginRequired reports whether page content shows the login affordance. The match is case-sensitive.
func LoginRequired(content string) bool {
	return strings.Contains(content, loginMarker)
}

// Authenticator drives the email login form
type Authenticator struct {
	BaseURL  string
	Username string
	Password string

	Sessions    *SessionStore
	Diagnostics *Diagnostics
	Delays      Delays
	Sleep       Sleeper
	Logger      *slog.Logger
}

// NeedsLogin checks the current page. An unreadable page counts as logged out.
func (a *Authenticator) NeedsLogin(ctx context.Context, b Browser) bool {
	content, err := b.PageSource(ctx)
	if err != nil {
		a.Logger.Debug("could not read page source", "error", err)
		return true
	}
	return LoginRequired(content)
}

// Authenticate logs in and persists the resulting cookies. On failure it captures a
// login_error screenshot and returns a *StageError.
func (a *Authenticator) Authenticate(ctx context.Context, b Browser) error {
	if err := a.login(ctx, b); err != nil {
		a.Logger.Error(fmt.Sprintf("Login failed: %v", err))
		path, _ := a.Diagnostics.Capture(ctx, b, CategoryLogin)
		return &StageError{Stage: StageLogin, Screenshot: path, Err: err}
	}
	return nil
}

func (a *Authenticator) login(ctx context.Context, b Browser) error {
	a.Logger.Info("Navigating to TikTok login page")
	if err := b.Navigate(ctx, a.BaseURL+loginPath); err != nil {
		return err
	}
	if err := a.Sleep(ctx, a.Delays.Settle); err != nil {
		return err
	}

	a.Logger.Info("Entering credentials")
	username, err := b.WaitForElement(ctx, usernameField, session.Present, a.Delays.LoginFormWait)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := fill(ctx, username, a.Username); err != nil {
		return err
	}

	password, err := b.FindElement(ctx, passwordField)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := fill(ctx, password, a.Password); err != nil {
		return err
	}

	submit, err := b.FindElement(ctx, submitButton)
	if err != nil {
		return fmt.Errorf("submit button: %w", err)
	}
	if err := submit.Click(ctx); err != nil {
		return err
	}

	a.Logger.Info("Login submitted, waiting for verification...")
	if err := a.Sleep(ctx, a.Delays.LoginSettle); err != nil {
		return err
	}

	if a.NeedsLogin(ctx, b) {
		a.Logger.Warn("Login may require manual intervention (CAPTCHA/2FA)")
		a.Logger.Info(fmt.Sprintf("Waiting %s for manual completion...", a.Delays.ManualLogin))
		if err := a.Sleep(ctx, a.Delays.ManualLogin); err != nil {
			return err
		}
	}

	a.Sessions.Save(ctx, b)
	a.Logger.Info("Login successful")
	return nil
}

// fill replaces the element's content with text
func fill(ctx context.Context, el session.Element, text string) error {
	if err := el.Clear(ctx); err != nil {
		return err
	}
	return el.Type(ctx, text)
}
