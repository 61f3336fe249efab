package bot

import (
	"context"
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/config"
	"github.com/dhruvsoni1802/dailydm/internal/session"
	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// Browser is the driver surface the workflow needs. *session.Session implements it.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	PageSource(ctx context.Context) (string, error)
	FindElement(ctx context.Context, sel session.Selector) (session.Element, error)
	WaitForElement(ctx context.Context, sel session.Selector, cond session.Condition, timeout time.Duration) (session.Element, error)
	Cookies(ctx context.Context) ([]storage.Cookie, error)
	SetCookie(ctx context.Context, cookie storage.Cookie) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

var _ Browser = (*session.Session)(nil)

// Launcher starts a fresh browser for one run
type Launcher func(ctx context.Context) (Browser, error)

// ChromiumLauncher launches a local Chromium configured from cfg.
func ChromiumLauncher(cfg *config.Config) Launcher {
	return func(ctx context.Context) (Browser, error) {
		binary, err := config.FindChromium(cfg.ChromiumPath)
		if err != nil {
			return nil, err
		}
		s, err := session.Launch(ctx, session.LaunchOptions{
			BinaryPath:   binary,
			Headless:     cfg.Headless,
			WindowWidth:  cfg.WindowWidth,
			WindowHeight: cfg.WindowHeight,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Sleeper blocks for a fixed delay, returning early with ctx.Err() on cancellation.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delays are the fixed waits between UI steps.
type Delays struct {
	Settle         time.Duration // after loading the home page, reloading, opening login, searching, opening a chat
	LoginSettle    time.Duration // after submitting credentials
	ManualLogin    time.Duration // when the login form is still shown after submitting
	MessagesSettle time.Duration // after opening the inbox
	Typing         time.Duration // between typing and sending
	AfterSend      time.Duration
	Teardown       time.Duration

	LoginFormWait time.Duration // bounded wait for the username field
	ChatWait      time.Duration // bounded wait for the conversation entry
}

// DefaultDelays returns the stock timings.
func DefaultDelays() Delays {
	return Delays{
		Settle:         3 * time.Second,
		LoginSettle:    10 * time.Second,
		ManualLogin:    60 * time.Second,
		MessagesSettle: 5 * time.Second,
		Typing:         time.Second,
		AfterSend:      2 * time.Second,
		Teardown:       2 * time.Second,
		LoginFormWait:  10 * time.Second,
		ChatWait:       15 * time.Second,
	}
}

// DelaysFromConfig applies the configurable delays over the defaults.
func DelaysFromConfig(cfg *config.Config) Delays {
	d := DefaultDelays()
	if cfg.SettleDelay > 0 {
		d.Settle = cfg.SettleDelay
	}
	if cfg.LoginSettleDelay > 0 {
		d.LoginSettle = cfg.LoginSettleDelay
	}
	if cfg.ManualLoginDelay > 0 {
		d.ManualLogin = cfg.ManualLoginDelay
	}
	return d
}
