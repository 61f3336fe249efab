package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/config"
	"github.com/dhruvsoni1802/dailydm/internal/logging"
	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// Outcome is the result of one run
type Outcome struct {
	Success    bool
	Err        error
	Selection  Selection
	Screenshot string // diagnostic written on failure, if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// ExitCode maps the outcome to the process exit status
func (o Outcome) ExitCode() int {
	if o.Success {
		return 0
	}
	return 1
}

func (o Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Settings are the identifiers a run cannot start without
type Settings struct {
	Username   string
	Password   string
	TargetUser string
}

// Missing names the unset settings by their environment variable
func (s Settings) Missing() []string {
	cfg := config.Config{Username: s.Username, Password: s.Password, TargetUser: s.TargetUser}
	return cfg.MissingCredentials()
}

// Runner sequences one complete run: select, launch, restore, authenticate, send, tear down.
type Runner struct {
	Settings Settings
	BaseURL  string

	Selector      *MessageSelector
	Sessions      *SessionStore
	Authenticator *Authenticator
	Messenger     *Messenger
	Diagnostics   *Diagnostics

	Launch Launcher
	Delays Delays
	Sleep  Sleeper
	Now    func() time.Time
	Logger *slog.Logger
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg *config.Config, launch Launcher, store storage.CookieStore, logger *slog.Logger) *Runner {
	delays := DelaysFromConfig(cfg)
	diagnostics := &Diagnostics{Dir: cfg.ScreenshotsDir, Logger: logger}
	sessions := &SessionStore{Store: store, Logger: logger}

	return &Runner{
		Settings: Settings{Username: cfg.Username, Password: cfg.Password, TargetUser: cfg.TargetUser},
		BaseURL:  cfg.BaseURL,

		Selector: &MessageSelector{Path: cfg.MessagesFile, Logger: logger},
		Sessions: sessions,
		Authenticator: &Authenticator{
			BaseURL:     cfg.BaseURL,
			Username:    cfg.Username,
			Password:    cfg.Password,
			Sessions:    sessions,
			Diagnostics: diagnostics,
			Delays:      delays,
			Sleep:       Sleep,
			Logger:      logger,
		},
		Messenger: &Messenger{
			BaseURL:     cfg.BaseURL,
			Target:      cfg.TargetUser,
			Diagnostics: diagnostics,
			Delays:      delays,
			Sleep:       Sleep,
			Logger:      logger,
		},
		Diagnostics: diagnostics,

		Launch: launch,
		Delays: delays,
		Sleep:  Sleep,
		Now:    time.Now,
		Logger: logger,
	}
}

// Run performs one run. The browser, once launched, is always closed exactly once,
// including after a panic or cancellation of ctx.
func (r *Runner) Run(ctx context.Context) (out Outcome) {
	out.StartedAt = r.Now()
	r.Logger.Info(strings.Repeat("=", 60))
	r.Logger.Info("Starting TikTok automation")

	if missing := r.Settings.Missing(); len(missing) > 0 {
		r.Logger.Error("Missing required environment variables", "missing", strings.Join(missing, ","))
		out.Err = fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
		out.FinishedAt = r.Now()
		return out
	}

	var b Browser
	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, b, &out, fmt.Errorf("unexpected panic: %v", p))
		}
		if b != nil {
			r.teardown(ctx, b)
		}
		out.FinishedAt = r.Now()
	}()

	sel, err := r.Selector.Select()
	if err != nil {
		r.fail(ctx, nil, &out, err)
		return out
	}
	out.Selection = sel

	r.Logger.Info("Initializing browser")
	b, err = r.Launch(ctx)
	if err != nil {
		b = nil
		r.fail(ctx, nil, &out, fmt.Errorf("failed to launch browser: %w", err))
		return out
	}

	if err := r.execute(ctx, b, sel.Message); err != nil {
		r.fail(ctx, b, &out, err)
		return out
	}

	out.Success = true
	logging.Success(ctx, r.Logger, "Automation completed successfully")
	return out
}

func (r *Runner) execute(ctx context.Context, b Browser, message string) error {
	r.Logger.Info("Navigating to TikTok")
	if err := b.Navigate(ctx, r.BaseURL); err != nil {
		return err
	}
	if err := r.Sleep(ctx, r.Delays.Settle); err != nil {
		return err
	}

	if r.Sessions.Restore(ctx, b) {
		if err := b.Reload(ctx); err != nil {
			return err
		}
		if err := r.Sleep(ctx, r.Delays.Settle); err != nil {
			return err
		}
	}

	if r.Authenticator.NeedsLogin(ctx, b) {
		r.Logger.Info("Login required")
		if err := r.Authenticator.Authenticate(ctx, b); err != nil {
			return err
		}
	} else {
		r.Logger.Info("Already logged in via cookies")
	}

	return r.Messenger.Send(ctx, b, message)
}

// fail records err on out. Stage failures already carry their screenshot; anything
// else gets a generic one when a browser is up.
func (r *Runner) fail(ctx context.Context, b Browser, out *Outcome, err error) {
	out.Success = false
	out.Err = err
	r.Logger.Error(fmt.Sprintf("Automation failed: %v", err))

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		out.Screenshot = stageErr.Screenshot
		return
	}
	if b != nil {
		if path, captureErr := r.Diagnostics.Capture(ctx, b, CategoryRun); captureErr == nil {
			out.Screenshot = path
		}
	}
}

func (r *Runner) teardown(ctx context.Context, b Browser) {
	_ = r.Sleep(ctx, r.Delays.Teardown)
	if err := b.Close(); err != nil {
		r.Logger.Warn("Error while closing browser", "error", err)
	}
	r.Logger.Info("Browser closed")
}
