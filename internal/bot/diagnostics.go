package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Screenshot categories
const (
	CategoryLogin = "login_error"
	CategorySend  = "send_error"
	CategoryRun   = "error"
)

const captureTimeout = 10 * time.Second

// Diagnostics writes failure screenshots into Dir
type Diagnostics struct {
	Dir    string
	Now    func() time.Time
	Logger *slog.Logger
}

// EnsureDir creates the screenshot directory if absent
func (d *Diagnostics) EnsureDir() error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create screenshots directory: %w", err)
	}
	return nil
}

// Capture saves the current viewport as <category>_<YYYYMMDD_HHMMSS>.png and returns the path.
// It still runs when ctx is cancelled, bounded by its own timeout.
func (d *Diagnostics) Capture(ctx context.Context, b Browser, category string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
	defer cancel()

	png, err := b.Screenshot(ctx)
	if err != nil {
		d.Logger.Warn("Could not capture screenshot", "category", category, "error", err)
		return "", err
	}

	if err := d.EnsureDir(); err != nil {
		d.Logger.Warn("Could not capture screenshot", "category", category, "error", err)
		return "", err
	}

	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	path := filepath.Join(d.Dir, fmt.Sprintf("%s_%s.png", category, now.Format("20060102_150405")))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		d.Logger.Warn("Could not capture screenshot", "category", category, "error", err)
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	d.Logger.Info("Screenshot saved", "path", path)
	return path, nil
}
