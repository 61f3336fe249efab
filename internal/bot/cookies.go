package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// SessionStore carries the browser's cookies across runs. Neither method returns an error:
// failures are logged and the run goes on.
type SessionStore struct {
	Store  storage.CookieStore
	Logger *slog.Logger
}

// Save persists every cookie the browser currently holds.
func (s *SessionStore) Save(ctx context.Context, b Browser) {
	cookies, err := b.Cookies(ctx)
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to save cookies: %v", err))
		return
	}
	if err := s.Store.Save(ctx, cookies); err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to save cookies: %v", err))
		return
	}
	s.Logger.Info("Cookies saved successfully", "count", len(cookies))
}

// Restore injects the persisted cookies and reports whether at least one was accepted.
func (s *SessionStore) Restore(ctx context.Context, b Browser) bool {
	cookies, err := s.Store.Load(ctx)
	if errors.Is(err, storage.ErrNoCookies) {
		s.Logger.Debug("no persisted cookies")
		return false
	}
	if err != nil {
		s.Logger.Error(fmt.Sprintf("Failed to load cookies: %v", err))
		return false
	}

	restored := 0
	for _, cookie := range cookies {
		cookie = NormalizeCookieDomain(cookie)
		if err := b.SetCookie(ctx, cookie); err != nil {
			s.Logger.Warn(fmt.Sprintf("Could not add cookie: %v", err), "name", cookie.Name)
			continue
		}
		restored++
	}

	if restored == 0 {
		s.Logger.Warn("No cookies could be restored", "total", len(cookies))
		return false
	}
	s.Logger.Info("Cookies loaded successfully", "restored", restored, "total", len(cookies))
	return true
}

// NormalizeCookieDomain prefixes a non-empty domain with "." so the cookie applies to subdomains.
func NormalizeCookieDomain(c storage.Cookie) storage.Cookie {
	if c.Domain != "" && !strings.HasPrefix(c.Domain, ".") {
		c.Domain = "." + c.Domain
	}
	return c
}
