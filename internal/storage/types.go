package storage

import (
	"context"
	"errors"
)

// ErrNoCookies means nothing has been persisted yet.
var ErrNoCookies = errors.New("no persisted cookies")

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"` // Unix timestamp, zero for session cookies
	Secure   bool    `json:"secure,omitempty"`
	HttpOnly bool    `json:"httpOnly,omitempty"`
	SameSite string  `json:"sameSite,omitempty"` // "Strict", "Lax", "None"
}

// CookieStore persists the cookie jar of one account between runs.
type CookieStore interface {
	Save(ctx context.Context, cookies []Cookie) error
	// Load returns ErrNoCookies when nothing has been saved.
	Load(ctx context.Context) ([]Cookie, error)
}
