package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

func TestRestoreReportsPartialRestoration(t *testing.T) {
	tests := []struct {
		total    int
		rejected int
		want     bool
	}{
		{total: 0, rejected: 0, want: false},
		{total: 3, rejected: 0, want: true},
		{total: 3, rejected: 2, want: true},
		{total: 3, rejected: 3, want: false},
		{total: 1, rejected: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d_rejected", tt.rejected, tt.total), func(t *testing.T) {
			logger, _ := newTestLogger()
			store := &memStore{saved: true}
			for i := range tt.total {
				store.cookies = append(store.cookies, storage.Cookie{Name: fmt.Sprintf("c%d", i), Value: "v", Domain: "tiktok.com"})
			}

			fb := newFakeBrowser("")
			fb.reject = func(c storage.Cookie) bool {
				var idx int
				fmt.Sscanf(c.Name, "c%d", &idx)
				return idx < tt.rejected
			}

			s := &SessionStore{Store: store, Logger: logger}
			assert.Equal(t, tt.want, s.Restore(context.Background(), fb))
			assert.Len(t, fb.injected, tt.total-tt.rejected)
		})
	}
}

func TestRestoreNormalizesDomains(t *testing.T) {
	logger, _ := newTestLogger()
	store := &memStore{saved: true, cookies: []storage.Cookie{
		{Name: "a", Domain: "tiktok.com"},
		{Name: "b", Domain: ".tiktok.com"},
	}}
	fb := newFakeBrowser("")

	s := &SessionStore{Store: store, Logger: logger}
	assert.True(t, s.Restore(context.Background(), fb))
	assert.Equal(t, ".tiktok.com", fb.injected[0].Domain)
	assert.Equal(t, ".tiktok.com", fb.injected[1].Domain)
}

func TestRestoreWithoutPersistedCookies(t *testing.T) {
	logger, buf := newTestLogger()
	s := &SessionStore{Store: &memStore{}, Logger: logger}

	assert.False(t, s.Restore(context.Background(), newFakeBrowser("")))
	assert.NotContains(t, buf.String(), "[ERROR]")
}

func TestRestoreUnreadableStore(t *testing.T) {
	logger, buf := newTestLogger()
	s := &SessionStore{Store: &memStore{loadErr: errors.New("corrupt")}, Logger: logger}

	assert.False(t, s.Restore(context.Background(), newFakeBrowser("")))
	assert.Contains(t, buf.String(), "[ERROR] Failed to load cookies: corrupt")
}

func TestNormalizeCookieDomain(t *testing.T) {
	tests := []struct{ in, want string }{
		{"tiktok.com", ".tiktok.com"},
		{".tiktok.com", ".tiktok.com"},
		{"www.tiktok.com", ".www.tiktok.com"},
		{"", ""},
	}
	for _, tt := range tests {
		got := NormalizeCookieDomain(storage.Cookie{Name: "x", Domain: tt.in})
		assert.Equal(t, tt.want, got.Domain, tt.in)
	}
}

func TestSaveSwallowsStoreErrors(t *testing.T) {
	logger, buf := newTestLogger()
	fb := newFakeBrowser("")
	fb.cookies = []storage.Cookie{{Name: "sessionid", Value: "abc"}}

	s := &SessionStore{Store: &memStore{saveErr: errors.New("disk full")}, Logger: logger}
	s.Save(context.Background(), fb)
	assert.Contains(t, buf.String(), "[ERROR] Failed to save cookies: disk full")

	store := &memStore{}
	(&SessionStore{Store: store, Logger: logger}).Save(context.Background(), fb)
	assert.Equal(t, fb.cookies, store.cookies)
	assert.Contains(t, buf.String(), "Cookies saved successfully")
}
