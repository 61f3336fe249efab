package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dhruvsoni1802/dailydm/internal/config"
	"github.com/dhruvsoni1802/dailydm/internal/logging"
	"github.com/dhruvsoni1802/dailydm/internal/session"
	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// monday is 2024-01-01 09:00, a Monday
var monday = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

type fakeElement struct {
	name     string
	browser  *fakeBrowser
	enterErr error
	onClick  func()
}

func (e *fakeElement) Clear(context.Context) error {
	e.browser.actions = append(e.browser.actions, "clear "+e.name)
	return nil
}

func (e *fakeElement) Type(_ context.Context, text string) error {
	e.browser.actions = append(e.browser.actions, fmt.Sprintf("type %s %q", e.name, text))
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	e.browser.actions = append(e.browser.actions, "click "+e.name)
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) PressEnter(context.Context) error {
	e.browser.actions = append(e.browser.actions, "enter "+e.name)
	return e.enterErr
}

// fakeBrowser is an in-memory Browser. Elements are keyed by Selector.String().
type fakeBrowser struct {
	html     string
	elements map[string]*fakeElement
	cookies  []storage.Cookie
	reject   func(storage.Cookie) bool

	navigateErr   error
	screenshotErr error
	panicOn       string

	navigations []string
	reloads     int
	injected    []storage.Cookie
	actions     []string
	screenshots int
	closeCalls  int
}

func newFakeBrowser(html string) *fakeBrowser {
	return &fakeBrowser{html: html, elements: map[string]*fakeElement{}}
}

func (f *fakeBrowser) add(sel session.Selector, name string) *fakeElement {
	el := &fakeElement{name: name, browser: f}
	f.elements[sel.String()] = el
	return el
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	if f.panicOn == "navigate" {
		panic("driver crashed")
	}
	f.navigations = append(f.navigations, url)
	return f.navigateErr
}

func (f *fakeBrowser) Reload(context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeBrowser) PageSource(context.Context) (string, error) {
	return f.html, nil
}

func (f *fakeBrowser) FindElement(_ context.Context, sel session.Selector) (session.Element, error) {
	if el, ok := f.elements[sel.String()]; ok {
		return el, nil
	}
	return nil, fmt.Errorf("%w: %s", session.ErrNoSuchElement, sel)
}

func (f *fakeBrowser) WaitForElement(ctx context.Context, sel session.Selector, cond session.Condition, timeout time.Duration) (session.Element, error) {
	el, err := f.FindElement(ctx, sel)
	if errors.Is(err, session.ErrNoSuchElement) {
		return nil, fmt.Errorf("%w: %s to be %s after %s", session.ErrWaitTimeout, sel, cond, timeout)
	}
	return el, err
}

func (f *fakeBrowser) Cookies(context.Context) ([]storage.Cookie, error) {
	return f.cookies, nil
}

func (f *fakeBrowser) SetCookie(_ context.Context, c storage.Cookie) error {
	if f.reject != nil && f.reject(c) {
		return fmt.Errorf("browser rejected cookie %s", c.Name)
	}
	f.injected = append(f.injected, c)
	return nil
}

func (f *fakeBrowser) Screenshot(context.Context) ([]byte, error) {
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	f.screenshots++
	return []byte("\x89PNG"), nil
}

func (f *fakeBrowser) Close() error {
	f.closeCalls++
	return nil
}

// memStore is an in-memory CookieStore
type memStore struct {
	cookies []storage.Cookie
	saved   bool
	loadErr error
	saveErr error
}

func (m *memStore) Save(_ context.Context, cookies []storage.Cookie) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.cookies = cookies
	m.saved = true
	return nil
}

func (m *memStore) Load(context.Context) ([]storage.Cookie, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if !m.saved {
		return nil, storage.ErrNoCookies
	}
	return m.cookies, nil
}

// sleepRecorder is a Sleeper that returns immediately
type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New(&buf, slog.LevelDebug), &buf
}

func writeMessages(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func screenshotFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type testRun struct {
	runner   *Runner
	browser  *fakeBrowser
	store    *memStore
	sleeps   *sleepRecorder
	logs     *bytes.Buffer
	shotsDir string
	launched int
}

// newTestRun wires a Runner around fb with a Monday clock and instant sleeps.
func newTestRun(t *testing.T, fb *fakeBrowser, messages string) *testRun {
	t.Helper()
	dir := t.TempDir()
	logger, buf := newTestLogger()

	cfg := &config.Config{
		Username:       "me@example.com",
		Password:       "hunter2",
		TargetUser:     "alice",
		BaseURL:        "https://www.tiktok.com",
		MessagesFile:   writeMessages(t, dir, messages),
		ScreenshotsDir: filepath.Join(dir, "screenshots"),
	}

	tr := &testRun{browser: fb, store: &memStore{}, sleeps: &sleepRecorder{}, logs: buf, shotsDir: cfg.ScreenshotsDir}
	launch := func(context.Context) (Browser, error) {
		tr.launched++
		return fb, nil
	}

	r := NewRunner(cfg, launch, tr.store, logger)
	r.Now = func() time.Time { return monday }
	r.Selector.Now = r.Now
	r.Diagnostics.Now = r.Now
	r.Sleep = tr.sleeps.sleep
	r.Authenticator.Sleep = tr.sleeps.sleep
	r.Messenger.Sleep = tr.sleeps.sleep
	tr.runner = r
	return tr
}

// loggedInInbox returns a browser already signed in with every inbox element present.
func loggedInInbox() *fakeBrowser {
	fb := newFakeBrowser("<html><body>For You</body></html>")
	fb.add(SearchSelectors[0], "search")
	fb.add(ConversationSelector("alice"), "chat")
	fb.add(MessageInputSelectors[0], "input")
	return fb
}
