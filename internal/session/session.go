package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dhruvsoni1802/dailydm/internal/browser"
	"github.com/dhruvsoni1802/dailydm/internal/cdp"
	"github.com/dhruvsoni1802/dailydm/internal/storage"
)

// LaunchOptions configures the browser behind a Session
type LaunchOptions struct {
	BinaryPath   string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	ReadyTimeout time.Duration
}

// Session drives the single page of a browser it owns
type Session struct {
	client  *cdp.Client
	process *browser.Process

	loadTimeout  time.Duration
	pollInterval time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newSession(client *cdp.Client, process *browser.Process) *Session {
	return &Session{
		client:       client,
		process:      process,
		loadTimeout:  DefaultLoadTimeout,
		pollInterval: DefaultPollInterval,
	}
}

// Launch starts a browser, attaches to its first page and enables the
// domains the session relies on. The process is stopped on any failure.
func Launch(ctx context.Context, opts LaunchOptions) (*Session, error) {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}

	proc, err := browser.NewProcess(opts.BinaryPath, browser.Options{
		Headless:     opts.Headless,
		WindowWidth:  opts.WindowWidth,
		WindowHeight: opts.WindowHeight,
	})
	if err != nil {
		return nil, err
	}

	if err := proc.Start(); err != nil {
		return nil, err
	}

	fail := func(err error) (*Session, error) {
		if stopErr := proc.Stop(); stopErr != nil {
			slog.Warn("failed to stop browser after launch error", "error", stopErr)
		}
		return nil, err
	}

	if err := proc.WaitReady(ctx, opts.ReadyTimeout); err != nil {
		return fail(err)
	}

	wsURL, err := waitForPage(ctx, proc.DebugPort, opts.ReadyTimeout)
	if err != nil {
		return fail(err)
	}

	client := cdp.NewClient(wsURL)
	if err := client.Connect(ctx); err != nil {
		return fail(err)
	}

	s := newSession(client, proc)
	for _, method := range []string{"Page.enable", "Network.enable"} {
		if _, err := client.Send(ctx, method, nil); err != nil {
			client.Close()
			return fail(fmt.Errorf("failed to enable domain: %w", err))
		}
	}

	slog.Debug("browser session ready", "pid", proc.GetPID(), "debug_url", proc.GetDebugURL())
	return s, nil
}

// waitForPage polls target discovery until the initial tab shows up.
func waitForPage(ctx context.Context, port int, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		wsURL, err := cdp.GetPageWebSocketURL(ctx, "127.0.0.1", strconv.Itoa(port))
		if err == nil {
			return wsURL, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no page target on port %d: %w", port, err)
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Navigate loads url and waits for the document to finish loading
func (s *Session) Navigate(ctx context.Context, url string) error {
	before, err := s.pageState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page state: %w", err)
	}

	result, err := s.client.Send(ctx, "Page.navigate", map[string]any{"url": url})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	var response struct {
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return fmt.Errorf("failed to parse navigate response: %w", err)
	}
	if response.ErrorText != "" {
		return fmt.Errorf("failed to navigate to %s: %s", url, response.ErrorText)
	}

	// Same-document navigations keep the loader and the time origin
	return s.waitLoaded(ctx, before.Origin, response.LoaderID != "")
}

// Reload reloads the current page and waits for it to finish loading
func (s *Session) Reload(ctx context.Context) error {
	before, err := s.pageState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read page state: %w", err)
	}

	if _, err := s.client.Send(ctx, "Page.reload", nil); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return s.waitLoaded(ctx, before.Origin, true)
}

type pageState struct {
	State  string  `json:"state"`
	Origin float64 `json:"origin"`
}

func (s *Session) pageState(ctx context.Context) (pageState, error) {
	var state pageState
	raw, err := s.evaluate(ctx, "({state: document.readyState, origin: performance.timeOrigin})")
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, fmt.Errorf("failed to parse page state: %w", err)
	}
	return state, nil
}

// waitLoaded polls until readyState is complete, on a new document when newDocument is set.
// Evaluation errors are expected while the old execution context is torn down.
func (s *Session) waitLoaded(ctx context.Context, prevOrigin float64, newDocument bool) error {
	deadline := time.Now().Add(s.loadTimeout)
	for {
		state, err := s.pageState(ctx)
		if err == nil && state.State == "complete" && (!newDocument || state.Origin != prevOrigin) {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: page load after %s", ErrWaitTimeout, s.loadTimeout)
		}
		if err := sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

// evaluate runs expression in the page and returns its JSON value
func (s *Session) evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	params := map[string]any{
		"expression":    expression,
		"returnByValue": true,
	}

	result, err := s.client.Send(ctx, "Runtime.evaluate", params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute javascript: %w", err)
	}

	var response struct {
		Result           remoteObject    `json:"result"`
		ExceptionDetails json.RawMessage `json:"exceptionDetails,omitempty"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse execution result: %w", err)
	}
	if len(response.ExceptionDetails) > 0 {
		return nil, fmt.Errorf("javascript execution error: %s", response.ExceptionDetails)
	}

	return response.Result.Value, nil
}

// PageSource returns the serialized DOM of the current page
func (s *Session) PageSource(ctx context.Context) (string, error) {
	// Step 1: Get document
	result, err := s.client.Send(ctx, "DOM.getDocument", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get document: %w", err)
	}

	var docResponse struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}

	if err := json.Unmarshal(result, &docResponse); err != nil {
		return "", fmt.Errorf("failed to parse document response: %w", err)
	}

	// Step 2: Get outer HTML
	result, err = s.client.Send(ctx, "DOM.getOuterHTML", map[string]any{
		"nodeId": docResponse.Root.NodeID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get outer HTML: %w", err)
	}

	var htmlResponse struct {
		OuterHTML string `json:"outerHTML"`
	}

	if err := json.Unmarshal(result, &htmlResponse); err != nil {
		return "", fmt.Errorf("failed to parse HTML response: %w", err)
	}

	return htmlResponse.OuterHTML, nil
}

// Cookies returns every cookie in the browser
func (s *Session) Cookies(ctx context.Context) ([]storage.Cookie, error) {
	result, err := s.client.Send(ctx, "Network.getAllCookies", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	var response struct {
		Cookies []struct {
			Name     string  `json:"name"`
			Value    string  `json:"value"`
			Domain   string  `json:"domain"`
			Path     string  `json:"path"`
			Expires  float64 `json:"expires"`
			HttpOnly bool    `json:"httpOnly"`
			Secure   bool    `json:"secure"`
			Session  bool    `json:"session"`
			SameSite string  `json:"sameSite"`
		} `json:"cookies"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse cookies: %w", err)
	}

	cookies := make([]storage.Cookie, 0, len(response.Cookies))
	for _, c := range response.Cookies {
		cookie := storage.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
			SameSite: c.SameSite,
		}
		if !c.Session && c.Expires > 0 {
			cookie.Expires = c.Expires
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

// SetCookie installs one cookie. A cookie without a domain is scoped to the current page.
func (s *Session) SetCookie(ctx context.Context, cookie storage.Cookie) error {
	params := map[string]any{
		"name":     cookie.Name,
		"value":    cookie.Value,
		"secure":   cookie.Secure,
		"httpOnly": cookie.HttpOnly,
	}
	if cookie.Domain != "" {
		params["domain"] = cookie.Domain
	} else {
		raw, err := s.evaluate(ctx, "location.href")
		if err != nil {
			return fmt.Errorf("failed to resolve cookie url: %w", err)
		}
		var href string
		if err := json.Unmarshal(raw, &href); err != nil {
			return fmt.Errorf("failed to resolve cookie url: %w", err)
		}
		params["url"] = href
	}
	if cookie.Path != "" {
		params["path"] = cookie.Path
	}
	if cookie.Expires > 0 {
		params["expires"] = cookie.Expires
	}
	if cookie.SameSite != "" {
		params["sameSite"] = cookie.SameSite
	}

	result, err := s.client.Send(ctx, "Network.setCookie", params)
	if err != nil {
		return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
	}

	var response struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return fmt.Errorf("failed to parse set cookie response: %w", err)
	}
	if response.Success != nil && !*response.Success {
		return fmt.Errorf("browser rejected cookie %s for domain %q", cookie.Name, cookie.Domain)
	}
	return nil
}

// Screenshot captures the viewport as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	result, err := s.client.Send(ctx, "Page.captureScreenshot", map[string]any{
		"format": "png",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}

	var response struct {
		Data string `json:"data"`
	}

	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse screenshot response: %w", err)
	}

	imageBytes, err := base64.StdEncoding.DecodeString(response.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	return imageBytes, nil
}

// Close disconnects and stops the browser. Only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.client != nil {
			if err := s.client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close devtools connection: %w", err))
			}
		}
		if s.process != nil {
			if err := s.process.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop browser: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
