package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Condition is what WaitForElement waits for
type Condition int

const (
	// Present means the element is attached to the DOM
	Present Condition = iota
	// Clickable means the element is present, rendered with a non-empty box, and enabled
	Clickable
)

func (c Condition) String() string {
	if c == Clickable {
		return "clickable"
	}
	return "present"
}

// Element is a handle to a node found on the page
type Element interface {
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Click(ctx context.Context) error
	PressEnter(ctx context.Context) error
}

type remoteObject struct {
	Type     string          `json:"type"`
	Subtype  string          `json:"subtype,omitempty"`
	ObjectID string          `json:"objectId,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

// FindElement returns the first node matching sel, or ErrNoSuchElement
func (s *Session) FindElement(ctx context.Context, sel Selector) (Element, error) {
	result, err := s.client.Send(ctx, "Runtime.evaluate", map[string]any{
		"expression":    sel.expression(),
		"returnByValue": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", sel, err)
	}

	var response struct {
		Result           remoteObject    `json:"result"`
		ExceptionDetails json.RawMessage `json:"exceptionDetails,omitempty"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse lookup result: %w", err)
	}
	if len(response.ExceptionDetails) > 0 {
		return nil, fmt.Errorf("invalid selector %s: %s", sel, response.ExceptionDetails)
	}
	if response.Result.ObjectID == "" || response.Result.Subtype == "null" {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchElement, sel)
	}

	return &remoteElement{session: s, objectID: response.Result.ObjectID, selector: sel}, nil
}

// WaitForElement polls until sel matches and satisfies cond, or timeout elapses.
// Only a missing or not yet clickable element is retried; other errors end the wait.
func (s *Session) WaitForElement(ctx context.Context, sel Selector, cond Condition, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		el, err := s.FindElement(ctx, sel)
		switch {
		case err == nil:
			if cond == Present {
				return el, nil
			}
			ok, err := el.(*remoteElement).clickable(ctx)
			if err != nil {
				return nil, err
			}
			if ok {
				return el, nil
			}
		case !errors.Is(err, ErrNoSuchElement):
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s to be %s after %s", ErrWaitTimeout, sel, cond, timeout)
		}
		if err := sleep(ctx, s.pollInterval); err != nil {
			return nil, err
		}
	}
}

type remoteElement struct {
	session  *Session
	objectID string
	selector Selector
}

const (
	clickableFn = `function() {
	const r = this.getBoundingClientRect();
	const st = window.getComputedStyle(this);
	return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none' && !this.disabled;
}`
	centerFn = `function() {
	this.scrollIntoView({block: 'center', inline: 'center'});
	const r = this.getBoundingClientRect();
	return {x: r.left + r.width / 2, y: r.top + r.height / 2, width: r.width, height: r.height};
}`
	clearFn = `function() {
	this.focus();
	if ('value' in this) {
		this.value = '';
	} else {
		this.textContent = '';
	}
	this.dispatchEvent(new Event('input', {bubbles: true}));
}`
	focusFn = `function() { this.focus(); }`
)

// callFunction invokes fn with the element as this and returns its JSON value
func (e *remoteElement) callFunction(ctx context.Context, fn string) (json.RawMessage, error) {
	result, err := e.session.client.Send(ctx, "Runtime.callFunctionOn", map[string]any{
		"objectId":            e.objectID,
		"functionDeclaration": fn,
		"returnByValue":       true,
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Result           remoteObject    `json:"result"`
		ExceptionDetails json.RawMessage `json:"exceptionDetails,omitempty"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("failed to parse call result: %w", err)
	}
	if len(response.ExceptionDetails) > 0 {
		return nil, fmt.Errorf("javascript execution error on %s: %s", e.selector, response.ExceptionDetails)
	}
	return response.Result.Value, nil
}

func (e *remoteElement) clickable(ctx context.Context) (bool, error) {
	raw, err := e.callFunction(ctx, clickableFn)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", e.selector, err)
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return false, fmt.Errorf("failed to parse clickable check: %w", err)
	}
	return ok, nil
}

func (e *remoteElement) Clear(ctx context.Context) error {
	if _, err := e.callFunction(ctx, clearFn); err != nil {
		return fmt.Errorf("failed to clear %s: %w", e.selector, err)
	}
	return nil
}

// Type focuses the element and inserts text as if typed
func (e *remoteElement) Type(ctx context.Context, text string) error {
	if _, err := e.callFunction(ctx, focusFn); err != nil {
		return fmt.Errorf("failed to focus %s: %w", e.selector, err)
	}
	if _, err := e.session.client.Send(ctx, "Input.insertText", map[string]any{"text": text}); err != nil {
		return fmt.Errorf("failed to type into %s: %w", e.selector, err)
	}
	return nil
}

// Click scrolls the element into view and clicks its centre with the mouse
func (e *remoteElement) Click(ctx context.Context) error {
	raw, err := e.callFunction(ctx, centerFn)
	if err != nil {
		return fmt.Errorf("failed to locate %s: %w", e.selector, err)
	}

	var box struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal(raw, &box); err != nil {
		return fmt.Errorf("failed to parse element box: %w", err)
	}
	if box.Width == 0 || box.Height == 0 {
		return fmt.Errorf("element %s is not rendered", e.selector)
	}

	for _, eventType := range []string{"mouseMoved", "mousePressed", "mouseReleased"} {
		params := map[string]any{
			"type": eventType,
			"x":    box.X,
			"y":    box.Y,
		}
		if eventType != "mouseMoved" {
			params["button"] = "left"
			params["clickCount"] = 1
		}
		if _, err := e.session.client.Send(ctx, "Input.dispatchMouseEvent", params); err != nil {
			return fmt.Errorf("failed to click %s: %w", e.selector, err)
		}
	}
	return nil
}

// PressEnter sends an Enter key press to the focused element
func (e *remoteElement) PressEnter(ctx context.Context) error {
	if _, err := e.callFunction(ctx, focusFn); err != nil {
		return fmt.Errorf("failed to focus %s: %w", e.selector, err)
	}

	down := map[string]any{
		"type":                  "keyDown",
		"key":                   "Enter",
		"code":                  "Enter",
		"windowsVirtualKeyCode": 13,
		"nativeVirtualKeyCode":  13,
		"text":                  "\r",
	}
	up := map[string]any{
		"type":                  "keyUp",
		"key":                   "Enter",
		"code":                  "Enter",
		"windowsVirtualKeyCode": 13,
		"nativeVirtualKeyCode":  13,
	}
	for _, params := range []map[string]any{down, up} {
		if _, err := e.session.client.Send(ctx, "Input.dispatchKeyEvent", params); err != nil {
			return fmt.Errorf("failed to press enter on %s: %w", e.selector, err)
		}
	}
	return nil
}
