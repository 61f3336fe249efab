package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dhruvsoni1802/dailydm/internal/logging"
	"github.com/dhruvsoni1802/dailydm/internal/session"
)

const messagesPath = "/messages"

// Selector heuristics, tried in order
var (
	SearchSelectors = []session.Selector{
		session.XPath("//input[@placeholder='Search']"),
		session.XPath("//input[@type='search']"),
		session.XPath("//input[contains(@placeholder, 'search')]"),
	}

	MessageInputSelectors = []session.Selector{
		session.XPath("//textarea[@placeholder='Send a message...']"),
		session.XPath("//div[@contenteditable='true']"),
		session.XPath("//textarea[contains(@placeholder, 'message')]"),
	}

	SendButton = session.XPath("//button[contains(@aria-label, 'Send')]")
)

// ConversationSelector matches a conversation entry showing target
func ConversationSelector(target string) session.Selector {
	return session.XPath(fmt.Sprintf("//span[contains(text(), %s)]", session.XPathLiteral(target)))
}

// Messenger sends one message to one recipient in an authenticated browser
type Messenger struct {
	BaseURL string
	Target  string

	Diagnostics *Diagnostics
	Delays      Delays
	Sleep       Sleeper
	Logger      *slog.Logger
}

// Send delivers message. On failure it captures a send_error screenshot and returns a *StageError.
func (m *Messenger) Send(ctx context.Context, b Browser, message string) error {
	if err := m.send(ctx, b, message); err != nil {
		m.Logger.Error(fmt.Sprintf("Failed to send message: %v", err))
		path, _ := m.Diagnostics.Capture(ctx, b, CategorySend)
		return &StageError{Stage: StageSend, Screenshot: path, Err: err}
	}
	return nil
}

func (m *Messenger) send(ctx context.Context, b Browser, message string) error {
	m.Logger.Info(fmt.Sprintf("Navigating to messages for user: %s", m.Target))
	if err := b.Navigate(ctx, m.BaseURL+messagesPath); err != nil {
		return err
	}
	if err := m.Sleep(ctx, m.Delays.MessagesSettle); err != nil {
		return err
	}

	m.Logger.Info("Searching for target user")
	search, err := firstMatch(ctx, b, SearchSelectors)
	if err != nil {
		return fmt.Errorf("could not find search input: %w", err)
	}
	if err := fill(ctx, search, m.Target); err != nil {
		return err
	}
	if err := m.Sleep(ctx, m.Delays.Settle); err != nil {
		return err
	}

	m.Logger.Info("Opening conversation")
	chat, err := b.WaitForElement(ctx, ConversationSelector(m.Target), session.Clickable, m.Delays.ChatWait)
	if err != nil {
		return fmt.Errorf("conversation with %s: %w", m.Target, err)
	}
	if err := chat.Click(ctx); err != nil {
		return err
	}
	if err := m.Sleep(ctx, m.Delays.Settle); err != nil {
		return err
	}

	m.Logger.Info("Locating message input")
	input, err := firstMatch(ctx, b, MessageInputSelectors)
	if err != nil {
		return fmt.Errorf("could not find message input: %w", err)
	}

	m.Logger.Info(fmt.Sprintf("Sending message: %s...", Preview(message)))
	if err := fill(ctx, input, message); err != nil {
		return err
	}
	if err := m.Sleep(ctx, m.Delays.Typing); err != nil {
		return err
	}

	if err := input.PressEnter(ctx); err != nil {
		m.Logger.Debug("enter key failed, using send button", "error", err)
		button, err := b.FindElement(ctx, SendButton)
		if err != nil {
			return fmt.Errorf("send button: %w", err)
		}
		if err := button.Click(ctx); err != nil {
			return err
		}
	}

	if err := m.Sleep(ctx, m.Delays.AfterSend); err != nil {
		return err
	}
	logging.Success(ctx, m.Logger, "Message sent successfully")
	return nil
}

// firstMatch returns the element for the first selector that resolves.
// Only a missing element moves on to the next selector.
func firstMatch(ctx context.Context, b Browser, selectors []session.Selector) (session.Element, error) {
	for _, sel := range selectors {
		el, err := b.FindElement(ctx, sel)
		if err == nil {
			return el, nil
		}
		if !errors.Is(err, session.ErrNoSuchElement) {
			return nil, err
		}
	}
	return nil, ErrNoSelectorMatched
}
