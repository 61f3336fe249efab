package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned for commands issued on, or pending during, a closed connection.
var ErrClosed = errors.New("cdp connection closed")

// Client is a DevTools connection to a single target.
// Commands may be sent from any goroutine; responses are matched by id.
type Client struct {
	wsURL string
	conn  *websocket.Conn

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *Response
	closed  bool
	done    chan struct{}
	err     error

	// OnEvent, when set before Connect, receives every unsolicited event.
	OnEvent func(Event)
}

// NewClient creates a client for the given debugger URL. Call Connect before use.
func NewClient(wsURL string) *Client {
	return &Client{
		wsURL:   wsURL,
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
	}
}

// Connect dials the debugger websocket and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1 << 16,
		WriteBufferSize:  1 << 16,
	}

	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.wsURL, err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Send issues method with params and waits for its response.
func (c *Client) Send(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("client is not connected")
	}

	id := c.nextID.Add(1)
	ch := make(chan *Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(Command{ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", method, err)
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-c.done:
		return nil, fmt.Errorf("%s: %w", method, c.closeErr())
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// Close closes the websocket and fails every pending command.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	if c.conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("dropping malformed cdp frame", "error", err)
			continue
		}

		if msg.ID == 0 {
			if c.OnEvent != nil && msg.Method != "" {
				c.OnEvent(Event{Method: msg.Method, Params: msg.Params})
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		c.mu.Unlock()
		if !ok {
			continue
		}
		ch <- &Response{ID: msg.ID, Result: msg.Result, Error: msg.Error}
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
