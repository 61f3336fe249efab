package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBrowser answers commands through handle; returning a non-nil error map yields a CDP error.
type fakeBrowser struct {
	handle func(cmd Command) (result any, cdpErr *ResponseError)
	events []Event
}

func (f *fakeBrowser) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for _, evt := range f.events {
		payload, _ := json.Marshal(evt)
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return
		}
		result, cdpErr := f.handle(cmd)
		resp := map[string]any{"id": cmd.ID}
		if cdpErr != nil {
			resp["error"] = cdpErr
		} else {
			resp["result"] = result
		}
		payload, _ := json.Marshal(resp)
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestClientSend(t *testing.T) {
	server := httptest.NewServer(&fakeBrowser{
		handle: func(cmd Command) (any, *ResponseError) {
			if cmd.Method == "Runtime.evaluate" {
				return map[string]any{"result": map[string]any{"type": "number", "value": cmd.Params["expression"]}}, nil
			}
			return nil, &ResponseError{Code: -32601, Message: "'" + cmd.Method + "' wasn't found"}
		},
	})
	defer server.Close()

	client := NewClient(wsURL(server))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	raw, err := client.Send(context.Background(), "Runtime.evaluate", map[string]any{"expression": "2 + 2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"type":"number","value":"2 + 2"}}`, string(raw))

	_, err = client.Send(context.Background(), "Bogus.method", nil)
	require.Error(t, err)
	var cdpErr *ResponseError
	require.True(t, errors.As(err, &cdpErr))
	assert.Equal(t, -32601, cdpErr.Code)
}

func TestClientDeliversEvents(t *testing.T) {
	server := httptest.NewServer(&fakeBrowser{
		events: []Event{{Method: "Page.loadEventFired", Params: json.RawMessage(`{"timestamp":1}`)}},
		handle: func(cmd Command) (any, *ResponseError) { return map[string]any{}, nil },
	})
	defer server.Close()

	received := make(chan Event, 1)
	client := NewClient(wsURL(server))
	client.OnEvent = func(e Event) { received <- e }
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case evt := <-received:
		assert.Equal(t, "Page.loadEventFired", evt.Method)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestClientSendAfterClose(t *testing.T) {
	server := httptest.NewServer(&fakeBrowser{
		handle: func(cmd Command) (any, *ResponseError) { return map[string]any{}, nil },
	})
	defer server.Close()

	client := NewClient(wsURL(server))
	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Close())

	_, err := client.Send(context.Background(), "Page.enable", nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClientSendHonoursContext(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(&fakeBrowser{
		handle: func(cmd Command) (any, *ResponseError) {
			<-block
			return map[string]any{}, nil
		},
	})
	defer server.Close()
	defer close(block)

	client := NewClient(wsURL(server))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Send(ctx, "Page.navigate", map[string]any{"url": "about:blank"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetPageWebSocketURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Target{
			{ID: "sw", Type: "service_worker", WebSocketDebuggerURL: "ws://x/sw"},
			{ID: "p1", Type: "page", URL: "about:blank", WebSocketDebuggerURL: "ws://x/devtools/page/p1"},
		})
	})
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(VersionInfo{Browser: "Chrome/130", WebSocketDebuggerURL: "ws://x/devtools/browser/b"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	pageURL, err := GetPageWebSocketURL(context.Background(), u.Hostname(), u.Port())
	require.NoError(t, err)
	assert.Equal(t, "ws://x/devtools/page/p1", pageURL)

	version, err := GetVersion(context.Background(), u.Hostname(), u.Port())
	require.NoError(t, err)
	assert.Equal(t, "Chrome/130", version.Browser)
}

func TestGetPageWebSocketURLNoPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	_, err = GetPageWebSocketURL(context.Background(), u.Hostname(), u.Port())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no targets available")
}
