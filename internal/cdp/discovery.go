package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetVersion queries /json/version on the debug port.
func GetVersion(ctx context.Context, host string, debugPort string) (*VersionInfo, error) {
	// Query the /json/version endpoint for browser-level info
	var versionInfo VersionInfo
	if err := getJSON(ctx, fmt.Sprintf("http://%s:%s/json/version", defaultHost(host), debugPort), &versionInfo); err != nil {
		return nil, err
	}
	if versionInfo.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("no browser WebSocket URL found")
	}
	return &versionInfo, nil
}

// GetPageWebSocketURL discovers the WebSocket URL of the first page target.
// It queries http://HOST:PORT/json and skips workers, extensions and iframes.
func GetPageWebSocketURL(ctx context.Context, host string, debugPort string) (string, error) {
	// Step 1: The /json endpoint lists every target, the initial tab included
	var targets []Target
	if err := getJSON(ctx, fmt.Sprintf("http://%s:%s/json", defaultHost(host), debugPort), &targets); err != nil {
		return "", err
	}

	// Step 2: Chrome answers with an empty list while it is still booting
	if len(targets) == 0 {
		return "", fmt.Errorf("no targets available - browser may still be starting")
	}

	// Step 3: Pick the first real page
	for _, target := range targets {
		if target.Type == "page" && target.WebSocketDebuggerURL != "" {
			return target.WebSocketDebuggerURL, nil
		}
	}

	return "", fmt.Errorf("no page target found")
}

func getJSON(ctx context.Context, url string, out any) error {
	//We make an HTTP GET request bound to ctx
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to debug port: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	//Read the whole body and decode it into out
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// If host is not provided, use localhost
func defaultHost(host string) string {
	if host == "" {
		return "localhost"
	}
	return host
}
