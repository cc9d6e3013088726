package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Bridge talks to the authoring application's remote-script gateway over
// HTTP. The gateway runs inside the application process, so every call here
// executes on the host's main scripting thread.
type Bridge struct {
	baseURL    string
	httpClient *http.Client
}

var _ Session = (*Bridge)(nil)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeHTTPClient overrides the default HTTP client.
func WithBridgeHTTPClient(client *http.Client) BridgeOption {
	return func(b *Bridge) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewBridge creates a host bridge client.
func NewBridge(baseURL string, opts ...BridgeOption) (*Bridge, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("host bridge url required")
	}
	bridge := &Bridge{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(bridge)
	}
	return bridge, nil
}

// Path returns the current session file path.
func (b *Bridge) Path(ctx context.Context) (string, error) {
	var payload struct {
		Path string `json:"path"`
	}
	if err := b.get(ctx, "/session/path", &payload); err != nil {
		return "", err
	}
	return payload.Path, nil
}

// Save writes the session to the given path.
func (b *Bridge) Save(ctx context.Context, path string) error {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return fmt.Errorf("encode save request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/session/save", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute save request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("host save returned %d", resp.StatusCode)
	}
	return nil
}

// Cameras enumerates the scene cameras.
func (b *Bridge) Cameras(ctx context.Context) ([]Camera, error) {
	var payload struct {
		Cameras []Camera `json:"cameras"`
	}
	if err := b.get(ctx, "/scene/cameras", &payload); err != nil {
		return nil, err
	}
	return payload.Cameras, nil
}

// Takes enumerates the takes in the session.
func (b *Bridge) Takes(ctx context.Context) ([]Take, error) {
	var payload struct {
		Takes []Take `json:"takes"`
	}
	if err := b.get(ctx, "/scene/takes", &payload); err != nil {
		return nil, err
	}
	return payload.Takes, nil
}

func (b *Bridge) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("host bridge %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode host response: %w", err)
	}
	return nil
}
