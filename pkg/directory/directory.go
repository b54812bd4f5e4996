// Package directory resolves client display names from the studio's client
// records service. The engine never stores client data; it reads through for
// display purposes only.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrClientNotFound indicates the client id is unknown to the records service.
var ErrClientNotFound = errors.New("client not found")

// Client is the subset of a client record this engine displays.
type Client struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Directory resolves client records.
type Directory interface {
	ClientByID(ctx context.Context, clientID string) (*Client, error)
}

// HTTPDirectory reads client records over HTTP from the surrounding
// application. Every lookup is a single bounded round trip.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDirectory creates a directory backed by the client records API.
func NewHTTPDirectory(baseURL string, timeout time.Duration) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDirectory) ClientByID(ctx context.Context, clientID string) (*Client, error) {
	endpoint := d.baseURL + "/clients/" + url.PathEscape(clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build client lookup request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client lookup failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("client %s: %w", clientID, ErrClientNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client lookup returned status %d", resp.StatusCode)
	}

	var client Client
	if err := json.NewDecoder(resp.Body).Decode(&client); err != nil {
		return nil, fmt.Errorf("failed to decode client record: %w", err)
	}

	return &client, nil
}

// StaticDirectory serves a fixed client set. Used in tests and local
// development without the surrounding application.
type StaticDirectory struct {
	clients map[string]Client
}

// NewStaticDirectory creates a directory over a fixed client map.
func NewStaticDirectory(clients map[string]Client) *StaticDirectory {
	return &StaticDirectory{clients: clients}
}

func (d *StaticDirectory) ClientByID(_ context.Context, clientID string) (*Client, error) {
	client, ok := d.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", clientID, ErrClientNotFound)
	}

	return &client, nil
}
