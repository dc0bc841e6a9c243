package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keyrelay/keyrelay/internal/command"
	"github.com/keyrelay/keyrelay/internal/model"
)

const (
	sendCommandPath = "api/request/send-command"
	lastActivePath  = "api/request/last-active"
)

var (
	// ErrDeliveryFailed covers every way a command can fail to reach a relay.
	ErrDeliveryFailed = errors.New("command delivery failed")
	// ErrInvalidRelayURL reports a relay address that is not an absolute http(s) URL.
	ErrInvalidRelayURL = errors.New("invalid relay url")
)

// Client talks to relay servers. One client serves every device; the relay
// address comes with each call.
type Client struct {
	http *http.Client
}

// New creates a relay client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{http: hc}
}

// NormalizeRelayURL validates raw and strips trailing slashes.
func NormalizeRelayURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRelayURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidRelayURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidRelayURL)
	}
	return strings.TrimRight(raw, "/"), nil
}

// SendCommand posts a signed command to the relay. Any non-2xx answer is a delivery failure.
func (c *Client) SendCommand(ctx context.Context, relayURL string, cmd *model.SignedCommand) error {
	endpoint, err := resolve(relayURL, sendCommandPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	resp, err := c.postJSON(ctx, endpoint, cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: relay answered %s", ErrDeliveryFailed, resp.Status)
	}
	return nil
}

// LastActive asks the relay when the device last fetched commands.
func (c *Client) LastActive(ctx context.Context, relayURL, pubkey string) (time.Time, error) {
	endpoint, err := resolve(relayURL, lastActivePath)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := c.postJSON(ctx, endpoint, lastActiveRequest{Pubkey: pubkey})
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return time.Time{}, fmt.Errorf("last-active http status %s", resp.Status)
	}
	var payload LastActiveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return time.Time{}, fmt.Errorf("decode last-active: %w", err)
	}
	return command.ParseTimestamp(payload.LastFetched)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

func resolve(relayURL, p string) (string, error) {
	base, err := NormalizeRelayURL(relayURL)
	if err != nil {
		return "", err
	}
	return base + "/" + p, nil
}

type lastActiveRequest struct {
	Pubkey string `json:"pubkey"`
}

// LastActiveResponse is returned by the relay's last-active endpoint.
type LastActiveResponse struct {
	LastFetched string `json:"lastfetched"`
}
