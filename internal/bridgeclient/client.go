package bridgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/server"
	"github.com/muurk/lifxlan/internal/version"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 5 * time.Second
)

// maxErrorBody caps how much of an error reply is read.
const maxErrorBody = 4096

// Client talks to the lifx-bridge HTTP API.
type Client struct {
	// BaseURL is the bridge root (e.g., "http://pi.local:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after every attempt
	UseExponentialBackoff bool
}

// NewClient creates a client for the bridge at baseURL, for example
// discovery.Bridge.BaseURL().
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Version returns the bridge's build information.
func (c *Client) Version(ctx context.Context) (version.Info, error) {
	var info version.Info
	err := c.do(ctx, http.MethodGet, "/api/version", nil, &info)
	return info, err
}

// Devices returns a snapshot of every device the bridge has registered.
func (c *Client) Devices(ctx context.Context) ([]device.Snapshot, error) {
	var list []device.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/devices", nil, &list)
	return list, err
}

// Device returns one device's snapshot.
func (c *Client) Device(ctx context.Context, mac string) (device.Snapshot, error) {
	var s device.Snapshot
	err := c.do(ctx, http.MethodGet, devicePath(mac, ""), nil, &s)
	return s, err
}

// SetPower switches a device and returns its new snapshot. duration is in
// milliseconds and only applies to lights.
func (c *Client) SetPower(ctx context.Context, mac string, on bool, duration uint32, rapid bool) (device.Snapshot, error) {
	var s device.Snapshot
	err := c.do(ctx, http.MethodPost, devicePath(mac, "power"),
		server.PowerRequest{On: &on, Duration: duration, Rapid: rapid}, &s)
	return s, err
}

// SetColor sets a light's colour. color is anything color.Parse accepts;
// the bridge parses it.
func (c *Client) SetColor(ctx context.Context, mac, color string, duration uint32, rapid bool) (device.Snapshot, error) {
	var s device.Snapshot
	err := c.do(ctx, http.MethodPost, devicePath(mac, "color"),
		server.ColorRequest{Color: color, Duration: duration, Rapid: rapid}, &s)
	return s, err
}

// SetLabel renames a device.
func (c *Client) SetLabel(ctx context.Context, mac, label string) (device.Snapshot, error) {
	var s device.Snapshot
	err := c.do(ctx, http.MethodPost, devicePath(mac, "label"), server.LabelRequest{Label: label}, &s)
	return s, err
}

func devicePath(mac, action string) string {
	p := "/api/devices/" + url.PathEscape(strings.ToLower(mac))
	if action != "" {
		p += "/" + action
	}
	return p
}

// do sends one request, retrying retryable failures with backoff.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying bridge request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay = min(currentDelay*2, c.MaxRetryDelay)
			}
		}

		err := c.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return lastErr
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &BridgeError{Type: ErrTypeNetwork, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e server.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return statusError(resp.StatusCode, e.Error, e.MAC)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BridgeError{Type: ErrTypeParse, Message: "failed to parse JSON response", StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
