package webportal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/autoconnect/internal/acconfig"
)

const (
	// DefaultClientTimeout bounds a single request.
	DefaultClientTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of retries after a failed request.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the first backoff delay.
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay caps the backoff.
	DefaultMaxRetryDelay = 5 * time.Second
)

// Client talks to a running portal over HTTP.
type Client struct {
	// BaseURL is the portal origin, e.g. "http://172.217.28.1".
	BaseURL string

	HTTPClient *http.Client

	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewClient creates a client for the portal at base. A bare host or
// host:port gets an http scheme.
func NewClient(base string) *Client {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTPClient: &http.Client{
			Timeout: DefaultClientTimeout,
			// connect answers 303; the caller reads the result separately
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + acconfig.PortalPrefix + path
}

// do sends one request with retries and decodes a JSON body into out
// when out is non-nil. want lists the accepted status codes.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any, want ...int) error {
	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		err := c.attempt(ctx, method, path, form, out, want)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, form url.Values, out any, want []int) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return &ClientError{Kind: ErrKindNetwork, Message: "failed to create request", Err: err}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	accepted := false
	for _, code := range want {
		if resp.StatusCode == code {
			accepted = true
			break
		}
	}
	if !accepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return httpError(resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Kind: ErrKindParse, Message: "failed to parse response", Err: err}
	}
	return nil
}

// Status fetches the portal status.
func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var v StatusView
	if err := c.do(ctx, http.MethodGet, "", nil, &v, http.StatusOK); err != nil {
		return nil, err
	}
	return &v, nil
}

// Networks fetches the last scan.
func (c *Client) Networks(ctx context.Context) ([]NetworkView, error) {
	var v []NetworkView
	if err := c.do(ctx, http.MethodGet, "/config", nil, &v, http.StatusOK); err != nil {
		return nil, err
	}
	return v, nil
}

// Credentials fetches the saved networks.
func (c *Client) Credentials(ctx context.Context) ([]CredentialView, error) {
	var v []CredentialView
	if err := c.do(ctx, http.MethodGet, "/open", nil, &v, http.StatusOK); err != nil {
		return nil, err
	}
	return v, nil
}

// Connect posts a connection request. form carries the connect fields
// (SSID, Passphrase, BSSID, or credential for a saved network).
func (c *Client) Connect(ctx context.Context, form url.Values) error {
	return c.do(ctx, http.MethodPost, "/connect", form, nil, http.StatusSeeOther)
}

// Scan requests a fresh scan.
func (c *Client) Scan(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/scan", url.Values{}, nil, http.StatusAccepted)
}

// Disconnect requests a station disconnect.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/disc", nil, nil, http.StatusAccepted)
}

// Reset requests a full reset.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", url.Values{}, nil, http.StatusAccepted)
}

// Feed is a live status subscription.
type Feed struct {
	conn *websocket.Conn
}

// Subscribe opens the events feed. The first message is the current
// status.
func (c *Client) Subscribe(ctx context.Context) (*Feed, error) {
	u := strings.Replace(c.url("/events"), "http", "ws", 1)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, classifyNetworkError("events subscription failed", err)
	}
	return &Feed{conn: conn}, nil
}

// Next blocks until the next status arrives.
func (f *Feed) Next() (StatusView, error) {
	var v StatusView
	if err := f.conn.ReadJSON(&v); err != nil {
		return StatusView{}, err
	}
	return v, nil
}

// Close ends the subscription.
func (f *Feed) Close() error {
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return f.conn.Close()
}
