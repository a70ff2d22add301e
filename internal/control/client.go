package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/direclaw/direclaw/internal/queue"
)

// Client talks to a Server over its unix socket, minting its own token
// from the session secret rather than asking the daemon for one: both
// processes read the same <state_root>/control/session.key file, so
// there is no bootstrap round-trip. Grounded on the same
// DialContext-over-unix idiom server_test.go uses to exercise Server.
type Client struct {
	httpClient *http.Client
	token      string
}

// NewClient dials socketPath and mints a token for clientID signed with
// secret, valid for ttl.
func NewClient(socketPath string, secret []byte, clientID string, ttl time.Duration) (*Client, error) {
	token, err := GenerateToken(secret, clientID, ttl)
	if err != nil {
		return nil, fmt.Errorf("control: mint client token: %w", err)
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 30 * time.Second,
		},
		token: token,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("control: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// ErrorResponse mirrors writeError's JSON shape, for surfacing the
// daemon's message text in CLI error output.
type ErrorResponse struct {
	Error string `json:"error"`
}

func readError(resp *http.Response) error {
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("control: %s", body.Error)
	}
	return fmt.Errorf("control: request failed with status %d", resp.StatusCode)
}

// Status fetches the supervisor's runtime status as a raw JSON document,
// for `direclaw update check` to read the daemon's reported version.
func (c *Client) Status(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Send submits req for the queue worker to pick up, for the `direclaw
// send` command.
func (c *Client) Send(ctx context.Context, req *SendRequest) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/send", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return readError(resp)
	}
	return nil
}

// Attach long-polls for a reply to messageID, for the `direclaw attach`
// command. Returns (nil, false, nil) on a 204 (no reply within the
// server's own timeout window) so callers can decide whether to retry.
func (c *Client) Attach(ctx context.Context, messageID string, timeout time.Duration) (*queue.OutgoingMessage, bool, error) {
	q := url.Values{}
	q.Set("messageId", messageID)
	if timeout > 0 {
		q.Set("timeoutSeconds", fmt.Sprintf("%d", int(timeout.Seconds())))
	}

	resp, err := c.do(ctx, http.MethodGet, "/v1/attach?"+q.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, false, nil
	case http.StatusOK:
		var out queue.OutgoingMessage
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("control: decode attach reply: %w", err)
		}
		return &out, true, nil
	default:
		return nil, false, readError(resp)
	}
}
