package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/lish_client/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 15 * time.Second

// Client talks to the Lish ordering backend. All methods classify failures via
// *Error and never leak raw transport errors.
type Client struct {
	baseURL  string
	http     *http.Client
	sessions session.Store
}

type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithTracing wraps the transport with otelhttp instrumentation.
func WithTracing() Option {
	return func(c *Client) {
		base := c.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.http.Transport = otelhttp.NewTransport(base)
	}
}

// WithHTTPClient replaces the underlying http client entirely.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, sessions session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultTimeout},
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// serverError mirrors the backend's error envelope.
type serverError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// do issues one request. A nil out skips body decoding. authed requests carry
// the bearer token from the session store; a missing session fails fast with
// KindAuth and no network call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, authed bool) error {
	var token string
	if authed {
		sess, err := c.sessions.Load(ctx)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return &Error{Kind: KindAuth, Message: "please sign in first"}
			}
			return &Error{Kind: KindNetwork, Message: "could not read session", Err: err}
		}
		token = sess.Token
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindMalformed, Message: "could not encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &Error{Kind: KindAuth, Status: resp.StatusCode, Message: "your session has expired, please sign in again"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("server rejected the request (%d)", resp.StatusCode)
		var se serverError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&se); decodeErr == nil && se.Error != "" {
			msg = se.Error
		}
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
		}
	}
	return nil
}
