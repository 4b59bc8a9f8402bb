// Package client is a typed client for the board API. Requests carry the
// bearer token of the current session, and a 401 answer signs the session out.
package client

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

	"github.com/hungpv1995/community-board/internal/session"
)

var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   struct {
		Code    int             `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Manager

	Posts    *PostService
	Comments *CommentService
	Users    *UserService
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8080/api/v1". sess may be nil for anonymous use.
func New(baseURL string, httpClient *http.Client, sess *session.Manager) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		session:    sess,
	}
	c.Posts = &PostService{c: c}
	c.Comments = &CommentService{c: c}
	c.Users = &UserService{c: c}
	return c
}

// do sends a request and returns the raw response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session != nil {
		if token := c.session.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		se := &StatusError{StatusCode: res.StatusCode}
		var env envelope
		if json.Unmarshal(raw, &env) == nil {
			se.Message = env.Message
			se.Details = env.Error.Details
		}
		if res.StatusCode == http.StatusUnauthorized && c.session != nil {
			c.session.Invalidate(ctx)
		}
		return nil, se
	}
	return raw, nil
}

// call sends a request and decodes the envelope's data into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*envelope, error) {
	raw, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return &env, nil
}
