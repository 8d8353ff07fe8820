package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHost is the public Telegram Bot API host.
const DefaultHost = "api.telegram.org"

// maxResponseBytes bounds how much of a response body is decoded.
const maxResponseBytes = 1 << 20

// Doer is the transport seam; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client speaks the two Bot API methods the notifier needs.
// It holds no token; callers pass the current one per call so credentials
// can change without rebuilding the client.
type Client struct {
	base string
	doer Doer
}

// New builds a client. host may be a bare host ("api.telegram.org") or a
// base URL with scheme ("http://127.0.0.1:8081", used by tests).
func New(host string, doer Doer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: BaseURL(host), doer: doer}
}

// BaseURL normalizes host to a scheme-qualified base URL without a
// trailing slash. Empty means DefaultHost over https.
func BaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}

// APIError is a non-acknowledging response from the Bot API.
type APIError struct {
	Method      string
	Status      int
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("botapi %s failed: %s (code=%d http=%d)", e.Method, e.Description, e.Code, e.Status)
	}
	return fmt.Sprintf("botapi %s failed: http=%d", e.Method, e.Status)
}

var ErrEmptyToken = errors.New("botapi: token is empty")

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// User is the getMe result.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// SendMessage is the sendMessage request body.
type SendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

func (c *Client) GetMe(ctx context.Context, token string) (User, error) {
	var u User
	env, err := c.call(ctx, http.MethodGet, token, "getMe", nil)
	if err != nil {
		return u, err
	}
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &u); err != nil {
			return u, fmt.Errorf("botapi getMe: decode result: %w", err)
		}
	}
	return u, nil
}

// SendMessage posts one message. It returns nil only when the API
// acknowledges with ok=true.
func (c *Client) SendMessage(ctx context.Context, token string, msg SendMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, http.MethodPost, token, "sendMessage", b)
	return err
}

func (c *Client) call(ctx context.Context, httpMethod, token, method string, body []byte) (envelope, error) {
	var env envelope
	token = strings.TrimSpace(token)
	if token == "" {
		return env, ErrEmptyToken
	}
	if ctx == nil {
		ctx = context.Background()
	}

	url := c.base + "/bot" + token + "/" + method
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, url, rd)
	if err != nil {
		return env, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which contains the token.
		return env, fmt.Errorf("botapi %s: %w", method, redact(err, token))
	}
	defer resp.Body.Close()

	decErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)
	if resp.StatusCode/100 != 2 || !env.OK {
		return env, &APIError{Method: method, Status: resp.StatusCode, Code: env.ErrorCode, Description: env.Description}
	}
	if decErr != nil {
		return env, fmt.Errorf("botapi %s: decode response: %w", method, decErr)
	}
	return env, nil
}

type redactedError struct {
	msg   string
	cause error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.cause }

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), cause: err}
}
