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
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 4 << 20
	userAgent        = "tasksync-cli"
)

// TokenSource supplies the bearer credential for authenticated calls.
type TokenSource interface {
	Token() (string, bool)
}

type TokenFunc func() (string, bool)

func (f TokenFunc) Token() (string, bool) { return f() }

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client speaks the task/auth/chat HTTP contract. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func(token string)
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: base, http: hc, log: log}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Bind attaches the credential source and the hook fired on any 401 from an
// authenticated endpoint. The hook receives the token the rejected request carried.
func (c *Client) Bind(tokens TokenSource, onUnauthorized func(token string)) {
	c.mu.Lock()
	c.tokens = tokens
	c.onUnauthorized = onUnauthorized
	c.mu.Unlock()
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   bool

	// unavailable replaces the generic message for non-2xx responses without a detail.
	unavailable string
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return TransportError{Op: r.op, Err: err, Message: fmt.Sprintf("Failed to %s: %v", r.op, err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return TransportError{Op: r.op, Err: err, Message: fmt.Sprintf("Failed to %s: %v", r.op, err)}
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	tokens := c.tokens
	onUnauthorized := c.onUnauthorized
	c.mu.RUnlock()

	tok := ""
	if r.auth {
		ok := false
		if tokens != nil {
			tok, ok = tokens.Token()
		}
		if !ok || strings.TrimSpace(tok) == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("op", r.op),
			zap.String("request_id", reqID),
			zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return err
		}
		return TransportError{Op: r.op, Err: err, Message: fmt.Sprintf("Failed to %s: %v", r.op, err)}
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return TransportError{Op: r.op, Status: resp.StatusCode, Err: err, Message: fmt.Sprintf("Failed to %s: %v", r.op, err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return TransportError{Op: r.op, Status: resp.StatusCode, Err: err, Message: fmt.Sprintf("Failed to %s: malformed response", r.op)}
		}
		return nil
	}

	detail := parseDetail(raw)
	if resp.StatusCode == http.StatusUnauthorized && r.auth {
		c.log.Info("authentication expired", zap.String("op", r.op), zap.String("request_id", reqID))
		if onUnauthorized != nil {
			onUnauthorized(tok)
		}
		return AuthExpiredError{Op: r.op, Detail: detail}
	}

	msg := detail
	if msg == "" {
		msg = r.unavailable
	}
	if msg == "" {
		msg = defaultErrorMessage
	}
	return TransportError{Op: r.op, Status: resp.StatusCode, Message: msg}
}
