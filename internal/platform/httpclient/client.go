package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	randv2 "math/rand/v2"
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"webappbot/internal/platform/logger"
	"webappbot/pkg/retry"
)

// Client wraps http.Client with logging and retries.
type Client struct {
	hc            *stdhttp.Client
	log           *slog.Logger
	retries       int
	baseBackoff   time.Duration
	maxBackoff    time.Duration
	headers       map[string]string
	retryIf       func(*stdhttp.Request) bool
	maxReplayBody int64
	retryPolicy   func(*stdhttp.Response, error) (time.Duration, bool)
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout. Long polling needs it above the poll timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables retries with exponential backoff and jitter.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.baseBackoff = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth. Retry-After is capped too.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(h))
		}
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithRetryIf decides per request whether retries apply. The default allows
// idempotent methods only.
func WithRetryIf(f func(*stdhttp.Request) bool) Option {
	return func(c *Client) {
		if f != nil {
			c.retryIf = f
		}
	}
}

// RetryPaths allows retries for requests whose path ends with one of the suffixes.
// Bot API methods are all POST, so the method alone says nothing.
func RetryPaths(suffixes ...string) func(*stdhttp.Request) bool {
	return func(r *stdhttp.Request) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(r.URL.Path, s) {
				return true
			}
		}
		return false
	}
}

// ErrReplayBodyTooLarge indicates request body exceeds replay limit.
var ErrReplayBodyTooLarge = errors.New("http: body too large for replay")

// New creates configured Client.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 16
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ExpectContinueTimeout = 1 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log:           slog.Default(),
		baseBackoff:   200 * time.Millisecond,
		maxBackoff:    10 * time.Second,
		maxReplayBody: 1 << 20,
		retryPolicy:   retryInfo,
		retryIf:       idempotent,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func idempotent(r *stdhttp.Request) bool {
	switch r.Method {
	case stdhttp.MethodGet, stdhttp.MethodHead, stdhttp.MethodOptions, stdhttp.MethodPut, stdhttp.MethodDelete:
		return true
	}
	return false
}

// retryAfter parses Retry-After header value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}

func redactURL(u *url.URL) string {
	return logger.RedactToken(u.Redacted())
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

// retryInfo reports whether a response or error is worth another attempt and
// the delay the server asked for. It leaves the body alone: the caller
// either drains it before retrying or hands the response back.
func retryInfo(resp *stdhttp.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, retry.DefaultRetryable(err) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch {
	case resp.StatusCode == 408, resp.StatusCode == 425:
		return 0, true
	case resp.StatusCode == 429, resp.StatusCode >= 500:
		return retryAfter(resp.Header.Get("Retry-After")), true
	default:
		return 0, false
	}
}

// bufferBody makes req replayable.
func (c *Client) bufferBody(req *stdhttp.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	var r io.Reader = req.Body
	if c.maxReplayBody > 0 {
		r = io.LimitReader(req.Body, c.maxReplayBody+1)
	}
	body, err := io.ReadAll(r)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	if c.maxReplayBody > 0 && int64(len(body)) > c.maxReplayBody {
		return ErrReplayBodyTooLarge
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	req.Body, _ = req.GetBody()
	return nil
}

// Do sends HTTP request with context, logging and retries.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	retries := 0
	if c.retryIf(req) {
		retries = c.retries
	}
	if retries > 0 {
		if err := c.bufferBody(req); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		if attempt > 1 && r.GetBody != nil {
			rc, err := r.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = rc
		}

		u := redactURL(r.URL)
		st := time.Now()
		resp, err := c.hc.Do(r)
		dur := time.Since(st)

		delay, again := c.retryPolicy(resp, err)
		if !again || attempt > retries {
			// no further attempt: the caller gets the response with its body
			if err != nil {
				c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Any("error", err))
				return nil, err
			}
			c.log.Debug("http request", slog.String("method", r.Method), slog.String("url", u), slog.Int("status", resp.StatusCode), slog.Duration("dur", dur), slog.Int("attempt", attempt))
			return resp, nil
		}

		wait := delay
		if wait == 0 {
			wait = c.baseBackoff * time.Duration(1<<uint(attempt-1))
			if wait > 0 {
				wait += time.Duration(randv2.Int64N(int64(wait)))
			}
		}
		if c.maxBackoff > 0 && wait > c.maxBackoff {
			wait = c.maxBackoff
		}

		if err != nil {
			c.log.Warn("http request error", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Any("error", err))
		} else {
			drainAndClose(resp.Body)
			c.log.Warn("http request status", slog.String("method", r.Method), slog.String("url", u), slog.Int("attempt", attempt), slog.Duration("wait", wait), slog.Int("status", resp.StatusCode))
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// Std adapts the client to the Do(*http.Request) shape used by API client
// libraries. The request context is used for cancellation.
func (c *Client) Std() *StdClient {
	return &StdClient{c: c}
}

// StdClient is returned by Client.Std.
type StdClient struct{ c *Client }

// Do sends req with req.Context().
func (s *StdClient) Do(req *stdhttp.Request) (*stdhttp.Response, error) {
	return s.c.Do(req.Context(), req)
}
