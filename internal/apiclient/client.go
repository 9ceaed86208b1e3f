package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/events"
	"github.com/spec-kit/tr4ction-console/internal/observability"
	"github.com/spec-kit/tr4ction-console/internal/session"
)

const (
	headerRequestID   = "X-Request-ID"
	contentTypeJSON   = "application/json"
	defaultTimeout    = 30 * time.Second
	maxErrorBodyBytes = 64 << 10
)

// Client talks to the backend REST API on behalf of the signed-in user.
// It is safe for concurrent use; the only shared state it writes is the
// session store, and only to clear it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	retry      RetryPolicy
	timeout    time.Duration
	logger     *zap.Logger
	metrics    *observability.Metrics
	events     events.Dispatcher
	now        func() time.Time
	sleep      func(context.Context, time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the backoff settings.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p.normalized() }
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records attempts, retries and failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDispatcher receives session lifecycle events.
func WithDispatcher(d events.Dispatcher) Option {
	return func(c *Client) { c.events = d }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithSleep overrides the backoff wait.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New builds a client. baseURL is fixed for the client's lifetime.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		store:      store,
		retry:      DefaultRetryPolicy(),
		timeout:    defaultTimeout,
		logger:     zap.NewNop(),
		events:     events.Nop{},
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the API section of the config.
func NewFromConfig(cfg config.APIConfig, store session.Store, opts ...Option) *Client {
	base := []Option{
		WithRetryPolicy(RetryPolicyFromConfig(cfg)),
		WithTimeout(cfg.Timeout()),
	}
	return New(cfg.BaseURL, store, append(base, opts...)...)
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session exposes the store the client reads the token from.
func (c *Client) Session() session.Store {
	return c.store
}

// Request describes one API call. Body is JSON-encoded when non-nil.
// Retryable overrides the default (true) when set.
type Request struct {
	Method    string
	Path      string
	Body      any
	Retryable *bool
}

// CallOption adjusts a Request built by the verb helpers.
type CallOption func(*Request)

// NoRetry disables retries for one call.
func NoRetry() CallOption {
	return func(r *Request) {
		no := false
		r.Retryable = &no
	}
}

// Get issues GET path and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, buildRequest(http.MethodGet, path, nil, opts), out)
}

// Post issues POST path with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, buildRequest(http.MethodPost, path, body, opts), out)
}

// Put issues PUT path with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.Do(ctx, buildRequest(http.MethodPut, path, body, opts), out)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, buildRequest(http.MethodDelete, path, nil, opts), out)
}

func buildRequest(method, path string, body any, opts []CallOption) Request {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Do runs req with the retry policy and decodes a 2xx body into out. An
// empty body leaves out untouched; out may be nil to discard the body.
// Every failure is an *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return &Error{Kind: KindInvalidRequest, Message: "corpo da requisição inválido", Err: err}
		}
		payload = data
	}

	retryable := req.Retryable == nil || *req.Retryable
	delay := c.retry.InitialDelay

	for attempt := 1; ; attempt++ {
		body, status, apiErr := c.attempt(ctx, req.Method, req.Path, payload, attempt)
		if apiErr == nil {
			return decodeInto(status, body, out)
		}

		if !retryable || !apiErr.retryable() || attempt >= c.retry.MaxAttempts || ctx.Err() != nil {
			c.metrics.RecordError(req.Path, req.Method, string(apiErr.Kind))
			return apiErr
		}

		c.metrics.RecordRetry(req.Path, req.Method)
		c.logger.Warn("retrying request",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("attempt", attempt),
			zap.Int("status", apiErr.Status),
			zap.String("kind", string(apiErr.Kind)),
			zap.Duration("delay", delay),
			zap.String("request_id", apiErr.RequestID),
		)

		if err := c.sleep(ctx, delay); err != nil {
			canceled := &Error{Kind: KindCanceled, Message: MsgCanceled, RequestID: apiErr.RequestID, Err: err}
			c.metrics.RecordError(req.Path, req.Method, string(canceled.Kind))
			return canceled
		}
		delay = c.retry.next(delay)
	}
}

// attempt performs one round-trip with a fresh token check and timeout.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, attempt int) ([]byte, int, *Error) {
	attemptCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	start := time.Now()
	resp, requestID, apiErr := c.send(ctx, attemptCtx, method, path, body, contentTypeJSON)
	if apiErr != nil {
		c.logAttempt(method, path, attempt, apiErr.Status, requestID, time.Since(start))
		return nil, apiErr.Status, apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fromTransport(ctx, err, requestID)
	}
	c.logAttempt(method, path, attempt, resp.StatusCode, requestID, time.Since(start))
	return data, resp.StatusCode, nil
}

// send authorizes and dispatches one request. On success the caller owns
// resp.Body; every non-2xx is consumed and normalized here.
func (c *Client) send(parent, ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, string, *Error) {
	requestID := uuid.NewString()

	token, apiErr := c.authorize(parent, method, path)
	if apiErr != nil {
		return nil, requestID, apiErr
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, requestID, &Error{Kind: KindInvalidRequest, Message: "requisição inválida", RequestID: requestID, Err: err}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set(headerRequestID, requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(path, method, 0, time.Since(start))
		return nil, requestID, fromTransport(parent, err, requestID)
	}
	c.metrics.RecordRequest(path, method, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, requestID, nil
	}

	defer resp.Body.Close()
	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode == http.StatusUnauthorized {
		c.teardown(parent, token != "", events.ReasonRejected, method, path)
	}
	return nil, requestID, fromResponse(resp.StatusCode, errBody, requestID)
}

// authorize returns the stored token, or tears the session down without a
// network call when the token is already expired.
func (c *Client) authorize(ctx context.Context, method, path string) (string, *Error) {
	current, err := c.store.Load(ctx)
	if err != nil {
		return "", &Error{Kind: KindSession, Message: MsgSessionStore, Err: err}
	}
	if current.Empty() {
		return "", nil
	}
	if session.TokenExpired(current.Token, c.now()) {
		c.teardown(ctx, true, events.ReasonTokenExpired, method, path)
		return "", sessionExpired()
	}
	return current.Token, nil
}

// teardown clears the stored session. It is idempotent, so a proactive
// expiry and a 401 racing each other converge on the same state.
func (c *Client) teardown(ctx context.Context, hadToken bool, reason events.ExpiryReason, method, path string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	if !hadToken {
		return
	}

	c.logger.Info("session ended", zap.String("reason", string(reason)), zap.String("path", path))
	ev := events.New(events.EventSessionExpired, events.SessionExpiredPayload{Reason: reason, Method: method, Path: path})
	if err := c.events.Publish(ctx, ev); err != nil {
		c.logger.Warn("session event handler failed", zap.Error(err))
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) logAttempt(method, path string, attempt, status int, requestID string, elapsed time.Duration) {
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("attempt", attempt),
		zap.Int("status", status),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", elapsed),
	)
}

func decodeInto(status int, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Status: status, Kind: KindDecode, Message: MsgInvalidResponse, Err: err}
	}
	return nil
}
