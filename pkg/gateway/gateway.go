package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/cyberedpro/cybered/pkg/buildinfo"
	"github.com/cyberedpro/cybered/pkg/cache"
	apierrors "github.com/cyberedpro/cybered/pkg/errors"
	"github.com/cyberedpro/cybered/pkg/httputil"
	"github.com/cyberedpro/cybered/pkg/observability"
)

// Options configures a Gateway. Zero values select the defaults.
type Options struct {
	// BaseURL is prepended to every endpoint. Required.
	BaseURL string

	// Timeout bounds each attempt. Default 10s.
	Timeout time.Duration

	// MaxAttempts is the retry budget per call, including the first attempt.
	// Default 3.
	MaxAttempts int

	// Backoff is the wait after the first failed attempt; it doubles after
	// each further failure. Default 1s.
	Backoff time.Duration

	// HTTPClient sends the requests. Default is a client without its own
	// timeout, since every attempt is already bounded.
	HTTPClient *http.Client

	// Cache is the response cache. Default is an in-memory table with the
	// standard routes.
	Cache *cache.Table

	// Tokens supplies the bearer token. Nil sends every request
	// unauthenticated.
	Tokens TokenSource

	// Logger receives debug and retry logs. Default discards.
	Logger *log.Logger

	// Headers are added to every request before the gateway's own headers.
	Headers map[string]string

	// Sleep replaces the backoff wait. Tests use it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Gateway issues API calls with caching, retries and per-attempt deadlines.
// It is safe for concurrent use.
type Gateway struct {
	baseURL string
	timeout time.Duration
	policy  httputil.Policy
	http    *http.Client
	cache   *cache.Table
	tokens  TokenSource
	logger  *log.Logger
	headers map[string]string
}

// New validates opts and returns a Gateway.
func New(opts Options) (*Gateway, error) {
	if err := apierrors.ValidateURL(opts.BaseURL); err != nil {
		return nil, apierrors.Wrap(apierrors.ErrCodeInvalidConfig, err, "invalid base URL %q", opts.BaseURL)
	}

	g := &Gateway{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		http:    opts.HTTPClient,
		cache:   opts.Cache,
		tokens:  opts.Tokens,
		logger:  opts.Logger,
		headers: opts.Headers,
	}
	if g.timeout <= 0 {
		g.timeout = httputil.DefaultTimeout
	}
	if g.http == nil {
		g.http = &http.Client{}
	}
	if g.logger == nil {
		g.logger = log.New(io.Discard)
	}
	if g.cache == nil {
		g.cache = cache.NewTable(cache.WithLogger(g.logger))
	}

	g.policy = httputil.Policy{
		Attempts: opts.MaxAttempts,
		Delay:    opts.Backoff,
		Sleep:    opts.Sleep,
	}
	if g.policy.Attempts <= 0 {
		g.policy.Attempts = httputil.DefaultAttempts
	}
	if g.policy.Delay <= 0 {
		g.policy.Delay = httputil.DefaultDelay
	}
	return g, nil
}

// BaseURL returns the URL every endpoint is resolved against.
func (g *Gateway) BaseURL() string { return g.baseURL }

// Cache returns the gateway's response cache.
func (g *Gateway) Cache() *cache.Table { return g.cache }

// Call sends method to endpoint and returns the JSON response.
//
// A nil result with a nil error means the server answered with no content.
// body may be nil, []byte, json.RawMessage or any value encodable as JSON.
// useCache only affects GET: it lets the call be answered from, and
// stored into, the response cache. Successful writes always invalidate the
// affected cache slots.
//
// Failures are a TIMEOUT or NETWORK_ERROR [apierrors.Error] once the retry
// budget is spent, an [apierrors.HTTPError] for non-2xx responses, or the
// context's error if ctx is cancelled.
func (g *Gateway) Call(ctx context.Context, endpoint, method string, body any, useCache bool) (json.RawMessage, error) {
	if err := apierrors.ValidateMethod(method); err != nil {
		return nil, err
	}
	if err := apierrors.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	token := g.token(ctx)
	ctx = cache.WithScope(ctx, cache.CredentialScope(token))

	read := method == http.MethodGet
	if read && useCache {
		if data, ok := g.cache.Lookup(ctx, endpoint); ok {
			return data, nil
		}
	}

	req := &request{
		method:   method,
		url:      g.baseURL + endpoint,
		endpoint: endpoint,
		body:     payload,
		header:   g.header(token),
	}

	logger := g.logger.With("method", method, "endpoint", endpoint, "request_id", req.header.Get(headerRequestID))
	data, err := g.do(ctx, req, logger)
	if err != nil {
		logger.Error("request failed", "err", err)
		return nil, err
	}

	switch {
	case read && useCache:
		g.cache.Store(ctx, endpoint, data)
	case !read:
		g.cache.Invalidate(ctx, endpoint)
	}
	return data, nil
}

// CacheContext scopes ctx to the credential the gateway would send now, for
// callers that use [Gateway.Cache] directly.
func (g *Gateway) CacheContext(ctx context.Context) context.Context {
	return cache.WithScope(ctx, cache.CredentialScope(g.token(ctx)))
}

// InvalidateAll empties the response cache, including any mirror.
func (g *Gateway) InvalidateAll(ctx context.Context) error {
	return g.cache.InvalidateAll(ctx)
}

// Get issues a cached GET and decodes the result into v.
func (g *Gateway) Get(ctx context.Context, endpoint string, v any) error {
	return g.callInto(ctx, endpoint, http.MethodGet, nil, true, v)
}

// Post issues a POST with body and decodes the result into v.
func (g *Gateway) Post(ctx context.Context, endpoint string, body, v any) error {
	return g.callInto(ctx, endpoint, http.MethodPost, body, false, v)
}

// Put issues a PUT with body and decodes the result into v.
func (g *Gateway) Put(ctx context.Context, endpoint string, body, v any) error {
	return g.callInto(ctx, endpoint, http.MethodPut, body, false, v)
}

// Patch issues a PATCH with body and decodes the result into v.
func (g *Gateway) Patch(ctx context.Context, endpoint string, body, v any) error {
	return g.callInto(ctx, endpoint, http.MethodPatch, body, false, v)
}

// Delete issues a DELETE and decodes the result, if any, into v.
func (g *Gateway) Delete(ctx context.Context, endpoint string, v any) error {
	return g.callInto(ctx, endpoint, http.MethodDelete, nil, false, v)
}

func (g *Gateway) callInto(ctx context.Context, endpoint, method string, body any, useCache bool, v any) error {
	data, err := g.Call(ctx, endpoint, method, body, useCache)
	if err != nil {
		return err
	}
	return Decode(data, v)
}

// Decode unmarshals a Call result into v. A nil result or nil v is a no-op.
func Decode(data json.RawMessage, v any) error {
	if v == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apierrors.Wrap(apierrors.ErrCodeInvalidFormat, err, "decode response")
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ErrCodeInvalidInput, err, "encode request body")
	}
	return data, nil
}

const (
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
)

// token returns the bearer token for one call, or "" when none is available.
func (g *Gateway) token(ctx context.Context) string {
	if g.tokens == nil {
		return ""
	}
	token, err := g.tokens.Token(ctx)
	if err != nil {
		g.logger.Warn("token unavailable, sending request without credentials", "err", err)
		return ""
	}
	return token
}

// header builds the headers shared by every attempt of one call.
func (g *Gateway) header(token string) http.Header {
	h := make(http.Header)
	for k, v := range g.headers {
		h.Set(k, v)
	}
	h.Set("Content-Type", contentTypeJSON)
	h.Set("Accept", contentTypeJSON)
	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", buildinfo.UserAgent())
	}
	h.Set(headerRequestID, uuid.NewString())
	if token != "" {
		h.Set(headerAuthorization, "Bearer "+token)
	}
	return h
}

// retryLogger adapts the policy's retry callback to the logger and hooks.
func (g *Gateway) retryLogger(ctx context.Context, req *request, logger *log.Logger) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		logger.Warn("request attempt failed, retrying",
			"attempt", attempt+1, "max_attempts", g.policy.Attempts, "delay", delay, "err", err)
		observability.HTTP().OnRetry(ctx, req.method, req.endpoint, attempt, delay, err)
	}
}

// do runs the network phase of a call: retries around deadline-bounded
// attempts, classifying each response.
func (g *Gateway) do(ctx context.Context, req *request, logger *log.Logger) (json.RawMessage, error) {
	policy := g.policy
	policy.OnRetry = g.retryLogger(ctx, req, logger)

	var data json.RawMessage
	err := httputil.Retry(ctx, policy, func(attempt int) error {
		res, err := httputil.WithTimeout(ctx, g.timeout, func(ctx context.Context) (*response, error) {
			return g.send(ctx, req)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			observability.HTTP().OnError(ctx, req.method, req.host(), req.endpoint, err)
			return err
		}
		logger.Debug("response", "attempt", attempt+1, "status", res.status, "bytes", len(res.body))
		data, err = classify(res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// sendBody returns a fresh reader for each attempt.
func sendBody(payload []byte) io.Reader {
	if payload == nil {
		return http.NoBody
	}
	return bytes.NewReader(payload)
}
