package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyberedpro/cybered/pkg/cache"
	apierrors "github.com/cyberedpro/cybered/pkg/errors"
)

// recordSleep captures backoff waits without blocking.
func recordSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

// newTestGateway points a gateway at srv with instant backoff.
func newTestGateway(t *testing.T, srv *httptest.Server, opts Options) *Gateway {
	t.Helper()
	opts.BaseURL = srv.URL + "/api/v1"
	if opts.Sleep == nil {
		opts.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	}
	g, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "http://"} {
		_, err := New(Options{BaseURL: raw})
		if !apierrors.Is(err, apierrors.ErrCodeInvalidConfig) {
			t.Errorf("New(%q) error = %v, want INVALID_CONFIG", raw, err)
		}
	}
}

func TestCall_CourseListScenario(t *testing.T) {
	var gets, posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/courses/" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			writeJSON(w, http.StatusOK, `[{"id":1}]`)
		case http.MethodPost:
			posts.Add(1)
			writeJSON(w, http.StatusCreated, `{"id":2}`)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	g := newTestGateway(t, srv, Options{})

	data, err := g.Call(ctx, "/courses/", http.MethodGet, nil, true)
	if err != nil {
		t.Fatalf("first GET: %v", err)
	}
	if string(data) != `[{"id":1}]` {
		t.Errorf("first GET = %s", data)
	}
	if gets.Load() != 1 {
		t.Fatalf("network GETs = %d, want 1", gets.Load())
	}

	if _, err := g.Call(ctx, "/courses/", http.MethodGet, nil, true); err != nil {
		t.Fatalf("second GET: %v", err)
	}
	if gets.Load() != 1 {
		t.Errorf("second GET went to the network (GETs = %d)", gets.Load())
	}

	if _, err := g.Call(ctx, "/courses/", http.MethodPost, map[string]string{"title": "Go"}, false); err != nil {
		t.Fatalf("POST: %v", err)
	}
	if _, ok := g.Cache().Lookup(ctx, "/courses/"); ok {
		t.Error("course list still cached after POST")
	}

	if _, err := g.Call(ctx, "/courses/", http.MethodGet, nil, true); err != nil {
		t.Fatalf("third GET: %v", err)
	}
	if gets.Load() != 2 {
		t.Errorf("network GETs = %d, want 2", gets.Load())
	}
}

func TestCall_RetryEligibility(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		attempts  int
		wantCalls int32
		wantWaits []time.Duration
	}{
		{"not found is terminal", http.StatusNotFound, 4, 1, nil},
		{"bad request is terminal", http.StatusBadRequest, 3, 1, nil},
		{"unavailable is retried", http.StatusServiceUnavailable, 4, 4, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"internal error is retried", http.StatusInternalServerError, 3, 3, []time.Duration{time.Second, 2 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, `{"detail":"nope"}`)
			}))
			defer srv.Close()

			var waits []time.Duration
			g := newTestGateway(t, srv, Options{MaxAttempts: tt.attempts, Sleep: recordSleep(&waits)})

			_, err := g.Call(context.Background(), "/courses/9", http.MethodGet, nil, true)
			httpErr, ok := apierrors.AsHTTP(err)
			if !ok {
				t.Fatalf("error = %v, want HTTPError", err)
			}
			if httpErr.Status != tt.status || httpErr.Message != "nope" {
				t.Errorf("HTTPError = %d %q, want %d %q", httpErr.Status, httpErr.Message, tt.status, "nope")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("attempts = %d, want %d", got, tt.wantCalls)
			}
			if !reflect.DeepEqual(waits, tt.wantWaits) {
				t.Errorf("waits = %v, want %v", waits, tt.wantWaits)
			}
		})
	}
}

func TestCall_RecoversAfterServerError(t *testing.T) {
	var calls atomic.Int32
	var ids sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		ids.Store(r.Header.Get(headerRequestID), true)
		if n == 1 {
			writeJSON(w, http.StatusBadGateway, `upstream down`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":5,"title":"Networks"}`)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{})
	var course struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	if err := g.Get(context.Background(), "/courses/5", &course); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if course.ID != 5 || course.Title != "Networks" {
		t.Errorf("course = %+v", course)
	}
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}

	distinct := 0
	ids.Range(func(any, any) bool { distinct++; return true })
	if distinct != 1 {
		t.Errorf("X-Request-ID changed across retries (%d distinct values)", distinct)
	}
	if _, ok := g.Cache().Lookup(context.Background(), "/courses/5"); !ok {
		t.Error("successful retried GET was not cached")
	}
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	const timeout = 50 * time.Millisecond
	g := newTestGateway(t, srv, Options{Timeout: timeout, MaxAttempts: 2})

	start := time.Now()
	_, err := g.Call(context.Background(), "/users/me", http.MethodGet, nil, true)
	elapsed := time.Since(start)

	if !apierrors.IsTimeout(err) {
		t.Fatalf("error = %v, want TIMEOUT", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("timeout should wrap context.DeadlineExceeded")
	}
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
	if elapsed < 2*timeout {
		t.Errorf("returned after %v, before both attempts timed out", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("returned after %v, long past the deadline", elapsed)
	}
	if _, ok := g.Cache().Lookup(context.Background(), "/users/me"); ok {
		t.Error("failed call populated the cache")
	}
}

func TestCall_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ctx := context.Background()
	g := newTestGateway(t, srv, Options{})
	g.Cache().Store(ctx, "/courses/", json.RawMessage(`[]`))
	g.Cache().Store(ctx, "/courses/3", json.RawMessage(`{"id":3}`))
	g.Cache().Store(ctx, "/courses/4", json.RawMessage(`{"id":4}`))

	data, err := g.Call(ctx, "/courses/3", http.MethodDelete, nil, false)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	if data != nil {
		t.Errorf("DELETE result = %s, want nil", data)
	}

	if _, ok := g.Cache().Lookup(ctx, "/courses/3"); ok {
		t.Error("deleted course still cached")
	}
	if _, ok := g.Cache().Lookup(ctx, "/courses/"); ok {
		t.Error("course list still cached")
	}
	if _, ok := g.Cache().Lookup(ctx, "/courses/4"); !ok {
		t.Error("unrelated course was invalidated")
	}
}

func TestCall_CacheBypass(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `[{"id":"fresh"}]`)
	}))
	defer srv.Close()

	ctx := context.Background()
	g := newTestGateway(t, srv, Options{})
	g.Cache().Store(ctx, "/enrollments/", json.RawMessage(`[{"id":"cached"}]`))

	for i := 0; i < 2; i++ {
		data, err := g.Call(ctx, "/enrollments/", http.MethodGet, nil, false)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if string(data) != `[{"id":"fresh"}]` {
			t.Errorf("call %d = %s, want network data", i, data)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("network calls = %d, want 2", calls.Load())
	}
	if data, _ := g.Cache().Lookup(ctx, "/enrollments/"); string(data) != `[{"id":"cached"}]` {
		t.Errorf("cache = %s, bypassed call wrote to it", data)
	}
}

func TestCall_UncachedEndpoint(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{})
	for i := 0; i < 2; i++ {
		if _, err := g.Call(context.Background(), "/assessments/", http.MethodGet, nil, true); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("network calls = %d, want 2", calls.Load())
	}
}

func TestCall_FailedWriteKeepsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","title"],"msg":"field required","type":"value_error.missing"}]}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	g := newTestGateway(t, srv, Options{})
	g.Cache().Store(ctx, "/courses/", json.RawMessage(`[]`))

	err := g.Post(ctx, "/courses/", map[string]any{}, nil)
	if got := apierrors.UserMessage(err); got != "title: field required" {
		t.Errorf("UserMessage = %q", got)
	}
	if _, ok := g.Cache().Lookup(ctx, "/courses/"); !ok {
		t.Error("failed POST invalidated the cache")
	}
}

func TestCall_Headers(t *testing.T) {
	tests := []struct {
		name     string
		tokens   TokenSource
		wantAuth string
	}{
		{"no token source", nil, ""},
		{"static token", StaticToken("abc123"), "Bearer abc123"},
		{"empty token", StaticToken(""), ""},
		{"token error", TokenFunc(func(context.Context) (string, error) {
			return "", errors.New("keychain locked")
		}), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := make(chan http.Header, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				headers <- r.Header.Clone()
				writeJSON(w, http.StatusOK, `{}`)
			}))
			defer srv.Close()

			g := newTestGateway(t, srv, Options{Tokens: tt.tokens, Headers: map[string]string{"X-Client": "cli"}})
			if _, err := g.Call(context.Background(), "/users/me", http.MethodGet, nil, false); err != nil {
				t.Fatal(err)
			}
			got := <-headers

			if got.Get("Authorization") != tt.wantAuth {
				t.Errorf("Authorization = %q, want %q", got.Get("Authorization"), tt.wantAuth)
			}
			if got.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", got.Get("Content-Type"))
			}
			if got.Get(headerRequestID) == "" {
				t.Error("X-Request-ID missing")
			}
			if !strings.HasPrefix(got.Get("User-Agent"), "cybered/") {
				t.Errorf("User-Agent = %q", got.Get("User-Agent"))
			}
			if got.Get("X-Client") != "cli" {
				t.Errorf("X-Client = %q", got.Get("X-Client"))
			}
		})
	}
}

func TestCall_CacheIsolatedPerCredential(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		writeJSON(w, http.StatusOK, `{"user":"`+user+`"}`)
	}))
	defer srv.Close()

	mirror, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		name      string
		token     string
		want      string
		wantCalls int32
	}{
		{"alice fills the mirror", "alice", `{"user":"alice"}`, 1},
		{"bob misses alice's entry", "bob", `{"user":"bob"}`, 2},
		{"alice hits her own entry", "alice", `{"user":"alice"}`, 2},
		{"bob hits his own entry", "bob", `{"user":"bob"}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A fresh table per call stands in for a fresh process sharing the mirror.
			g := newTestGateway(t, srv, Options{
				Cache:  cache.NewTable(cache.WithMirror(mirror)),
				Tokens: StaticToken(tt.token),
			})
			data, err := g.Call(ctx, "/users/me", http.MethodGet, nil, true)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("profile = %s, want %s", data, tt.want)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("network calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestCall_TokenChangeDropsMemoryCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		writeJSON(w, http.StatusOK, `{"user":"`+user+`"}`)
	}))
	defer srv.Close()

	var token atomic.Value
	token.Store("alice")
	g := newTestGateway(t, srv, Options{
		Tokens: TokenFunc(func(context.Context) (string, error) { return token.Load().(string), nil }),
	})

	ctx := context.Background()
	if _, err := g.Call(ctx, "/users/me", http.MethodGet, nil, true); err != nil {
		t.Fatal(err)
	}
	token.Store("bob")
	data, err := g.Call(ctx, "/users/me", http.MethodGet, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"user":"bob"}` {
		t.Errorf("profile after token change = %s, want bob's", data)
	}

	if data, ok := g.Cache().Lookup(g.CacheContext(ctx), "/users/me"); !ok || string(data) != `{"user":"bob"}` {
		t.Errorf("Lookup in the current credential's scope = %s, %v", data, ok)
	}
	if _, ok := g.Cache().Lookup(ctx, "/users/me"); ok {
		t.Error("an unscoped lookup should not see a credentialed entry")
	}
}

func TestCall_RequestBody(t *testing.T) {
	type seen struct{ path, body string }
	requests := make(chan seen, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests <- seen{r.URL.Path, string(b)}
		writeJSON(w, http.StatusCreated, `{"id":11,"course_id":3}`)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{})
	var enrollment struct {
		ID       int `json:"id"`
		CourseID int `json:"course_id"`
	}
	if err := g.Post(context.Background(), "/enrollments/", map[string]int{"course_id": 3}, &enrollment); err != nil {
		t.Fatal(err)
	}
	got := <-requests
	if got.path != "/api/v1/enrollments/" {
		t.Errorf("path = %q", got.path)
	}
	if got.body != `{"course_id":3}` {
		t.Errorf("body = %q", got.body)
	}
	if enrollment.ID != 11 || enrollment.CourseID != 3 {
		t.Errorf("enrollment = %+v", enrollment)
	}
}

func TestCall_InvalidInput(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{})
	tests := []struct {
		endpoint, method string
		body             any
	}{
		{"/courses/", "OPTIONS", nil},
		{"/courses/", "get", nil},
		{"courses/", http.MethodGet, nil},
		{"/courses/../admin", http.MethodGet, nil},
		{"/courses/", http.MethodPost, make(chan int)},
	}
	for _, tt := range tests {
		_, err := g.Call(context.Background(), tt.endpoint, tt.method, tt.body, false)
		if !apierrors.Is(err, apierrors.ErrCodeInvalidInput) {
			t.Errorf("Call(%q, %q) error = %v, want INVALID_INPUT", tt.endpoint, tt.method, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("invalid calls reached the network %d times", calls.Load())
	}
}

func TestCall_InvalidJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `<html>oops</html>`)
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{})
	_, err := g.Call(context.Background(), "/courses/", http.MethodGet, nil, true)
	if !apierrors.Is(err, apierrors.ErrCodeInvalidFormat) {
		t.Fatalf("error = %v, want INVALID_FORMAT", err)
	}
	if calls.Load() != 1 {
		t.Errorf("attempts = %d, want 1", calls.Load())
	}
	if _, ok := g.Cache().Lookup(context.Background(), "/courses/"); ok {
		t.Error("invalid body was cached")
	}
}

func TestCall_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	g := newTestGateway(t, srv, Options{MaxAttempts: 3})
	srv.Close()

	var waits []time.Duration
	g.policy.Sleep = recordSleep(&waits)

	_, err := g.Call(context.Background(), "/users/me", http.MethodGet, nil, true)
	if !apierrors.IsNetwork(err) {
		t.Fatalf("error = %v, want NETWORK_ERROR", err)
	}
	if len(waits) != 2 {
		t.Errorf("waits = %v, want 2 backoffs", waits)
	}
}

func TestCall_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := newTestGateway(t, srv, Options{MaxAttempts: 3})
	_, err := g.Call(ctx, "/users/me", http.MethodGet, nil, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if apierrors.IsTimeout(err) {
		t.Error("cancellation reported as timeout")
	}
	if calls.Load() != 1 {
		t.Errorf("attempts = %d, want 1", calls.Load())
	}
}

func TestInvalidateAll(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx := context.Background()
	table := cache.NewTable()
	g := newTestGateway(t, srv, Options{Cache: table})
	table.Store(ctx, "/users/me", json.RawMessage(`{"id":1}`))
	table.Store(ctx, "/courses/8", json.RawMessage(`{"id":8}`))

	if err := g.InvalidateAll(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(table.Snapshot()); n != 0 {
		t.Errorf("%d entries left after InvalidateAll", n)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 401, `{"detail":"Could not validate credentials"}`, "Could not validate credentials"},
		{"detail list", 422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"loc":["query",0],"msg":"bad"}]}`, "email: value is not a valid email address; bad"},
		{"message field", 400, `{"message":"Email already registered"}`, "Email already registered"},
		{"empty body", 404, ``, "Not Found"},
		{"non-json body", 502, `Bad gateway from nginx`, "Bad Gateway"},
		{"json without message", 403, `{"error":true}`, "Forbidden"},
		{"unknown status", 599, ``, "status 599"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("errorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantData string
		wantCode apierrors.Code
	}{
		{"ok", 200, ` {"id":1} `, `{"id":1}`, ""},
		{"created", 201, `{"id":2}`, `{"id":2}`, ""},
		{"no content ignores body", 204, `garbage`, "", ""},
		{"empty ok", 200, ``, "", ""},
		{"invalid json", 200, `{`, "", apierrors.ErrCodeInvalidFormat},
		{"unauthorized", 401, `{"detail":"x"}`, "", apierrors.ErrCodeUnauthorized},
		{"server error", 500, ``, "", apierrors.ErrCodeHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := classify(&response{status: tt.status, body: []byte(tt.body)})
			if string(data) != tt.wantData {
				t.Errorf("data = %q, want %q", data, tt.wantData)
			}
			if code := apierrors.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q (err %v)", code, tt.wantCode, err)
			}
		})
	}
}
