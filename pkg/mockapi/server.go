// Package mockapi serves an in-process imitation of the LMS API for
// development and tests.
//
// The server keeps its data in memory and implements the subset of the API
// the client's cached resources depend on: the profile, courses with their
// modules, and enrollments. Errors use the API's {"detail": "..."} shape.
// Every request is counted, and failures can be queued per route to exercise
// retries:
//
//	srv := mockapi.NewServer()
//	srv.Inject(http.MethodGet, "/courses/", 503, 503)
//	ts := httptest.NewServer(srv)
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cyberedpro/cybered/pkg/api"
)

// Prefix is the path the API is mounted under.
const Prefix = "/api/v1"

// Server is an in-memory LMS API. It is safe for concurrent use.
type Server struct {
	router chi.Router
	logger *log.Logger
	delay  time.Duration

	mu          sync.Mutex
	users       map[int]*api.User
	passwords   map[string]string
	tokens      map[string]int
	courses     map[int]*api.Course
	enrollments map[int]*api.Enrollment
	nextID      int
	hits        map[string]int
	injected    map[string][]int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs each request at debug level.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDelay holds every response for d, for exercising client timeouts.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// NewServer returns a server loaded with the demo data.
func NewServer(opts ...Option) *Server {
	s := &Server{
		users:       seedUsers(),
		passwords:   map[string]string{DemoEmail: DemoPassword},
		tokens:      make(map[string]int),
		courses:     seedCourses(),
		enrollments: seedEnrollments(),
		nextID:      100,
		hits:        make(map[string]int),
		injected:    make(map[string][]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route(Prefix, func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.With(s.authenticated).Get("/me", s.me)
			r.With(s.authenticated).Put("/me", s.updateMe)
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.listCourses)
			r.With(s.authenticated).Post("/", s.createCourse)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCourse)
				r.With(s.authenticated).Put("/", s.updateCourse)
				r.With(s.authenticated).Delete("/", s.deleteCourse)
				r.Get("/modules", s.listModules)
				r.With(s.authenticated).Post("/modules", s.addModule)
			})
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Use(s.authenticated)
			r.Get("/", s.listEnrollments)
			r.Post("/", s.createEnrollment)
			r.Get("/{id}", s.getEnrollment)
			r.Put("/{id}", s.updateEnrollment)
			r.Delete("/{id}", s.deleteEnrollment)
		})
	})
	return r
}

// Inject queues statuses to answer the next requests to method and path
// (relative to [Prefix]) with, before normal handling resumes.
func (s *Server) Inject(method, path string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := routeKey(method, path)
	s.injected[key] = append(s.injected[key], statuses...)
}

// Hits returns how many requests reached method and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, path)]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.hits {
		n += c
	}
	return n
}

// IssueToken returns a valid token for the demo user without a login call.
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(1)
}

func (s *Server) issueLocked(userID int) string {
	token := "mock-" + uuid.NewString()
	s.tokens[token] = userID
	return token
}

func routeKey(method, path string) string {
	return method + " " + path
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := routeKey(r.Method, strings.TrimPrefix(r.URL.Path, Prefix))

		s.mu.Lock()
		s.hits[key]++
		var status int
		if queue := s.injected[key]; len(queue) > 0 {
			status, s.injected[key] = queue[0], queue[1:]
		}
		s.mu.Unlock()

		if s.logger != nil {
			s.logger.Debug("mock request", "method", r.Method, "path", r.URL.Path, "injected", status)
		}
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tokenKey struct{}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !valid {
			writeError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withToken(r.Context(), token)))
	})
}

// =============================================================================
// Responses
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid id %q", chi.URLParam(r, "id")))
		return 0, false
	}
	return id, true
}

func sortedValues[T any](m map[int]*T) []T {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m[id])
	}
	return out
}

func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05")
}
