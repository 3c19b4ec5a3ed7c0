package authapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/canonid/canonid/pkg/email"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
	"github.com/canonid/canonid/svc/store"
	"github.com/canonid/canonid/svc/verification"
)

// Service wires the account API handlers to the directory, the metadata
// store and the reconciliation engine.
type Service struct {
	cfg     Config
	dir     directory.Directory
	store   store.Store
	engine  *reconcile.Engine
	codes   verification.Store
	codeTTL time.Duration
	sender  email.EmailSender
	log     *slog.Logger
	now     func() time.Time

	setupThrottle func(http.Handler) http.Handler
}

// Option configures the Service.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSetupThrottle installs a middleware on the password-setup start
// route, which triggers outbound email and needs abuse protection.
func WithSetupThrottle(mw func(http.Handler) http.Handler) Option {
	return func(s *Service) {
		s.setupThrottle = mw
	}
}

// NewService creates the account API service.
func NewService(
	cfg Config,
	dir directory.Directory,
	st store.Store,
	engine *reconcile.Engine,
	codes verification.Store,
	codeTTL time.Duration,
	sender email.EmailSender,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:     cfg,
		dir:     dir,
		store:   st,
		engine:  engine,
		codes:   codes,
		codeTTL: codeTTL,
		sender:  sender,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router, mountable under /auth.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/discover", s.discover)
	r.Group(func(throttled chi.Router) {
		if s.setupThrottle != nil {
			throttled.Use(s.setupThrottle)
		}
		throttled.Post("/password-setup/start", s.passwordSetupStart)
	})
	r.Post("/password-setup/complete", s.passwordSetupComplete)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireSession)
		protected.Get("/methods", s.methods)
		protected.Post("/set-password", s.setPassword)
	})

	return r
}

// errorResponse is the JSON error envelope for every non-2xx answer.
type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (s *Service) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("account api: response encode failed", slog.String("error", err.Error()))
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, message, code string) {
	s.respond(w, status, errorResponse{Message: message, Code: code})
}

// decodeBody parses the JSON request body into dst, answering 400 itself
// on malformed input. Returns false when the request was already handled.
func (s *Service) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body", "INVALID_BODY")
		return false
	}
	return true
}
