package hooks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/pkg/sanitizer"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
)

// Denial reason codes returned to the directory on pre-signup.
const (
	ReasonMissingOrUnverifiedEmail = "MissingOrUnverifiedProviderEmail"
	ReasonLinkingFailed            = "LinkingFailed"
)

// Service translates directory event payloads into engine calls.
type Service struct {
	engine *reconcile.Engine
	log    *slog.Logger
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

// NewService creates the hook endpoint service.
func NewService(engine *reconcile.Engine, opts ...Option) *Service {
	s := &Service{engine: engine, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router, mountable under /hooks.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Post("/pre-signup", s.preSignup)
	r.Post("/post-confirmation", s.postConfirmation)
	r.Post("/post-authentication", s.postAuthentication)
	return r
}

type providerRefPayload struct {
	Provider string `json:"provider"`
	UserID   string `json:"providerUserId"`
}

func toProviderRefs(payload []providerRefPayload) []directory.ProviderRef {
	if len(payload) == 0 {
		return nil
	}
	refs := make([]directory.ProviderRef, 0, len(payload))
	for _, p := range payload {
		refs = append(refs, directory.ProviderRef{Provider: p.Provider, UserID: p.UserID})
	}
	return refs
}

type preSignupRequest struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"providerUserId"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"emailVerified"`
}

type preSignupResponse struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// preSignup gates admission of a new identity. Unlike the other hooks its
// outcome is binding: a deny response aborts the directory's signup.
func (s *Service) preSignup(w http.ResponseWriter, r *http.Request) {
	var req preSignupRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.engine.PreSignup(r.Context(), reconcile.PreSignupEvent{
		Provider:       req.Provider,
		ProviderUserID: req.ProviderUserID,
		Email:          req.Email,
		EmailVerified:  req.EmailVerified,
	})
	switch {
	case err == nil:
		s.respond(w, preSignupResponse{Allow: true})
	case errors.Is(err, reconcile.ErrMissingOrUnverifiedProviderEmail):
		s.respond(w, preSignupResponse{Allow: false, Reason: ReasonMissingOrUnverifiedEmail})
	case errors.Is(err, reconcile.ErrLinkingFailed):
		s.respond(w, preSignupResponse{Allow: false, Reason: ReasonLinkingFailed})
	default:
		s.log.ErrorContext(r.Context(), "pre-signup hook failed",
			logger.Error(err), logger.Email(sanitizer.MaskEmail(req.Email)))
		s.respond(w, preSignupResponse{Allow: false, Reason: ReasonLinkingFailed})
	}
}

type confirmationRequest struct {
	IdentityID string               `json:"identityId"`
	Email      string               `json:"email"`
	Username   string               `json:"username"`
	Identities []providerRefPayload `json:"identities"`
}

// postConfirmation seeds account metadata after a confirmed signup. The
// directory ignores the response body, so the handler always answers 204
// and keeps engine errors on the alarm channel.
func (s *Service) postConfirmation(w http.ResponseWriter, r *http.Request) {
	var req confirmationRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.engine.ConfirmSignup(r.Context(), reconcile.ConfirmationEvent{
		IdentityID: req.IdentityID,
		Email:      req.Email,
		Username:   req.Username,
		Providers:  toProviderRefs(req.Identities),
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "post-confirmation reconciliation failed",
			logger.Error(err), logger.IdentityID(req.IdentityID))
	}
	w.WriteHeader(http.StatusNoContent)
}

type authenticationRequest struct {
	IdentityID string               `json:"identityId"`
	Email      string               `json:"email"`
	Identities []providerRefPayload `json:"identities"`
}

// postAuthentication reconciles metadata after a successful login. Always
// 204; a login must never regress because reconciliation hiccuped.
func (s *Service) postAuthentication(w http.ResponseWriter, r *http.Request) {
	var req authenticationRequest
	if !s.decode(w, r, &req) {
		return
	}

	err := s.engine.PostLogin(r.Context(), reconcile.AuthenticationEvent{
		IdentityID: req.IdentityID,
		Email:      req.Email,
		Providers:  toProviderRefs(req.Identities),
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "post-authentication reconciliation failed",
			logger.Error(err), logger.IdentityID(req.IdentityID))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Service) respond(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("hook response encode failed", slog.String("error", err.Error()))
	}
}
