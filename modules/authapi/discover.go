package authapi

import (
	"net/http"

	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/pkg/sanitizer"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
	"github.com/canonid/canonid/svc/store"
)

// Next-action hints returned by discover.
const (
	actionSignupOrSignin    = "signup_or_signin"
	actionNeedsVerification = "needs_verification"
	actionPassword          = "password"
	actionChooseMethod      = "choose_method"
	actionSocial            = "social"
)

// allMethods is the hint set for an unknown email: every way in.
var allMethods = []string{
	string(store.MethodPassword),
	string(store.MethodGoogle),
	string(store.MethodFacebook),
	string(store.MethodApple),
}

type discoverRequest struct {
	Email string `json:"email"`
}

type discoverResponse struct {
	Email      string   `json:"email"`
	Methods    []string `json:"methods"`
	NextAction string   `json:"nextAction"`
}

// discover reports how an email can sign in. It answers 200 for every
// well-formed request whether or not the email is known; only the body
// varies. 400 is reserved for requests that do not parse.
func (s *Service) discover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	normalized := sanitizer.NormalizeEmail(req.Email)
	if normalized == "" {
		s.respondError(w, http.StatusBadRequest, "Email is required", "EMAIL_REQUIRED")
		return
	}

	ctx := r.Context()
	identities, err := s.dir.FindByEmail(ctx, normalized)
	if err != nil {
		s.log.ErrorContext(ctx, "discover: directory lookup failed", logger.Error(err))
		s.respond(w, http.StatusOK, discoverResponse{
			Email:      normalized,
			Methods:    allMethods,
			NextAction: actionSignupOrSignin,
		})
		return
	}
	if len(identities) == 0 {
		s.respond(w, http.StatusOK, discoverResponse{
			Email:      normalized,
			Methods:    allMethods,
			NextAction: actionSignupOrSignin,
		})
		return
	}

	methods := s.knownMethods(r, normalized)
	if len(methods) == 0 {
		methods = identityMethodHints(identities)
	}

	verified := false
	for _, id := range identities {
		if id.EmailVerified {
			verified = true
			break
		}
	}

	s.respond(w, http.StatusOK, discoverResponse{
		Email:      normalized,
		Methods:    methods,
		NextAction: nextAction(verified, methods),
	})
}

// knownMethods returns the method names recorded for the email's canonical
// account, in linking order, or nil when no account or rows exist.
func (s *Service) knownMethods(r *http.Request, normalizedEmail string) []string {
	ctx := r.Context()
	account, found, err := s.engine.Resolver().Resolve(ctx, normalizedEmail)
	if err != nil || !found {
		if err != nil {
			s.log.ErrorContext(ctx, "discover: account resolution failed", logger.Error(err))
		}
		return nil
	}
	rows, err := s.store.AuthMethods(ctx, account.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "discover: method lookup failed",
			logger.Error(err), logger.AccountID(account.ID))
		return nil
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = appendUnique(out, string(row.Method))
	}
	return out
}

// identityMethodHints derives method hints from the directory records when
// no metadata rows exist yet: a native identity means a password, external
// references map through the provider table. Nothing is inferred from
// username or email shapes.
func identityMethodHints(identities []directory.Identity) []string {
	var out []string
	for _, id := range identities {
		if id.Native {
			out = appendUnique(out, string(store.MethodPassword))
		}
		for _, ref := range id.Providers {
			if m, ok := reconcile.MethodForProvider(ref.Provider); ok {
				out = appendUnique(out, string(m))
			}
		}
	}
	return out
}

func nextAction(verified bool, methods []string) string {
	switch {
	case !verified:
		return actionNeedsVerification
	case len(methods) == 1 && methods[0] == string(store.MethodPassword):
		return actionPassword
	case contains(methods, string(store.MethodPassword)):
		return actionChooseMethod
	default:
		return actionSocial
	}
}

func appendUnique(list []string, v string) []string {
	if contains(list, v) {
		return list
	}
	return append(list, v)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
