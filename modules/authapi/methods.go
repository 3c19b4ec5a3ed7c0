package authapi

import (
	"net/http"
	"time"

	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/svc/directory"
)

type methodResponse struct {
	Method        string    `json:"method"`
	Provider      string    `json:"provider"`
	LinkedAt      time.Time `json:"linkedAt"`
	Verified      bool      `json:"verified"`
	CurrentlyUsed bool      `json:"currentlyUsed"`
}

type methodsResponse struct {
	Methods []methodResponse `json:"methods"`
}

// methods lists the auth methods linked to the caller's canonical account.
// currentlyUsed is computed against the session's method claim on every
// request and is never stored.
func (s *Service) methods(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized", "AUTHORIZATION_REQUIRED")
		return
	}

	ctx := r.Context()
	accountID := s.canonicalAccountFor(r, claims.Subject)

	rows, err := s.store.AuthMethods(ctx, accountID)
	if err != nil {
		s.log.ErrorContext(ctx, "methods: lookup failed",
			logger.Error(err), logger.AccountID(accountID))
		s.respondError(w, http.StatusInternalServerError, "Failed to load auth methods", "METHODS_UNAVAILABLE")
		return
	}

	out := methodsResponse{Methods: make([]methodResponse, 0, len(rows))}
	for _, row := range rows {
		out.Methods = append(out.Methods, methodResponse{
			Method:        string(row.Method),
			Provider:      row.Provider,
			LinkedAt:      row.LinkedAt,
			Verified:      row.Verified,
			CurrentlyUsed: claims.Method != "" && claims.Method == string(row.Method),
		})
	}
	s.respond(w, http.StatusOK, out)
}

// canonicalAccountFor maps a session subject to its canonical account id.
// The subject may belong to a linked external identity whose id is not the
// canonical one, so the resolution goes identity -> email -> account. The
// subject itself is the fallback when nothing resolves.
func (s *Service) canonicalAccountFor(r *http.Request, subject string) string {
	ctx := r.Context()

	identity, err := s.dir.FindByID(ctx, subject)
	if err != nil {
		if account, err := s.store.AccountByID(ctx, subject); err == nil {
			return account.ID
		}
		return subject
	}

	if identity.Email != "" {
		if account, found, err := s.engine.Resolver().Resolve(ctx, identity.Email); err == nil && found {
			return account.ID
		}
	}
	if identity.LinkedTo != "" {
		return identity.LinkedTo
	}
	return subject
}

// nativeUsernameFor returns the username SetPassword must target for a
// session: the claim's username when the identity is native, otherwise the
// native identity holding the same email.
func (s *Service) nativeUsernameFor(r *http.Request, claims *sessionClaims) (string, bool) {
	ctx := r.Context()

	identity, err := s.dir.FindByID(ctx, claims.Subject)
	if err == nil && identity.Native {
		return identity.Username, true
	}
	if err == nil && identity.Email != "" {
		identities, err := s.dir.FindByEmail(ctx, identity.Email)
		if err == nil {
			if native, ok := directory.NativeIdentity(identities); ok {
				return native.Username, true
			}
		}
	}
	if claims.Username != "" {
		return claims.Username, true
	}
	return "", false
}
