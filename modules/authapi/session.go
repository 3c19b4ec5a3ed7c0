package authapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims are the token claims issued by the directory on login.
// AuthTime is the moment the credentials were last presented, distinct
// from the token's IssuedAt which moves on refresh. Method names the
// credential used for this session and drives the currentlyUsed flag.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	AuthTime int64  `json:"auth_time,omitempty"`
	Method   string `json:"method,omitempty"`
}

type sessionContextKey struct{}

// requireSession authenticates the request from its bearer token and
// stores the verified claims in the request context. Anything short of a
// valid signed token is a 401.
func (s *Service) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			s.respondError(w, http.StatusUnauthorized, "Unauthorized", "AUTHORIZATION_REQUIRED")
			return
		}

		claims := &sessionClaims{}
		_, err := jwt.ParseWithClaims(raw, claims,
			func(*jwt.Token) (any, error) { return []byte(s.cfg.JWTSecret), nil },
			jwt.WithValidMethods([]string{"HS256"}),
		)
		if err != nil || claims.Subject == "" {
			s.respondError(w, http.StatusUnauthorized, "Unauthorized", "AUTHORIZATION_REQUIRED")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext retrieves the claims stored by requireSession.
func sessionFromContext(ctx context.Context) (*sessionClaims, bool) {
	claims, ok := ctx.Value(sessionContextKey{}).(*sessionClaims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
