package authapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/canonid/canonid/pkg/email"
	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/pkg/sanitizer"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/verification"
)

type okResponse struct {
	OK bool `json:"ok"`
}

type setPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// setPassword sets a permanent password for an already-authenticated
// session. It demands a recent authentication so a stolen long-lived
// session cannot silently take over the account's password.
func (s *Service) setPassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := sessionFromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Unauthorized", "AUTHORIZATION_REQUIRED")
		return
	}
	if !s.recentAuth(claims) {
		s.respondError(w, http.StatusUnauthorized, "Recent authentication required", "RECENT_AUTH_REQUIRED")
		return
	}

	var req setPasswordRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if len(req.NewPassword) < s.cfg.MinPasswordLength {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("newPassword is required and must be at least %d chars", s.cfg.MinPasswordLength),
			"PASSWORD_TOO_SHORT")
		return
	}

	ctx := r.Context()
	username, ok := s.nativeUsernameFor(r, claims)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "Failed to set password", "NATIVE_IDENTITY_MISSING")
		return
	}

	if err := s.dir.SetPassword(ctx, username, req.NewPassword); err != nil {
		s.log.ErrorContext(ctx, "set-password: directory rejected password",
			logger.Error(err), logger.IdentityID(claims.Subject))
		s.respondError(w, http.StatusBadRequest, "Failed to set password", "PASSWORD_REJECTED")
		return
	}

	accountID := s.canonicalAccountFor(r, claims.Subject)
	if err := s.engine.RecordPasswordSet(ctx, accountID, claims.Subject, "password enabled for account"); err != nil {
		// The password is set; metadata divergence is alarmed, not surfaced.
		s.log.ErrorContext(ctx, "set-password: method record failed",
			logger.Error(err), logger.AccountID(accountID))
	}

	s.respond(w, http.StatusOK, okResponse{OK: true})
}

// recentAuth reports whether the session's credentials were presented
// within the configured window.
func (s *Service) recentAuth(claims *sessionClaims) bool {
	if claims.AuthTime <= 0 {
		return false
	}
	age := s.now().Sub(time.Unix(claims.AuthTime, 0))
	return age >= 0 && age <= s.cfg.MaxAuthAge
}

type passwordSetupStartRequest struct {
	Email string `json:"email"`
}

// passwordSetupStart issues a verification code for the public
// password-setup flow. The response never reveals whether the email is
// known; a delivery failure is logged and still answered with 200.
func (s *Service) passwordSetupStart(w http.ResponseWriter, r *http.Request) {
	var req passwordSetupStartRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	normalized := sanitizer.NormalizeEmail(req.Email)
	if normalized == "" {
		s.respondError(w, http.StatusBadRequest, "Email is required", "EMAIL_REQUIRED")
		return
	}

	ctx := r.Context()
	code, err := verification.GenerateCode()
	if err != nil {
		s.log.ErrorContext(ctx, "password-setup: code generation failed", logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Unable to start email verification", "VERIFICATION_UNAVAILABLE")
		return
	}
	if err := s.codes.Put(ctx, normalized, verification.HashCode(code), s.codeTTL); err != nil {
		s.log.ErrorContext(ctx, "password-setup: challenge store failed", logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Unable to start email verification", "VERIFICATION_UNAVAILABLE")
		return
	}

	if err := s.sender.SendEmail(ctx, email.VerificationCodeEmail(normalized, code)); err != nil {
		s.log.ErrorContext(ctx, "password-setup: code email delivery failed",
			logger.Error(err), logger.Email(sanitizer.MaskEmail(normalized)))
	}

	s.respond(w, http.StatusOK, okResponse{OK: true})
}

type passwordSetupCompleteRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// passwordSetupComplete verifies the emailed code, ensures a native
// identity exists for the email, sets its password, and links every
// external identity holding the email into it. Re-invoking after success
// replays the same success without creating a second native identity or a
// duplicate method row.
func (s *Service) passwordSetupComplete(w http.ResponseWriter, r *http.Request) {
	var req passwordSetupCompleteRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	normalized := sanitizer.NormalizeEmail(req.Email)
	if normalized == "" {
		s.respondError(w, http.StatusBadRequest, "Email is required", "EMAIL_REQUIRED")
		return
	}
	if req.Code == "" {
		s.respondError(w, http.StatusBadRequest, "Verification code is required", "CODE_REQUIRED")
		return
	}
	if len(req.NewPassword) < s.cfg.MinPasswordLength {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("newPassword is required and must be at least %d chars", s.cfg.MinPasswordLength),
			"PASSWORD_TOO_SHORT")
		return
	}

	ctx := r.Context()
	switch err := s.codes.Verify(ctx, normalized, req.Code); {
	case err == nil:
	case errors.Is(err, verification.ErrCodeExpired):
		s.respondError(w, http.StatusBadRequest, "Verification code expired", "CODE_EXPIRED")
		return
	case errors.Is(err, verification.ErrCodeMismatch):
		s.respondError(w, http.StatusBadRequest, "Invalid verification code", "CODE_MISMATCH")
		return
	default:
		s.log.ErrorContext(ctx, "password-setup: verification failed", logger.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Unable to verify code", "VERIFICATION_UNAVAILABLE")
		return
	}

	native, err := s.ensureNativeIdentity(r, normalized)
	if err != nil {
		s.log.ErrorContext(ctx, "password-setup: native identity unavailable",
			logger.Error(err), logger.Email(sanitizer.MaskEmail(normalized)))
		s.respondError(w, http.StatusBadRequest,
			"Account setup is incomplete. Please continue with your social login and try again.",
			"NATIVE_IDENTITY_MISSING")
		return
	}

	if err := s.dir.SetPassword(ctx, native.Username, req.NewPassword); err != nil {
		s.log.ErrorContext(ctx, "password-setup: directory rejected password",
			logger.Error(err), logger.IdentityID(native.ID))
		s.respondError(w, http.StatusBadRequest, "Failed to set password", "PASSWORD_REJECTED")
		return
	}

	if handled := s.linkExternalIdentities(w, r, normalized, native); handled {
		return
	}

	accountID := native.ID
	if account, found, err := s.engine.Resolver().Resolve(ctx, normalized); err == nil && found {
		accountID = account.ID
	}
	if err := s.engine.RecordPasswordSet(ctx, accountID, native.ID, "password set from public setup flow"); err != nil {
		s.log.ErrorContext(ctx, "password-setup: method record failed",
			logger.Error(err), logger.AccountID(accountID))
	}

	s.respond(w, http.StatusOK, okResponse{OK: true})
}

// ensureNativeIdentity returns the native identity for an email, creating
// it when only external identities exist. Racing creations converge on the
// directory's uniqueness constraint.
func (s *Service) ensureNativeIdentity(r *http.Request, normalizedEmail string) (directory.Identity, error) {
	ctx := r.Context()

	identities, err := s.dir.FindByEmail(ctx, normalizedEmail)
	if err != nil {
		return directory.Identity{}, err
	}
	if native, ok := directory.NativeIdentity(identities); ok {
		return native, nil
	}

	native, err := s.dir.CreateNative(ctx, normalizedEmail)
	if err == nil {
		return native, nil
	}
	if !errors.Is(err, directory.ErrIdentityExists) {
		return directory.Identity{}, err
	}

	// Lost the creation race; the winner's identity is now visible.
	identities, err = s.dir.FindByEmail(ctx, normalizedEmail)
	if err != nil {
		return directory.Identity{}, err
	}
	if native, ok := directory.NativeIdentity(identities); ok {
		return native, nil
	}
	return directory.Identity{}, directory.ErrIdentityNotFound
}

// linkExternalIdentities links every unlinked external identity for the
// email into the native one. Returns true when it already wrote the
// response (conflict or hard failure).
func (s *Service) linkExternalIdentities(w http.ResponseWriter, r *http.Request, normalizedEmail string, native directory.Identity) bool {
	ctx := r.Context()

	identities, err := s.dir.FindByEmail(ctx, normalizedEmail)
	if err != nil {
		s.log.ErrorContext(ctx, "password-setup: directory lookup failed", logger.Error(err))
		s.respondError(w, http.StatusBadGateway, "Failed to link your social sign-in. Please try again.", "PROVIDER_LINK_FAILED")
		return true
	}

	for _, identity := range identities {
		if identity.Native || identity.ID == native.ID {
			continue
		}
		if len(identity.Providers) == 0 {
			s.log.WarnContext(ctx, "password-setup: external identity without provider context",
				logger.IdentityID(identity.ID))
			continue
		}

		err := s.dir.LinkProvider(ctx, native.Username, identity.Providers[0])
		switch {
		case err == nil, errors.Is(err, directory.ErrAlreadyLinked):
		case errors.Is(err, directory.ErrLinkConflict):
			s.respondError(w, http.StatusConflict,
				"This social login is already linked to another account. Use your original sign-in method.",
				"PROVIDER_LINK_CONFLICT")
			return true
		default:
			s.log.ErrorContext(ctx, "password-setup: provider link failed",
				logger.Error(err), logger.IdentityID(identity.ID))
			s.respondError(w, http.StatusBadGateway, "Failed to link your social sign-in. Please try again.", "PROVIDER_LINK_FAILED")
			return true
		}
	}
	return false
}
