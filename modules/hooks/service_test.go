package hooks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonid/canonid/modules/hooks"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
	"github.com/canonid/canonid/svc/store"
)

type fixture struct {
	handler http.Handler
	dir     *directory.MemoryDirectory
	store   *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	st := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := reconcile.NewEngine(dir, st, reconcile.WithLogger(log))
	svc := hooks.NewService(engine, hooks.WithLogger(log))
	return &fixture{handler: svc.Handle(), dir: dir, store: st}
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestPreSignupHook(t *testing.T) {
	t.Parallel()

	t.Run("allows a verified social signup", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post(t, "/pre-signup", map[string]any{
			"provider":       "Google",
			"providerUserId": "g-1",
			"email":          "a@x.com",
			"emailVerified":  true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Allow  bool   `json:"allow"`
			Reason string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Allow)
		assert.Empty(t, body.Reason)
	})

	t.Run("denies an unverified email with the taxonomy reason", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post(t, "/pre-signup", map[string]any{
			"provider":       "Google",
			"providerUserId": "g-1",
			"email":          "a@x.com",
			"emailVerified":  false,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Allow  bool   `json:"allow"`
			Reason string `json:"reason"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Allow)
		assert.Equal(t, hooks.ReasonMissingOrUnverifiedEmail, body.Reason)
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/pre-signup", bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostConfirmationHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("seeds metadata and answers 204", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		native, err := f.dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		rec := f.post(t, "/post-confirmation", map[string]any{
			"identityId": native.ID,
			"email":      "a@x.com",
			"username":   native.Username,
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		methods, err := f.store.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, store.MethodPassword, methods[0].Method)
	})

	t.Run("still answers 204 for an unknown identity", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := f.post(t, "/post-confirmation", map[string]any{
			"identityId": "ghost",
			"email":      "",
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestPostAuthenticationHook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("links a social login and answers 204", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		native, err := f.dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)
		_, err = f.store.CreateAccount(ctx, store.Account{ID: native.ID, Email: "a@x.com"})
		require.NoError(t, err)

		ref := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}
		social := f.dir.Seed(directory.Identity{
			Username: "google_g-1", Email: "a@x.com", EmailVerified: true,
			Providers: []directory.ProviderRef{ref},
		})

		rec := f.post(t, "/post-authentication", map[string]any{
			"identityId": social.ID,
			"email":      "a@x.com",
			"identities": []map[string]string{{"provider": "Google", "providerUserId": "g-1"}},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)

		linked, err := f.dir.FindByID(ctx, social.ID)
		require.NoError(t, err)
		assert.Equal(t, native.ID, linked.LinkedTo)

		methods, err := f.store.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, store.MethodGoogle, methods[0].Method)
	})
}
