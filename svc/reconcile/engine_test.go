package reconcile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
	"github.com/canonid/canonid/svc/store"
)

func newEngine(t *testing.T) (*reconcile.Engine, *directory.MemoryDirectory, *store.Memory) {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	s := store.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reconcile.NewEngine(dir, s, reconcile.WithLogger(log)), dir, s
}

func eventTypes(t *testing.T, s *store.Memory, accountID string) []string {
	t.Helper()
	trail, err := s.AuditTrail(context.Background(), accountID)
	require.NoError(t, err)
	out := make([]string, 0, len(trail))
	for _, e := range trail {
		out = append(out, e.EventType)
	}
	return out
}

func TestPreSignup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("denies missing email", func(t *testing.T) {
		t.Parallel()
		engine, _, s := newEngine(t)

		err := engine.PreSignup(ctx, reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			EmailVerified:  true,
		})
		assert.ErrorIs(t, err, reconcile.ErrMissingOrUnverifiedProviderEmail)

		// Denial leaves the metadata store untouched.
		_, err = s.AccountByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("denies unverified email", func(t *testing.T) {
		t.Parallel()
		engine, _, _ := newEngine(t)

		err := engine.PreSignup(ctx, reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "a@x.com",
			EmailVerified:  false,
		})
		assert.ErrorIs(t, err, reconcile.ErrMissingOrUnverifiedProviderEmail)
	})

	t.Run("links to existing native identity", func(t *testing.T) {
		t.Parallel()
		engine, dir, _ := newEngine(t)

		native, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		require.NoError(t, engine.PreSignup(ctx, reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "  A@X.com ",
			EmailVerified:  true,
		}))

		got, err := dir.FindByID(ctx, native.ID)
		require.NoError(t, err)
		assert.True(t, got.HasProvider(directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}))
	})

	t.Run("duplicate link is treated as success", func(t *testing.T) {
		t.Parallel()
		engine, dir, _ := newEngine(t)

		_, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		event := reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "a@x.com",
			EmailVerified:  true,
		}
		require.NoError(t, engine.PreSignup(ctx, event))
		assert.NoError(t, engine.PreSignup(ctx, event))
	})

	t.Run("link conflict denies admission", func(t *testing.T) {
		t.Parallel()
		engine, dir, _ := newEngine(t)

		other, err := dir.CreateNative(ctx, "other@x.com")
		require.NoError(t, err)
		ref := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}
		require.NoError(t, dir.LinkProvider(ctx, other.Username, ref))

		_, err = dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		err = engine.PreSignup(ctx, reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "a@x.com",
			EmailVerified:  true,
		})
		assert.ErrorIs(t, err, reconcile.ErrLinkingFailed)
	})

	t.Run("no native identity allows admission without link", func(t *testing.T) {
		t.Parallel()
		engine, _, _ := newEngine(t)

		assert.NoError(t, engine.PreSignup(ctx, reconcile.PreSignupEvent{
			Provider:       directory.ProviderGoogle,
			ProviderUserID: "g-1",
			Email:          "a@x.com",
			EmailVerified:  true,
		}))
	})
}

func TestConfirmSignup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("native confirmation seeds account and password method", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		native, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: native.ID,
			Email:      "a@x.com",
			Username:   native.Username,
		}))

		account, err := s.AccountByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, native.ID, account.ID)

		methods, err := s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, store.MethodPassword, methods[0].Method)
		assert.Equal(t, directory.ProviderNative, methods[0].Provider)

		assert.Equal(t, []string{store.EventSignupConfirmed}, eventTypes(t, s, native.ID))
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		native, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)

		event := reconcile.ConfirmationEvent{IdentityID: native.ID, Email: "a@x.com"}
		require.NoError(t, engine.ConfirmSignup(ctx, event))

		methods, err := s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		firstLinkedAt := methods[0].LinkedAt

		require.NoError(t, engine.ConfirmSignup(ctx, event))

		methods, err = s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, firstLinkedAt, methods[0].LinkedAt)
		assert.Equal(t, []string{store.EventSignupConfirmed}, eventTypes(t, s, native.ID))
	})

	t.Run("social confirmation seeds provider method", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		ref := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}
		social := dir.Seed(directory.Identity{
			Username:      "google_g-1",
			Email:         "a@x.com",
			EmailVerified: true,
			Providers:     []directory.ProviderRef{ref},
		})

		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: social.ID,
			Email:      "a@x.com",
			Providers:  []directory.ProviderRef{ref},
		}))

		methods, err := s.AuthMethods(ctx, social.ID)
		require.NoError(t, err)
		require.Len(t, methods, 1)
		assert.Equal(t, store.MethodGoogle, methods[0].Method)
		assert.Equal(t, directory.ProviderGoogle, methods[0].Provider)
	})

	t.Run("ambiguous context creates account without method", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		// External identity with no provider references anywhere.
		mystery := dir.Seed(directory.Identity{
			Username:      "mystery",
			Email:         "a@x.com",
			EmailVerified: true,
		})

		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: mystery.ID,
			Email:      "a@x.com",
		}))

		_, err := s.AccountByEmail(ctx, "a@x.com")
		require.NoError(t, err)

		methods, err := s.AuthMethods(ctx, mystery.ID)
		require.NoError(t, err)
		assert.Empty(t, methods)

		assert.Equal(t, []string{store.EventStrictAnomaly}, eventTypes(t, s, mystery.ID))
	})

	t.Run("existing account for email keeps its id", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		native, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)
		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: native.ID,
			Email:      "a@x.com",
		}))

		ref := directory.ProviderRef{Provider: directory.ProviderFacebook, UserID: "f-1"}
		social := dir.Seed(directory.Identity{
			Username:      "facebook_f-1",
			Email:         "a@x.com",
			EmailVerified: true,
			Providers:     []directory.ProviderRef{ref},
		})

		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: social.ID,
			Email:      "a@x.com",
			Providers:  []directory.ProviderRef{ref},
		}))

		account, err := s.AccountByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, native.ID, account.ID, "a later identity must never displace the canonical account")

		methods, err := s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		assert.Len(t, methods, 2)
	})
}

func TestPostLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// seedNativeAccount sets up a confirmed native account for a@x.com.
	seedNativeAccount := func(t *testing.T, engine *reconcile.Engine, dir *directory.MemoryDirectory) directory.Identity {
		t.Helper()
		native, err := dir.CreateNative(ctx, "a@x.com")
		require.NoError(t, err)
		require.NoError(t, engine.ConfirmSignup(ctx, reconcile.ConfirmationEvent{
			IdentityID: native.ID,
			Email:      "a@x.com",
		}))
		return native
	}

	t.Run("first social login auto-links into native account", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)
		native := seedNativeAccount(t, engine, dir)

		ref := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}
		social := dir.Seed(directory.Identity{
			Username:      "google_g-1",
			Email:         "a@x.com",
			EmailVerified: true,
			Providers:     []directory.ProviderRef{ref},
		})

		require.NoError(t, engine.PostLogin(ctx, reconcile.AuthenticationEvent{
			IdentityID: social.ID,
			Email:      "a@x.com",
			Providers:  []directory.ProviderRef{ref},
		}))

		// Exactly one admin link happened.
		linked, err := dir.FindByID(ctx, social.ID)
		require.NoError(t, err)
		assert.Equal(t, native.ID, linked.LinkedTo)

		methods, err := s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		require.Len(t, methods, 2)

		assert.Equal(t, []string{store.EventSignupConfirmed, store.EventAutoLinked}, eventTypes(t, s, native.ID))

		t.Run("second login syncs without new rows", func(t *testing.T) {
			require.NoError(t, engine.PostLogin(ctx, reconcile.AuthenticationEvent{
				IdentityID: social.ID,
				Email:      "a@x.com",
				Providers:  []directory.ProviderRef{ref},
			}))

			methods, err := s.AuthMethods(ctx, native.ID)
			require.NoError(t, err)
			assert.Len(t, methods, 2)

			assert.Equal(t,
				[]string{store.EventSignupConfirmed, store.EventAutoLinked, store.EventLoginMethodSynced},
				eventTypes(t, s, native.ID))
		})
	})

	t.Run("native login syncs method", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)
		native := seedNativeAccount(t, engine, dir)

		require.NoError(t, engine.PostLogin(ctx, reconcile.AuthenticationEvent{
			IdentityID: native.ID,
			Email:      "a@x.com",
		}))

		methods, err := s.AuthMethods(ctx, native.ID)
		require.NoError(t, err)
		assert.Len(t, methods, 1)
		assert.Equal(t, []string{store.EventSignupConfirmed, store.EventLoginMethodSynced}, eventTypes(t, s, native.ID))
	})

	t.Run("missing method context records anomaly and lets login pass", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)

		mystery := dir.Seed(directory.Identity{
			Username:      "mystery",
			Email:         "a@x.com",
			EmailVerified: true,
		})

		require.NoError(t, engine.PostLogin(ctx, reconcile.AuthenticationEvent{
			IdentityID: mystery.ID,
			Email:      "a@x.com",
		}))

		assert.Equal(t, []string{store.EventStrictAnomaly}, eventTypes(t, s, mystery.ID))

		methods, err := s.AuthMethods(ctx, mystery.ID)
		require.NoError(t, err)
		assert.Empty(t, methods)
	})

	t.Run("link conflict is audited and non-fatal", func(t *testing.T) {
		t.Parallel()
		engine, dir, s := newEngine(t)
		native := seedNativeAccount(t, engine, dir)

		// The provider pair is already claimed by another native identity.
		other, err := dir.CreateNative(ctx, "other@x.com")
		require.NoError(t, err)
		ref := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}
		require.NoError(t, dir.LinkProvider(ctx, other.Username, ref))

		social := dir.Seed(directory.Identity{
			Username:      "google_g-1",
			Email:         "a@x.com",
			EmailVerified: true,
			Providers:     []directory.ProviderRef{ref},
		})
		require.NoError(t, engine.PostLogin(ctx, reconcile.AuthenticationEvent{
			IdentityID: social.ID,
			Email:      "a@x.com",
			Providers:  []directory.ProviderRef{ref},
		}))

		types := eventTypes(t, s, native.ID)
		assert.Contains(t, types, store.EventLinkFailed)
	})
}

func TestResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	resolver := reconcile.NewResolver(s)

	_, ok, err := resolver.Resolve(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateAccount(ctx, store.Account{ID: "sub1", Email: "a@x.com", CreatedAt: time.Now()})
	require.NoError(t, err)

	account, ok, err := resolver.Resolve(ctx, " A@x.COM ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sub1", account.ID)
}
