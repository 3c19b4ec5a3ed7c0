package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/store"
)

func TestMethodForProvider(t *testing.T) {
	t.Parallel()

	cases := []struct {
		provider string
		want     store.Method
		known    bool
	}{
		{"Google", store.MethodGoogle, true},
		{"google", store.MethodGoogle, true},
		{"GOOGLE", store.MethodGoogle, true},
		{"Facebook", store.MethodFacebook, true},
		{"SignInWithApple", store.MethodApple, true},
		{"signinwithapple", store.MethodApple, true},
		{"NATIVE", store.MethodPassword, true},
		{"GitHub", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := MethodForProvider(tc.provider)
		assert.Equal(t, tc.known, ok, tc.provider)
		assert.Equal(t, tc.want, got, tc.provider)
	}
}

func TestResolveMethodContext(t *testing.T) {
	t.Parallel()

	googleRef := directory.ProviderRef{Provider: directory.ProviderGoogle, UserID: "g-1"}

	t.Run("event refs win over identity record", func(t *testing.T) {
		t.Parallel()
		identity := directory.Identity{ID: "id1", Native: true}

		mc := resolveMethodContext(identity, true, []directory.ProviderRef{googleRef})
		require.True(t, mc.ok)
		assert.Equal(t, store.MethodGoogle, mc.method)
		assert.Equal(t, googleRef, mc.ref)
		assert.True(t, mc.social)
	})

	t.Run("native identity yields password", func(t *testing.T) {
		t.Parallel()
		identity := directory.Identity{ID: "id1", Native: true}

		mc := resolveMethodContext(identity, true, nil)
		require.True(t, mc.ok)
		assert.Equal(t, store.MethodPassword, mc.method)
		assert.Equal(t, directory.ProviderNative, mc.provider)
		assert.False(t, mc.social)
	})

	t.Run("identity providers used when event carries none", func(t *testing.T) {
		t.Parallel()
		identity := directory.Identity{ID: "id1", Providers: []directory.ProviderRef{googleRef}}

		mc := resolveMethodContext(identity, true, nil)
		require.True(t, mc.ok)
		assert.Equal(t, store.MethodGoogle, mc.method)
		assert.True(t, mc.social)
	})

	t.Run("refs without user id are skipped", func(t *testing.T) {
		t.Parallel()
		empty := directory.ProviderRef{Provider: directory.ProviderGoogle}
		identity := directory.Identity{ID: "id1", Providers: []directory.ProviderRef{empty}}

		mc := resolveMethodContext(identity, true, []directory.ProviderRef{empty})
		assert.False(t, mc.ok)
	})

	t.Run("unknown provider is ambiguous, not inferred", func(t *testing.T) {
		t.Parallel()
		ref := directory.ProviderRef{Provider: "GitHub", UserID: "gh-1"}
		identity := directory.Identity{ID: "id1", Providers: []directory.ProviderRef{ref}}

		mc := resolveMethodContext(identity, true, []directory.ProviderRef{ref})
		assert.False(t, mc.ok)
	})

	t.Run("no identity and no refs is ambiguous", func(t *testing.T) {
		t.Parallel()
		mc := resolveMethodContext(directory.Identity{}, false, nil)
		assert.False(t, mc.ok)
	})
}

func TestCanonicalAccountID(t *testing.T) {
	t.Parallel()

	native := directory.Identity{ID: "native-1", Native: true}
	social := directory.Identity{ID: "social-1"}

	t.Run("existing account wins", func(t *testing.T) {
		t.Parallel()
		got := canonicalAccountID("acct-1", []directory.Identity{native, social}, "social-1")
		assert.Equal(t, "acct-1", got)
	})

	t.Run("native identity when no account", func(t *testing.T) {
		t.Parallel()
		got := canonicalAccountID("", []directory.Identity{social, native}, "social-1")
		assert.Equal(t, "native-1", got)
	})

	t.Run("falls back to event identity", func(t *testing.T) {
		t.Parallel()
		got := canonicalAccountID("", []directory.Identity{social}, "social-1")
		assert.Equal(t, "social-1", got)
	})
}
