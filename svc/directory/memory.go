package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/canonid/canonid/pkg/sanitizer"
)

// MemoryDirectory is an in-process Directory for development and tests.
// It enforces the same uniqueness rules as a real directory: native
// usernames are unique and a provider pair belongs to exactly one native
// identity once linked.
type MemoryDirectory struct {
	mu         sync.RWMutex
	identities map[string]*Identity   // by identity id
	passwords  map[string][]byte      // bcrypt hash by native username
	links      map[ProviderRef]string // provider pair -> native identity id
}

// NewMemoryDirectory returns an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		identities: make(map[string]*Identity),
		passwords:  make(map[string][]byte),
		links:      make(map[ProviderRef]string),
	}
}

// Seed inserts an identity as-is, generating an ID when absent.
// Test and bootstrap helper; panics on a duplicate id.
func (d *MemoryDirectory) Seed(identity Identity) Identity {
	d.mu.Lock()
	defer d.mu.Unlock()

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if _, ok := d.identities[identity.ID]; ok {
		panic("directory: duplicate identity id in Seed")
	}
	identity.Email = sanitizer.NormalizeEmail(identity.Email)
	d.identities[identity.ID] = &identity
	for _, ref := range identity.Providers {
		if identity.Native {
			d.links[ref] = identity.ID
		}
	}
	if identity.LinkedTo != "" && len(identity.Providers) > 0 {
		d.links[identity.Providers[0]] = identity.LinkedTo
	}
	return identity
}

func (d *MemoryDirectory) FindByEmail(ctx context.Context, normalizedEmail string) ([]Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []Identity
	for _, id := range d.identities {
		if id.Email == normalizedEmail {
			out = append(out, *id)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) FindByID(ctx context.Context, identityID string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.identities[identityID]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return *id, nil
}

func (d *MemoryDirectory) CreateNative(ctx context.Context, normalizedEmail string) (Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.identities {
		if id.Native && id.Email == normalizedEmail {
			return Identity{}, ErrIdentityExists
		}
	}

	identity := &Identity{
		ID:            uuid.NewString(),
		Username:      normalizedEmail,
		Email:         normalizedEmail,
		EmailVerified: true,
		Native:        true,
	}
	d.identities[identity.ID] = identity
	return *identity, nil
}

func (d *MemoryDirectory) LinkProvider(ctx context.Context, nativeUsername string, src ProviderRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dest := d.nativeByUsername(nativeUsername)
	if dest == nil {
		return ErrIdentityNotFound
	}

	if linked, ok := d.links[src]; ok {
		if linked == dest.ID {
			return ErrAlreadyLinked
		}
		return ErrLinkConflict
	}

	d.links[src] = dest.ID
	dest.Providers = append(dest.Providers, src)
	for _, id := range d.identities {
		if !id.Native && id.HasProvider(src) {
			id.LinkedTo = dest.ID
		}
	}
	return nil
}

func (d *MemoryDirectory) SetPassword(ctx context.Context, username, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.nativeByUsername(username) == nil {
		return ErrIdentityNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	d.passwords[username] = hash
	return nil
}

// Authenticate verifies a native username/password pair. Development
// convenience; production authentication happens in the real directory.
func (d *MemoryDirectory) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id := d.nativeByUsername(username)
	if id == nil {
		return Identity{}, ErrIdentityNotFound
	}
	hash, ok := d.passwords[username]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Identity{}, ErrIdentityNotFound
	}
	return *id, nil
}

// caller must hold d.mu
func (d *MemoryDirectory) nativeByUsername(username string) *Identity {
	for _, id := range d.identities {
		if id.Native && id.Username == username {
			return id
		}
	}
	return nil
}
