// Package credentials persists the {bearer token, identity snapshot} pair
// that lets a dashboard session survive a restart.
package credentials

import (
	"fmt"
	"time"

	"github.com/Tanveersultana125/co-teacher/credentials/kvstore"
	"github.com/Tanveersultana125/co-teacher/internal/errors"
	"github.com/Tanveersultana125/co-teacher/users"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Storage keys, shared with any other client of the same store
const (
	TokenKey    = "token"
	IdentityKey = "user_data"
)

// Credential is the persisted pair. Both halves are always written and cleared together.
type Credential struct {
	Token    string
	Identity users.Identity
}

// ExpiresAt reads the exp claim of a JWT bearer token without verifying it.
// ok is false for opaque tokens or tokens without an expiry.
func (c Credential) ExpiresAt() (exp time.Time, ok bool) {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return time.Time{}, false
	}
	t, err := claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false
	}
	return t.Time, true
}

// Vault owns the persisted credential pair inside a kvstore.Store.
type Vault struct {
	store kvstore.Store
}

// NewVault wraps store
func NewVault(store kvstore.Store) *Vault {
	return &Vault{store: store}
}

// HasToken reports whether a bearer token is persisted, regardless of the snapshot.
func (v *Vault) HasToken() bool {
	token, ok, err := v.store.Get(TokenKey)
	return err == nil && ok && token != ""
}

// Load returns the persisted credential. It returns errors.ErrNoCredential
// when either half is missing and errors.ErrCorruptSnapshot when the
// identity snapshot cannot be parsed or names nobody.
func (v *Vault) Load() (Credential, error) {
	token, ok, err := v.store.Get(TokenKey)
	if err != nil {
		return Credential{}, fmt.Errorf("[Vault.Load] read token: %w", err)
	}
	if !ok || token == "" {
		return Credential{}, errors.ErrNoCredential
	}

	snapshot, ok, err := v.store.Get(IdentityKey)
	if err != nil {
		return Credential{}, fmt.Errorf("[Vault.Load] read identity: %w", err)
	}
	if !ok || snapshot == "" {
		return Credential{}, errors.ErrNoCredential
	}

	identity, err := users.Unmarshal(snapshot)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", errors.ErrCorruptSnapshot, err)
	}
	if err := identity.Validate(); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", errors.ErrCorruptSnapshot, err)
	}
	return Credential{Token: token, Identity: identity}, nil
}

// Save writes both halves in one store update, so the store never holds a
// new snapshot next to an old or missing token.
func (v *Vault) Save(c Credential) error {
	if c.Token == "" {
		return errors.Wrapf(errors.ErrInvalidArgument, "[Vault.Save] token is required")
	}
	snapshot, err := users.Marshal(c.Identity)
	if err != nil {
		return fmt.Errorf("[Vault.Save] %w", err)
	}

	if err := v.store.Update(map[string]string{
		IdentityKey: snapshot,
		TokenKey:    c.Token,
	}, nil); err != nil {
		return fmt.Errorf("[Vault.Save] %w", err)
	}
	return nil
}

// Clear removes both halves in one store update.
func (v *Vault) Clear() error {
	if err := v.store.Update(nil, []string{TokenKey, IdentityKey}); err != nil {
		return fmt.Errorf("[Vault.Clear] %w", err)
	}
	return nil
}
