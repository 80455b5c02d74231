package credentials_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Tanveersultana125/co-teacher/credentials"
	"github.com/Tanveersultana125/co-teacher/credentials/kvstore/memstore"
	"github.com/Tanveersultana125/co-teacher/internal/errors"
	"github.com/Tanveersultana125/co-teacher/users"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testIdentity = users.Identity{ID: "u-1", DisplayName: "Ada", Email: "ada@school.test", Role: users.RoleTeacher}

func TestLoadEmpty(t *testing.T) {
	v := credentials.NewVault(memstore.New())
	_, err := v.Load()
	require.ErrorIs(t, err, errors.ErrNoCredential)
	require.False(t, v.HasToken())
}

func TestSaveLoad(t *testing.T) {
	store := memstore.New()
	v := credentials.NewVault(store)

	require.NoError(t, v.Save(credentials.Credential{Token: "T1", Identity: testIdentity}))
	require.True(t, v.HasToken())

	got, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, "T1", got.Token)
	require.Equal(t, testIdentity, got.Identity)
	require.Equal(t, 2, store.Len())
}

func TestSaveRequiresToken(t *testing.T) {
	v := credentials.NewVault(memstore.New())
	err := v.Save(credentials.Credential{Identity: testIdentity})
	require.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestLoadTokenWithoutSnapshot(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Set(credentials.TokenKey, "T1"))

	v := credentials.NewVault(store)
	_, err := v.Load()
	require.ErrorIs(t, err, errors.ErrNoCredential)
	require.True(t, v.HasToken())
}

func TestLoadCorruptSnapshot(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Set(credentials.TokenKey, "T1"))
	require.NoError(t, store.Set(credentials.IdentityKey, "{broken"))

	_, err := credentials.NewVault(store).Load()
	require.ErrorIs(t, err, errors.ErrCorruptSnapshot)
}

func TestFailedSaveKeepsPreviousPair(t *testing.T) {
	store := memstore.New()
	v := credentials.NewVault(store)
	require.NoError(t, v.Save(credentials.Credential{Token: "T1", Identity: testIdentity}))

	store.FailSet[credentials.TokenKey] = fmt.Errorf("disk full")
	other := users.Identity{ID: "u-2", Email: "other@school.test"}
	require.Error(t, v.Save(credentials.Credential{Token: "T2", Identity: other}))

	got, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, "T1", got.Token)
	require.Equal(t, testIdentity, got.Identity)
}

func TestFailedSaveWithoutPreviousWritesNothing(t *testing.T) {
	store := memstore.New()
	store.FailSet[credentials.TokenKey] = fmt.Errorf("disk full")

	v := credentials.NewVault(store)
	require.Error(t, v.Save(credentials.Credential{Token: "T1", Identity: testIdentity}))
	require.Zero(t, store.Len())
}

func TestFailedClearKeepsBothHalves(t *testing.T) {
	store := memstore.New()
	v := credentials.NewVault(store)
	require.NoError(t, v.Save(credentials.Credential{Token: "T1", Identity: testIdentity}))

	store.FailDelete[credentials.TokenKey] = fmt.Errorf("disk full")
	require.Error(t, v.Clear())

	require.True(t, v.HasToken())
	got, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, testIdentity, got.Identity)
}

func TestLoadSnapshotWithoutIDOrEmail(t *testing.T) {
	store := memstore.New()
	require.NoError(t, store.Set(credentials.TokenKey, "T1"))
	require.NoError(t, store.Set(credentials.IdentityKey, `{"displayName":"Nobody"}`))

	_, err := credentials.NewVault(store).Load()
	require.ErrorIs(t, err, errors.ErrCorruptSnapshot)
}

func TestSaveIsIdempotent(t *testing.T) {
	store := memstore.New()
	v := credentials.NewVault(store)
	c := credentials.Credential{Token: "T1", Identity: testIdentity}

	require.NoError(t, v.Save(c))
	first, err := v.Load()
	require.NoError(t, err)

	require.NoError(t, v.Save(c))
	second, err := v.Load()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 2, store.Len())
}

func TestClear(t *testing.T) {
	store := memstore.New()
	v := credentials.NewVault(store)
	require.NoError(t, v.Save(credentials.Credential{Token: "T1", Identity: testIdentity}))

	require.NoError(t, v.Clear())
	require.Zero(t, store.Len())
	require.NoError(t, v.Clear())
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	got, ok := credentials.Credential{Token: signed}.ExpiresAt()
	require.True(t, ok)
	require.True(t, exp.Equal(got))

	_, ok = credentials.Credential{Token: "opaque-token"}.ExpiresAt()
	require.False(t, ok)
}
