package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/Tanveersultana125/co-teacher/credentials/kvstore/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSetGetDelete(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	_, ok, err := s.Get("token")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set("token", "T1"))
	require.NoError(t, s.Set("token", "T2"))

	v, ok, err := s.Get("token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T2", v)

	require.NoError(t, s.Delete("token"))
	require.NoError(t, s.Delete("token"))

	_, ok, err = s.Get("token")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("user_data", `{"id":"u-1"}`))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	v, ok, err := second.Get("user_data")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"id":"u-1"}`, v)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlitestore.Open("  ")
	require.Error(t, err)
}

func TestSetRequiresKey(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	require.Error(t, s.Set("", "x"))
}

func TestUpdateAppliesWritesAndDeletesTogether(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, s.Set("stale", "x"))

	require.NoError(t, s.Update(map[string]string{"token": "T1", "user_data": `{"id":"u-1"}`}, []string{"stale"}))

	v, ok, err := s.Get("token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "T1", v)

	_, ok, err = s.Get("stale")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpdateRejectsEmptyKeyWithoutWriting(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "session.db"))

	require.Error(t, s.Update(map[string]string{"token": "T1", "": "x"}, nil))

	_, ok, err := s.Get("token")
	require.NoError(t, err)
	require.False(t, ok)
}
