package prefs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetodo/internal/prefs"
)

func openTestStore(t *testing.T) *prefs.Store {
	t.Helper()
	s, err := prefs.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetString_Absent(t *testing.T) {
	p := openTestStore(t).Namespace("app")

	v, ok, err := p.GetString(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestPutString_Replaces(t *testing.T) {
	ctx := context.Background()
	p := openTestStore(t).Namespace("app")

	require.NoError(t, p.PutString(ctx, "k", "one"))
	require.NoError(t, p.PutString(ctx, "k", "two"))

	v, ok, err := p.GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

func TestNamespaces_AreIsolated(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	a := s.Namespace("a")
	b := s.Namespace("b")

	require.NoError(t, a.PutString(ctx, "k", "from-a"))

	_, ok, err := b.GetString(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Remove(ctx, "k"))
	v, ok, err := a.GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-a", v)
}

func TestInt_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := openTestStore(t).Namespace("app")

	require.NoError(t, p.PutInt(ctx, "version", 7))
	n, ok, err := p.GetInt(ctx, "version")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestGetInt_Invalid(t *testing.T) {
	ctx := context.Background()
	p := openTestStore(t).Namespace("app")

	require.NoError(t, p.PutString(ctx, "version", "seven"))
	_, _, err := p.GetInt(ctx, "version")
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	p := openTestStore(t).Namespace("app")

	require.NoError(t, p.PutString(ctx, "k", "v"))
	require.NoError(t, p.Remove(ctx, "k"))
	require.NoError(t, p.Remove(ctx, "k"))

	_, ok, err := p.GetString(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	s, err := prefs.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Namespace("app").PutString(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = prefs.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Namespace("app").GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
