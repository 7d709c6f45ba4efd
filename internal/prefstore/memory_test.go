package prefstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Clear("k"))
	_, ok, _ = s.Get("k")
	assert.False(t, ok)
}

func TestMemoryStore_Fail(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set("k", "v"))

	s.Fail(true)
	_, _, err := s.Get("k")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, s.Set("k", "w"), ErrUnavailable)
	assert.ErrorIs(t, s.Clear("k"), ErrUnavailable)

	s.Fail(false)
	v, _, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{Backend: BackendFile, Dir: t.TempDir()}, DefaultOrigin)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{}, DefaultOrigin)
	assert.Error(t, err, "file backend needs a directory")
	assert.Nil(t, s)

	s, err = Open(Options{Backend: BackendMemory}, DefaultOrigin)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:0"}, DefaultOrigin)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.(*RedisStore).Close())

	_, err = Open(Options{Backend: "cookie"}, DefaultOrigin)
	assert.Error(t, err)
}
