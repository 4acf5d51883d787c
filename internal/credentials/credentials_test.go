package credentials

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	_, ok := s.Token()
	assert.False(t, ok)

	require.NoError(t, s.Set("abc"))
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, s.Clear())
	_, ok = s.Token()
	assert.False(t, ok)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok := s.Token()
	assert.False(t, ok, "fresh store has no token")

	require.NoError(t, s.Set("secret-token"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	token, ok := reopened.Token()
	assert.True(t, ok)
	assert.Equal(t, "secret-token", token)

	require.NoError(t, reopened.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	// Clearing twice is fine.
	require.NoError(t, reopened.Clear())
}

func TestFileStore_WatchSeesExternalLogout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("first"))

	var mu sync.Mutex
	var changes []bool
	require.NoError(t, s.Watch(func(token string, present bool) {
		mu.Lock()
		changes = append(changes, present)
		mu.Unlock()
	}))
	defer s.Close()

	// Another process logs out.
	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		_, ok := s.Token()
		return !ok
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, changes)
	assert.False(t, changes[len(changes)-1])
}

func TestFileStore_OwnWritesAreNotReportedAsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	require.NoError(t, s.Watch(func(token string, present bool) {
		mu.Lock()
		calls++
		mu.Unlock()
	}))
	defer s.Close()

	require.NoError(t, s.Set("new"))
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "new", token)

	require.NoError(t, s.Set("newer"))
	require.NoError(t, s.Clear())
	_, ok = s.Token()
	assert.False(t, ok)

	assert.Never(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	}, 300*time.Millisecond, 20*time.Millisecond)
	_, ok = s.Token()
	assert.False(t, ok)
}
