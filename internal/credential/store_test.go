package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"clubhub-go/internal/config"
	"clubhub-go/internal/monitoring"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behaviour every backend shares.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, KeyToken)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyToken, "tok1"))
	require.NoError(t, store.Set(ctx, KeyUser, `{"id":"u1","role":"coach"}`))

	got, err := store.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok1", got)

	require.NoError(t, store.Set(ctx, KeyToken, "tok2"))
	got, err = store.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.Equal(t, "tok2", got)

	require.NoError(t, store.Delete(ctx, KeyToken, KeyUser, "never-set"))
	_, err = store.Get(ctx, KeyToken)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, KeyUser)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	exerciseStore(t, store)
	require.Equal(t, 0, store.Len())
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStoreSharedAcrossInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	a, err := NewFileStore(path)
	require.NoError(t, err)
	b, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, a.Set(ctx, KeyToken, "shared"))
	got, err := b.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.Equal(t, "shared", got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreConcurrentInstancesLeaveNoTempFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	a, err := NewFileStore(path)
	require.NoError(t, err)
	b, err := NewFileStore(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, s := range []*FileStore{a, b} {
			wg.Add(1)
			go func(s *FileStore, n int) {
				defer wg.Done()
				errs <- s.Set(ctx, KeyToken, fmt.Sprintf("t%d", n))
			}(s, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := a.Get(ctx, KeyToken)
	require.NoError(t, err)
	require.Regexp(t, `^t\d+$`, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "credentials.json", entries[0].Name())
}

func TestFileStoreReplaceFailureIsWrappedAndCleanedUp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	boom := errors.New("cross-device link")
	store.rename = func(string, string) error { return boom }

	err = store.Set(context.Background(), KeyToken, "t")
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "replace credential file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), KeyToken)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func newMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)

	store, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "clubhub:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), KeyToken, "prefixed"))
	raw, err := mr.Get("clubhub:token")
	require.NoError(t, err)
	require.Equal(t, "prefixed", raw)
}

func TestRedisStoreUnreachable(t *testing.T) {
	t.Parallel()
	mr := newMiniredis(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr})
	require.Error(t, err)
}

func TestInstrumentedCountsOperations(t *testing.T) {
	store := WithInstrumentation(NewMemoryStore(), "memory-test")
	ctx := context.Background()

	_, err := store.Get(ctx, KeyToken)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Set(ctx, KeyToken, "t"))
	require.NoError(t, store.Delete(ctx, KeyToken))

	require.Equal(t, 1.0, testutil.ToFloat64(monitoring.StoreOperationsTotal.WithLabelValues("memory-test", "get", "miss")))
	require.Equal(t, 1.0, testutil.ToFloat64(monitoring.StoreOperationsTotal.WithLabelValues("memory-test", "set", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(monitoring.StoreOperationsTotal.WithLabelValues("memory-test", "delete", "ok")))
	require.NoError(t, store.Close())
	require.Equal(t, "memory-test", store.Backend())
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem, err := Open(ctx, config.StoreConfig{Backend: config.StoreMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, mem.Unwrap())

	file, err := Open(ctx, config.StoreConfig{Backend: config.StoreFile, FilePath: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, file.Unwrap())

	mr := newMiniredis(t)
	rs, err := Open(ctx, config.StoreConfig{Backend: config.StoreRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &RedisStore{}, rs.Unwrap())
	require.NoError(t, rs.Close())

	_, err = Open(ctx, config.StoreConfig{Backend: "etcd"})
	require.Error(t, err)
}
