package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	// The returned slice is a copy; mutating it never leaks back.
	got[0] = 'x'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), again)

	require.NoError(t, db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestWriteBatch(t *testing.T) {
	dir := t.TempDir()
	backends := map[string]Database{}

	backends["memory"] = NewMemDB()
	ldb, err := Open("leveldb", filepath.Join(dir, "ldb"))
	require.NoError(t, err)
	backends["leveldb"] = ldb
	bolt, err := Open("bolt", filepath.Join(dir, "bolt.db"))
	require.NoError(t, err)
	backends["bolt"] = bolt

	for name, db := range backends {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("stale"), []byte("old")))
			require.NoError(t, db.Write([]BatchOp{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("b"), Value: []byte("2")},
				{Key: []byte("stale"), Delete: true},
			}))

			got, err := db.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), got)
			got, err = db.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), got)
			_, err = db.Get([]byte("stale"))
			require.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
	for _, db := range backends {
		require.NoError(t, db.Close())
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	db, err := Open("memory", "")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open("leveldb", filepath.Join(dir, "ldb"))
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
	require.NoError(t, db.Close())

	db, err = Open("bolt", filepath.Join(dir, "bolt.db"))
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	_, err = db.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, db.Close())

	_, err = Open("etched-stone", "")
	require.ErrorIs(t, err, ErrUnknownBackend)
}
