package durable

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josedab/quicksilver/internal/vm"
)

func openTestDB(t *testing.T) *SqliteStorage {
	t.Helper()
	storage, err := NewSqliteStorage(filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestSqliteStorageRoundTrip(t *testing.T) {
	storage := openTestDB(t)

	state := map[string]vm.Value{
		"count": vm.NumberVal(42),
		"name":  vm.StringVal("quicksilver"),
		"flag":  vm.BoolVal(true),
		"list":  vm.ObjVal(vm.NewArray([]vm.Value{vm.NumberVal(1), vm.StringVal("two")})),
	}
	require.NoError(t, storage.Save("obj1", state))

	loaded, ok, err := storage.Load("obj1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 42.0, loaded["count"].AsNumber())
	require.Equal(t, "quicksilver", loaded["name"].Str)
	require.True(t, loaded["flag"].AsBool())
	require.Equal(t, vm.KindArray, loaded["list"].Obj.Kind)
	require.Len(t, loaded["list"].Obj.Elements, 2)
}

func TestSqliteStorageMissingObject(t *testing.T) {
	storage := openTestDB(t)
	_, ok, err := storage.Load("nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSqliteStorageSaveReplaces(t *testing.T) {
	storage := openTestDB(t)

	require.NoError(t, storage.Save("obj", map[string]vm.Value{
		"a": vm.NumberVal(1),
		"b": vm.NumberVal(2),
	}))
	// A later save fully replaces the previous snapshot.
	require.NoError(t, storage.Save("obj", map[string]vm.Value{
		"a": vm.NumberVal(10),
	}))

	loaded, ok, err := storage.Load("obj")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded, 1)
	require.Equal(t, 10.0, loaded["a"].AsNumber())
}

func TestSqliteStorageDeleteAndList(t *testing.T) {
	storage := openTestDB(t)

	require.NoError(t, storage.Save("x", map[string]vm.Value{"k": vm.NumberVal(1)}))
	require.NoError(t, storage.Save("y", map[string]vm.Value{"k": vm.NumberVal(2)}))

	ids, err := storage.ListObjects()
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, ids)

	require.NoError(t, storage.Delete("x"))
	ids, err = storage.ListObjects()
	require.NoError(t, err)
	require.Equal(t, []string{"y"}, ids)
}

func TestDurableObjectOverSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.db")

	storage, err := NewSqliteStorage(path)
	require.NoError(t, err)
	obj, err := NewDurableObject("session", storage)
	require.NoError(t, err)
	require.NoError(t, obj.Set("token", vm.StringVal("abc123")))
	require.NoError(t, obj.Persist())
	require.NoError(t, storage.Close())

	// Reopen the database and hydrate a fresh instance.
	storage2, err := NewSqliteStorage(path)
	require.NoError(t, err)
	defer storage2.Close()

	revived, err := NewDurableObject("session", storage2)
	require.NoError(t, err)
	token, ok := revived.Get("token")
	require.True(t, ok)
	require.Equal(t, "abc123", token.Str)
}
