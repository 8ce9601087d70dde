package durable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

func TestDurableObjectCRUD(t *testing.T) {
	obj, err := NewDurableObject("test1", NewMemoryStorage())
	require.NoError(t, err)

	require.NoError(t, obj.Set("name", vm.StringVal("Alice")))
	require.NoError(t, obj.Set("age", vm.NumberVal(30)))

	name, ok := obj.Get("name")
	require.True(t, ok)
	require.Equal(t, "Alice", name.Str)
	require.Equal(t, 2, obj.Len())

	existed, err := obj.Delete("age")
	require.NoError(t, err)
	require.True(t, existed)
	_, ok = obj.Get("age")
	require.False(t, ok)

	existed, err = obj.Delete("age")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestEmptyObject(t *testing.T) {
	obj, err := NewDurableObject("empty", NewMemoryStorage())
	require.NoError(t, err)
	require.True(t, obj.IsEmpty())
	require.Equal(t, 0, obj.Len())
	require.Empty(t, obj.Keys())
}

func TestPersistAndHydrate(t *testing.T) {
	storage := NewMemoryStorage()

	obj, err := NewDurableObject("test2", storage)
	require.NoError(t, err)
	require.NoError(t, obj.Set("key", vm.StringVal("value")))
	require.NoError(t, obj.Persist())

	// Persist postconditions.
	require.Zero(t, obj.WalLen())
	require.Empty(t, obj.DirtyKeys())
	require.Zero(t, obj.OpsSincePersist())

	// A fresh instance over the same backend sees the state.
	again, err := NewDurableObject("test2", storage)
	require.NoError(t, err)
	v, ok := again.Get("key")
	require.True(t, ok)
	require.Equal(t, "value", v.Str)
}

func TestTransactionCommit(t *testing.T) {
	obj, err := NewDurableObject("test3", NewMemoryStorage())
	require.NoError(t, err)

	err = obj.Transaction(func(ctx *TransactionContext) error {
		ctx.Set("a", vm.NumberVal(1))
		ctx.Set("b", vm.NumberVal(2))
		return nil
	})
	require.NoError(t, err)

	a, _ := obj.Get("a")
	b, _ := obj.Get("b")
	require.Equal(t, 1.0, a.AsNumber())
	require.Equal(t, 2.0, b.AsNumber())
}

func TestTransactionRollback(t *testing.T) {
	obj, err := NewDurableObject("test4", NewMemoryStorage())
	require.NoError(t, err)
	require.NoError(t, obj.Set("x", vm.NumberVal(10)))

	abort := errors.NewTypeError("abort")
	err = obj.Transaction(func(ctx *TransactionContext) error {
		ctx.Set("x", vm.NumberVal(20))
		return abort
	})
	require.ErrorIs(t, err, abort)

	x, _ := obj.Get("x")
	require.Equal(t, 10.0, x.AsNumber())
}

func TestClear(t *testing.T) {
	obj, err := NewDurableObject("test5", NewMemoryStorage())
	require.NoError(t, err)
	require.NoError(t, obj.Set("a", vm.NumberVal(1)))
	require.NoError(t, obj.Set("b", vm.NumberVal(2)))
	require.NoError(t, obj.Clear())
	require.True(t, obj.IsEmpty())
}

func TestAutoPersistThreshold(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewWalFileStorage(dir)
	require.NoError(t, err)

	obj, err := NewDurableObject("auto", storage)
	require.NoError(t, err)
	obj.SetPersistThreshold(2)

	require.NoError(t, obj.Set("a", vm.NumberVal(1)))
	require.NotZero(t, obj.OpsSincePersist())

	// The second mutation crosses the threshold and auto-persists.
	require.NoError(t, obj.Set("b", vm.NumberVal(2)))
	require.Zero(t, obj.OpsSincePersist())
	require.Zero(t, obj.WalLen())

	_, err = os.Stat(filepath.Join(dir, "auto.json"))
	require.NoError(t, err)
}

func TestWalCrashRecovery(t *testing.T) {
	dir := t.TempDir()

	// Mutate without persisting; only the WAL reaches disk.
	storage, err := NewWalFileStorage(dir)
	require.NoError(t, err)
	obj, err := NewDurableObject("crash", storage)
	require.NoError(t, err)
	require.NoError(t, obj.Set("a", vm.NumberVal(1)))
	require.NoError(t, obj.Set("b", vm.NumberVal(2)))

	_, err = os.Stat(filepath.Join(dir, "crash.wal.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "crash.json"))
	require.True(t, os.IsNotExist(err), "snapshot must not exist before persist")

	// Simulated restart: a fresh backend over the same directory replays
	// the journal during hydration.
	storage2, err := NewWalFileStorage(dir)
	require.NoError(t, err)
	revived, err := NewDurableObject("crash", storage2)
	require.NoError(t, err)

	a, ok := revived.Get("a")
	require.True(t, ok)
	require.Equal(t, 1.0, a.AsNumber())
	b, ok := revived.Get("b")
	require.True(t, ok)
	require.Equal(t, 2.0, b.AsNumber())
}

func TestWalReplayMatchesDirectState(t *testing.T) {
	// State after mutations equals state after snapshot + WAL replay.
	dir := t.TempDir()
	storage, err := NewWalFileStorage(dir)
	require.NoError(t, err)

	obj, err := NewDurableObject("replay", storage)
	require.NoError(t, err)
	require.NoError(t, obj.Set("x", vm.NumberVal(1)))
	require.NoError(t, obj.Persist())
	require.NoError(t, obj.Set("y", vm.StringVal("two")))
	existed, err := obj.Delete("x")
	require.NoError(t, err)
	require.True(t, existed)

	storage2, err := NewWalFileStorage(dir)
	require.NoError(t, err)
	revived, err := NewDurableObject("replay", storage2)
	require.NoError(t, err)

	require.Equal(t, obj.Keys(), revived.Keys())
	y, _ := revived.Get("y")
	require.Equal(t, "two", y.Str)
	_, ok := revived.Get("x")
	require.False(t, ok)
}

func TestFileStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	require.NoError(t, err)

	nested := vm.NewObject()
	nested.Set("inner", vm.BoolVal(true))
	state := map[string]vm.Value{
		"num":  vm.NumberVal(3.5),
		"str":  vm.StringVal("hello"),
		"arr":  vm.ObjVal(vm.NewArray([]vm.Value{vm.NumberVal(1), vm.NullVal()})),
		"obj":  vm.ObjVal(nested),
		"none": vm.UndefinedVal(), // undefined collapses to null
	}
	require.NoError(t, storage.Save("rt", state))

	loaded, ok, err := storage.Load("rt")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, 3.5, loaded["num"].AsNumber())
	require.Equal(t, "hello", loaded["str"].Str)
	require.True(t, loaded["none"].IsNull())
	require.Equal(t, vm.KindArray, loaded["arr"].Obj.Kind)
	inner, _ := loaded["obj"].Obj.Get("inner")
	require.True(t, inner.AsBool())

	ids, err := storage.ListObjects()
	require.NoError(t, err)
	require.Equal(t, []string{"rt"}, ids)
}

func TestJournaledTransaction(t *testing.T) {
	state := map[string]vm.Value{
		"user:1": vm.StringVal("alice"),
		"user:2": vm.StringVal("bob"),
		"item:1": vm.StringVal("hammer"),
	}

	txn := BeginTransaction("obj", state)
	require.Equal(t, TxnActive, txn.State)
	require.NotEmpty(t, txn.ID)

	v, ok := txn.Get("user:1")
	require.True(t, ok)
	require.Equal(t, "alice", v.Str)

	txn.Put("user:3", vm.StringVal("carol"))
	require.True(t, txn.Delete("item:1"))

	keys := txn.List("user:", 0)
	require.Equal(t, []string{"user:1", "user:2", "user:3"}, keys)

	limited := txn.List("user:", 2)
	require.Len(t, limited, 2)

	require.Equal(t, 5, txn.OpCount())

	// The base state is untouched until commit.
	require.Contains(t, state, "item:1")

	results, err := txn.Commit(&state)
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.NotContains(t, state, "item:1")
	require.Contains(t, state, "user:3")

	// A committed transaction cannot commit again.
	_, err = txn.Commit(&state)
	require.Error(t, err)
}

func TestJournaledTransactionRollback(t *testing.T) {
	state := map[string]vm.Value{"k": vm.NumberVal(1)}
	txn := BeginTransaction("obj", state)
	txn.Put("k", vm.NumberVal(2))
	require.Equal(t, TxnRolledBack, txn.Rollback())

	require.Equal(t, 1.0, state["k"].AsNumber())
}
