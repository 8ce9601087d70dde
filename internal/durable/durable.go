package durable

import (
	"sort"
	"time"

	"github.com/josedab/quicksilver/internal/vm"
)

// ObjectState is the lifecycle state of a durable object.
type ObjectState int

const (
	StateActive ObjectState = iota
	StateHibernating
	StateEvicted
	StateCorrupted
)

func (s ObjectState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateHibernating:
		return "hibernating"
	case StateEvicted:
		return "evicted"
	case StateCorrupted:
		return "corrupted"
	}
	return "unknown"
}

// DefaultPersistThreshold triggers auto-persist after this many mutations.
const DefaultPersistThreshold = 100

// DurableObject is an entity persisted across process lifetime. Set, Delete
// and Clear append a WAL entry before the in-memory state changes, so
// hydration (snapshot + WAL replay) reaches the last state they produced
// even after a crash mid-write. Changes made inside Transaction are not
// journaled; they reach storage only with the next Persist.
type DurableObject struct {
	ID string

	state     map[string]vm.Value
	dirtyKeys []string
	wal       []WalEntry
	storage   StorageBackend

	autoPersist      bool
	opsSincePersist  int
	persistThreshold int

	// Lifecycle bookkeeping, maintained by the manager.
	State        ObjectState
	lastAccessed time.Time
	accessCount  uint64
}

// NewDurableObject creates an object bound to a backend and hydrates it.
func NewDurableObject(id string, storage StorageBackend) (*DurableObject, error) {
	obj := &DurableObject{
		ID:               id,
		state:            make(map[string]vm.Value),
		storage:          storage,
		autoPersist:      true,
		persistThreshold: DefaultPersistThreshold,
		State:            StateActive,
		lastAccessed:     time.Now(),
	}
	if err := obj.hydrate(); err != nil {
		return nil, err
	}
	return obj, nil
}

// SetAutoPersist toggles threshold-based persistence.
func (o *DurableObject) SetAutoPersist(enabled bool) {
	o.autoPersist = enabled
}

// SetPersistThreshold overrides the auto-persist threshold.
func (o *DurableObject) SetPersistThreshold(n int) {
	o.persistThreshold = n
}

// hydrate loads the snapshot, then replays the WAL over it.
func (o *DurableObject) hydrate() error {
	if state, ok, err := o.storage.Load(o.ID); err != nil {
		return err
	} else if ok {
		o.state = state
	}

	if wb, ok := o.storage.(WalBackend); ok {
		entries, err := wb.LoadWal(o.ID)
		if err != nil {
			return err
		}
		replayWal(o.state, entries)
		o.wal = entries
	}
	return nil
}

// appendWal journals a mutation, eagerly flushing to disk when the backend
// supports it.
func (o *DurableObject) appendWal(op WalOperation) error {
	entry := WalEntry{Timestamp: currentTimestamp(), Op: op}
	o.wal = append(o.wal, entry)
	if wb, ok := o.storage.(WalBackend); ok {
		return wb.AppendWal(o.ID, entry)
	}
	return nil
}

// Get reads a value from state.
func (o *DurableObject) Get(key string) (vm.Value, bool) {
	o.touch()
	v, ok := o.state[key]
	return v, ok
}

// Set writes a value, journaling first.
func (o *DurableObject) Set(key string, value vm.Value) error {
	o.touch()
	if err := o.appendWal(WalOperation{Kind: WalSet, Key: key, Value: value}); err != nil {
		return err
	}
	o.state[key] = value
	o.dirtyKeys = append(o.dirtyKeys, key)
	o.opsSincePersist++
	return o.maybeAutoPersist()
}

// Delete removes a key. Returns whether it existed.
func (o *DurableObject) Delete(key string) (bool, error) {
	o.touch()
	if _, existed := o.state[key]; !existed {
		return false, nil
	}
	if err := o.appendWal(WalOperation{Kind: WalDelete, Key: key}); err != nil {
		return false, err
	}
	delete(o.state, key)
	o.dirtyKeys = append(o.dirtyKeys, key)
	o.opsSincePersist++
	return true, o.maybeAutoPersist()
}

// Clear drops all state.
func (o *DurableObject) Clear() error {
	o.touch()
	if err := o.appendWal(WalOperation{Kind: WalClear}); err != nil {
		return err
	}
	o.state = make(map[string]vm.Value)
	o.dirtyKeys = nil
	o.opsSincePersist++
	return o.maybeAutoPersist()
}

// Keys lists all keys, sorted for deterministic iteration.
func (o *DurableObject) Keys() []string {
	keys := make([]string, 0, len(o.state))
	for k := range o.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of entries.
func (o *DurableObject) Len() int { return len(o.state) }

// IsEmpty reports an empty state map.
func (o *DurableObject) IsEmpty() bool { return len(o.state) == 0 }

// IsDirty reports un-persisted mutations.
func (o *DurableObject) IsDirty() bool { return len(o.dirtyKeys) > 0 || len(o.wal) > 0 }

// DirtyKeys returns keys modified since the last persist.
func (o *DurableObject) DirtyKeys() []string { return o.dirtyKeys }

// WalLen is the number of pending journal entries.
func (o *DurableObject) WalLen() int { return len(o.wal) }

// OpsSincePersist counts mutations since the last persist.
func (o *DurableObject) OpsSincePersist() int { return o.opsSincePersist }

// Persist writes the snapshot atomically, then truncates the WAL and resets
// the dirty bookkeeping.
func (o *DurableObject) Persist() error {
	if err := o.storage.Save(o.ID, o.state); err != nil {
		return err
	}
	if wb, ok := o.storage.(WalBackend); ok {
		if err := wb.TruncateWal(o.ID); err != nil {
			return err
		}
	}
	o.wal = nil
	o.dirtyKeys = nil
	o.opsSincePersist = 0
	return nil
}

func (o *DurableObject) maybeAutoPersist() error {
	if o.autoPersist && o.opsSincePersist >= o.persistThreshold {
		return o.Persist()
	}
	return nil
}

// TransactionContext exposes the live state to a transaction function.
type TransactionContext struct {
	obj *DurableObject
}

// Get reads a value inside the transaction.
func (t *TransactionContext) Get(key string) (vm.Value, bool) {
	v, ok := t.obj.state[key]
	return v, ok
}

// Set writes a value inside the transaction.
func (t *TransactionContext) Set(key string, value vm.Value) {
	t.obj.state[key] = value
	t.obj.dirtyKeys = append(t.obj.dirtyKeys, key)
}

// Delete removes a key inside the transaction.
func (t *TransactionContext) Delete(key string) bool {
	if _, existed := t.obj.state[key]; !existed {
		return false
	}
	delete(t.obj.state, key)
	t.obj.dirtyKeys = append(t.obj.dirtyKeys, key)
	return true
}

// Transaction snapshots the state, runs fn against the live state, and on
// error restores the snapshot before returning the error. Nested
// transactions are not supported.
func (o *DurableObject) Transaction(fn func(*TransactionContext) error) error {
	o.touch()
	snapshot := make(map[string]vm.Value, len(o.state))
	for k, v := range o.state {
		snapshot[k] = v
	}
	dirtySnapshot := len(o.dirtyKeys)

	if err := fn(&TransactionContext{obj: o}); err != nil {
		o.state = snapshot
		o.dirtyKeys = o.dirtyKeys[:dirtySnapshot]
		return err
	}

	o.opsSincePersist++
	return o.maybeAutoPersist()
}

// ToValue exports the state as a plain object value.
func (o *DurableObject) ToValue() vm.Value {
	obj := vm.NewObject()
	for _, k := range o.Keys() {
		obj.Set(k, o.state[k])
	}
	return vm.ObjVal(obj)
}

func (o *DurableObject) touch() {
	o.lastAccessed = time.Now()
	o.accessCount++
	if o.State == StateHibernating {
		o.State = StateActive
	}
}

// LastAccessed is the time of the most recent read or write.
func (o *DurableObject) LastAccessed() time.Time { return o.lastAccessed }

// AccessCount is the total number of reads and writes.
func (o *DurableObject) AccessCount() uint64 { return o.accessCount }
