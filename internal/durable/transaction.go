package durable

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

// TransactionState is the state of a journaled transaction.
type TransactionState int

const (
	TxnActive TransactionState = iota
	TxnCommitted
	TxnRolledBack
	TxnFailed
)

// TransactionOpKind discriminates journaled operations.
type TransactionOpKind int

const (
	TxnGet TransactionOpKind = iota
	TxnPut
	TxnDelete
	TxnList
)

// TransactionOp is one journaled operation.
type TransactionOp struct {
	Kind   TransactionOpKind
	Key    string
	Value  vm.Value
	Prefix string
	Limit  int
}

// Transaction is an operation-journaled transaction against a durable
// object's state: reads and writes run against a private snapshot and apply
// to the target only on commit.
type Transaction struct {
	ID         string
	ObjectID   string
	Operations []TransactionOp
	State      TransactionState
	StartedAt  time.Time

	snapshot map[string]vm.Value
	results  []vm.Value
}

// BeginTransaction snapshots the given state for isolated execution.
func BeginTransaction(objectID string, data map[string]vm.Value) *Transaction {
	snapshot := make(map[string]vm.Value, len(data))
	for k, v := range data {
		snapshot[k] = v
	}
	return &Transaction{
		ID:        uuid.NewString(),
		ObjectID:  objectID,
		State:     TxnActive,
		StartedAt: time.Now(),
		snapshot:  snapshot,
	}
}

// Get journals a read and returns the snapshot value.
func (t *Transaction) Get(key string) (vm.Value, bool) {
	t.Operations = append(t.Operations, TransactionOp{Kind: TxnGet, Key: key})
	v, ok := t.snapshot[key]
	if ok {
		t.results = append(t.results, v)
	} else {
		t.results = append(t.results, vm.UndefinedVal())
	}
	return v, ok
}

// Put journals a write into the snapshot.
func (t *Transaction) Put(key string, value vm.Value) {
	t.Operations = append(t.Operations, TransactionOp{Kind: TxnPut, Key: key, Value: value})
	t.snapshot[key] = value
	t.results = append(t.results, vm.UndefinedVal())
}

// Delete journals a removal. Returns whether the key existed.
func (t *Transaction) Delete(key string) bool {
	t.Operations = append(t.Operations, TransactionOp{Kind: TxnDelete, Key: key})
	_, existed := t.snapshot[key]
	delete(t.snapshot, key)
	t.results = append(t.results, vm.UndefinedVal())
	return existed
}

// List journals a key listing filtered by optional prefix and limit
// (limit <= 0 means unlimited). Keys return sorted.
func (t *Transaction) List(prefix string, limit int) []string {
	t.Operations = append(t.Operations, TransactionOp{Kind: TxnList, Prefix: prefix, Limit: limit})

	var keys []string
	for k := range t.snapshot {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	elems := make([]vm.Value, len(keys))
	for i, k := range keys {
		elems[i] = vm.StringVal(k)
	}
	t.results = append(t.results, vm.ObjVal(vm.NewArray(elems)))
	return keys
}

// Commit replaces the target state with the transaction's snapshot and
// returns the journaled results.
func (t *Transaction) Commit(target *map[string]vm.Value) ([]vm.Value, error) {
	if t.State != TxnActive {
		return nil, errors.NewModuleError("Transaction is not active")
	}
	*target = t.snapshot
	t.State = TxnCommitted
	return t.results, nil
}

// Rollback abandons the transaction without applying changes.
func (t *Transaction) Rollback() TransactionState {
	t.State = TxnRolledBack
	return t.State
}

// OpCount is the number of journaled operations.
func (t *Transaction) OpCount() int { return len(t.Operations) }
