package durable

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

// WalOpKind discriminates write-ahead-log operations.
type WalOpKind int

const (
	WalSet WalOpKind = iota
	WalDelete
	WalClear
)

// WalOperation is a single logged mutation.
type WalOperation struct {
	Kind  WalOpKind
	Key   string
	Value vm.Value // WalSet only
}

// WalEntry is one journal record.
type WalEntry struct {
	Timestamp uint64       `json:"timestamp"`
	Op        WalOperation `json:"op"`
}

// The on-disk encoding mirrors the snapshot format's tagged-union style:
// {"Set": [key, value]} | {"Delete": key} | "Clear".

func (op WalOperation) MarshalJSON() ([]byte, error) {
	switch op.Kind {
	case WalSet:
		return json.Marshal(map[string]any{"Set": []any{op.Key, valueToJSON(op.Value)}})
	case WalDelete:
		return json.Marshal(map[string]any{"Delete": op.Key})
	case WalClear:
		return json.Marshal("Clear")
	}
	return nil, fmt.Errorf("unknown WAL op kind %d", op.Kind)
}

func (op *WalOperation) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString != "Clear" {
			return fmt.Errorf("unknown WAL op %q", asString)
		}
		op.Kind = WalClear
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if raw, ok := tagged["Set"]; ok {
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("malformed Set entry")
		}
		if err := json.Unmarshal(pair[0], &op.Key); err != nil {
			return err
		}
		var value any
		if err := json.Unmarshal(pair[1], &value); err != nil {
			return err
		}
		op.Kind = WalSet
		op.Value = jsonToValue(value)
		return nil
	}
	if raw, ok := tagged["Delete"]; ok {
		op.Kind = WalDelete
		return json.Unmarshal(raw, &op.Key)
	}
	return fmt.Errorf("unknown WAL op")
}

// marshalWal encodes the full journal as a JSON array.
func marshalWal(entries []WalEntry) ([]byte, error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.NewModuleError("WAL serialization failed: %v", err)
	}
	return data, nil
}

func unmarshalWal(data []byte) ([]WalEntry, error) {
	var entries []WalEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewModuleError("Invalid WAL JSON: %v", err)
	}
	return entries, nil
}

// replayWal applies journal entries over a snapshot in order.
func replayWal(state map[string]vm.Value, entries []WalEntry) {
	for _, entry := range entries {
		switch entry.Op.Kind {
		case WalSet:
			state[entry.Op.Key] = entry.Op.Value
		case WalDelete:
			delete(state, entry.Op.Key)
		case WalClear:
			for k := range state {
				delete(state, k)
			}
		}
	}
}

func currentTimestamp() uint64 {
	return uint64(time.Now().UnixMilli())
}
