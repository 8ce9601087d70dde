// Package durable implements transactional key-value persistence for
// durable objects: write-ahead logging, pluggable storage backends, and
// in-process lifecycle management.
package durable

import (
	"encoding/json"

	"github.com/josedab/quicksilver/internal/errors"
	"github.com/josedab/quicksilver/internal/vm"
)

// Persisted snapshots use a restricted JSON model: undefined, null,
// functions, symbols, and bigints all collapse to null; arrays serialize
// their dense elements; other objects serialize their property map.

// valueToJSON lowers a runtime value into the restricted JSON model.
func valueToJSON(v vm.Value) any {
	switch v.Type {
	case vm.ValBoolean:
		return v.AsBool()
	case vm.ValNumber:
		return v.AsNumber()
	case vm.ValString:
		return v.Str
	case vm.ValObject:
		if v.Obj == nil {
			return nil
		}
		switch v.Obj.Kind {
		case vm.KindArray:
			arr := make([]any, len(v.Obj.Elements))
			for i, e := range v.Obj.Elements {
				arr[i] = valueToJSON(e)
			}
			return arr
		case vm.KindFunction, vm.KindNativeFunction, vm.KindClass:
			return nil
		default:
			m := make(map[string]any)
			for _, k := range v.Obj.Keys() {
				pv, _ := v.Obj.Get(k)
				m[k] = valueToJSON(pv)
			}
			return m
		}
	default:
		// undefined, null, symbol, bigint
		return nil
	}
}

// jsonToValue raises a decoded JSON value back into the runtime model.
func jsonToValue(j any) vm.Value {
	switch t := j.(type) {
	case nil:
		return vm.NullVal()
	case bool:
		return vm.BoolVal(t)
	case float64:
		return vm.NumberVal(t)
	case string:
		return vm.StringVal(t)
	case []any:
		elems := make([]vm.Value, len(t))
		for i, e := range t {
			elems[i] = jsonToValue(e)
		}
		return vm.ObjVal(vm.NewArray(elems))
	case map[string]any:
		obj := vm.NewObject()
		for k, v := range t {
			obj.Set(k, jsonToValue(v))
		}
		return vm.ObjVal(obj)
	default:
		return vm.NullVal()
	}
}

// marshalState pretty-prints a state map. encoding/json orders map keys, so
// snapshots are byte-stable for a given state.
func marshalState(state map[string]vm.Value) ([]byte, error) {
	m := make(map[string]any, len(state))
	for k, v := range state {
		m[k] = valueToJSON(v)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.NewModuleError("Serialization failed: %v", err)
	}
	return data, nil
}

// unmarshalState parses a snapshot file back into a state map.
func unmarshalState(data []byte) (map[string]vm.Value, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewModuleError("Invalid JSON: %v", err)
	}
	state := make(map[string]vm.Value, len(m))
	for k, v := range m {
		state[k] = jsonToValue(v)
	}
	return state, nil
}
