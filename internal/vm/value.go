package vm

import (
	"fmt"
	"math"
	"math/big"
	"sync/atomic"
)

// ValueType identifies the kind of value stored in the Value struct.
type ValueType uint8

const (
	ValUndefined ValueType = iota
	ValNull
	ValBoolean
	ValNumber
	ValString
	ValSymbol
	ValBigInt
	ValObject
)

func (t ValueType) String() string {
	switch t {
	case ValUndefined:
		return "undefined"
	case ValNull:
		return "null"
	case ValBoolean:
		return "boolean"
	case ValNumber:
		return "number"
	case ValString:
		return "string"
	case ValSymbol:
		return "symbol"
	case ValBigInt:
		return "bigint"
	case ValObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a stack-allocated tagged union over the JS value kinds.
// Data holds float64 bits, bool (0/1), or a symbol id; the pointer fields
// hold the heap payloads. There is no separate integer type at runtime -
// every numeric value is a Number.
type Value struct {
	Type ValueType
	Data uint64
	Str  string
	Big  *big.Int
	Obj  *Object
}

// symbolCounter allocates process-wide unique symbol ids so symbol identity
// survives across chunks.
var symbolCounter atomic.Uint64

// Constructors

func UndefinedVal() Value {
	return Value{Type: ValUndefined}
}

func NullVal() Value {
	return Value{Type: ValNull}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Type: ValBoolean, Data: data}
}

func NumberVal(v float64) Value {
	return Value{Type: ValNumber, Data: math.Float64bits(v)}
}

func StringVal(s string) Value {
	return Value{Type: ValString, Str: s}
}

// NewSymbol allocates a fresh unique symbol.
func NewSymbol() Value {
	return Value{Type: ValSymbol, Data: symbolCounter.Add(1)}
}

// SymbolVal references an existing symbol by id.
func SymbolVal(id uint64) Value {
	return Value{Type: ValSymbol, Data: id}
}

func BigIntVal(v *big.Int) Value {
	return Value{Type: ValBigInt, Big: v}
}

// NewBigInt parses a decimal bigint literal. Returns false on bad input.
func NewBigInt(digits string) (Value, bool) {
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return UndefinedVal(), false
	}
	return BigIntVal(n), true
}

func ObjVal(o *Object) Value {
	return Value{Type: ValObject, Obj: o}
}

// Accessors

func (v Value) AsNumber() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) SymbolID() uint64 {
	return v.Data
}

// Type checking helpers

func (v Value) IsUndefined() bool { return v.Type == ValUndefined }
func (v Value) IsNull() bool      { return v.Type == ValNull }
func (v Value) IsBoolean() bool   { return v.Type == ValBoolean }
func (v Value) IsNumber() bool    { return v.Type == ValNumber }
func (v Value) IsString() bool    { return v.Type == ValString }
func (v Value) IsSymbol() bool    { return v.Type == ValSymbol }
func (v Value) IsBigInt() bool    { return v.Type == ValBigInt }
func (v Value) IsObject() bool    { return v.Type == ValObject }

// IsNullish reports null or undefined (the ?? and ?. test).
func (v Value) IsNullish() bool {
	return v.Type == ValNull || v.Type == ValUndefined
}

// Inspect returns a debug representation.
func (v Value) Inspect() string {
	switch v.Type {
	case ValUndefined:
		return "undefined"
	case ValNull:
		return "null"
	case ValBoolean:
		return fmt.Sprintf("%t", v.AsBool())
	case ValNumber:
		return NumberToString(v.AsNumber())
	case ValString:
		return fmt.Sprintf("%q", v.Str)
	case ValSymbol:
		return fmt.Sprintf("Symbol(%d)", v.Data)
	case ValBigInt:
		return v.Big.String() + "n"
	case ValObject:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil obj>"
	default:
		return "<?>"
	}
}
