package vm

import (
	"math"
	"testing"
)

func TestTruthiness(t *testing.T) {
	falsy := []Value{
		BoolVal(false),
		NumberVal(0),
		NumberVal(negZero()),
		NumberVal(nan()),
		StringVal(""),
		NullVal(),
		UndefinedVal(),
	}
	for _, v := range falsy {
		if ToBoolean(v) {
			t.Errorf("%s should be falsy", v.Inspect())
		}
	}

	truthy := []Value{
		BoolVal(true),
		NumberVal(1),
		StringVal("0"),
		ObjVal(NewObject()),
		ObjVal(NewArray(nil)),
	}
	for _, v := range truthy {
		if !ToBoolean(v) {
			t.Errorf("%s should be truthy", v.Inspect())
		}
	}
}

func TestStrictEquals(t *testing.T) {
	if StrictEquals(NumberVal(nan()), NumberVal(nan())) {
		t.Error("NaN === NaN should be false")
	}
	if !StrictEquals(NumberVal(0), NumberVal(negZero())) {
		t.Error("+0 === -0 should be true")
	}
	if StrictEquals(NumberVal(1), StringVal("1")) {
		t.Error("1 === '1' should be false")
	}

	obj := NewObject()
	if !StrictEquals(ObjVal(obj), ObjVal(obj)) {
		t.Error("same object reference should be strictly equal")
	}
	if StrictEquals(ObjVal(NewObject()), ObjVal(NewObject())) {
		t.Error("distinct objects should not be strictly equal")
	}
}

func TestLooseEquals(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{NullVal(), UndefinedVal(), true},
		{NullVal(), NumberVal(0), false},
		{NumberVal(1), StringVal("1"), true},
		{BoolVal(true), NumberVal(1), true},
		{BoolVal(false), StringVal(""), true},
		{StringVal("abc"), StringVal("abc"), true},
		{NumberVal(1), NumberVal(2), false},
	}
	for _, tc := range cases {
		if got := LooseEquals(tc.a, tc.b); got != tc.want {
			t.Errorf("%s == %s: got %v, want %v", tc.a.Inspect(), tc.b.Inspect(), got, tc.want)
		}
	}
}

func TestSymbolIdentity(t *testing.T) {
	a := NewSymbol()
	b := NewSymbol()
	if a.SymbolID() == b.SymbolID() {
		t.Error("fresh symbols must have distinct ids")
	}
	if !StrictEquals(a, SymbolVal(a.SymbolID())) {
		t.Error("symbol identity is its id")
	}
}

func TestArrayLength(t *testing.T) {
	arr := NewArray([]Value{NumberVal(1), NumberVal(2), NumberVal(3)})

	length, _ := arr.Get("length")
	if length.AsNumber() != 3 {
		t.Errorf("length: got %v", length.AsNumber())
	}

	// Setting length truncates the backing.
	arr.Set("length", NumberVal(1))
	if len(arr.Elements) != 1 {
		t.Errorf("after truncate: %d elements", len(arr.Elements))
	}

	// Extending pads with undefined.
	arr.Set("length", NumberVal(3))
	if len(arr.Elements) != 3 || !arr.Elements[2].IsUndefined() {
		t.Errorf("after extend: %v", arr.Elements)
	}
}

func TestObjectKeyOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("b", NumberVal(1))
	obj.Set("a", NumberVal(2))
	obj.Set("c", NumberVal(3))

	keys := obj.Keys()
	want := []string{"b", "a", "c"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys: got %v, want %v", keys, want)
		}
	}

	obj.Delete("a")
	keys = obj.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Errorf("keys after delete: %v", keys)
	}
}

func TestSymbolKeysNotEnumerated(t *testing.T) {
	obj := NewObject()
	obj.Set("visible", NumberVal(1))
	sym := NewSymbol()
	obj.SetSymbol(sym.SymbolID(), NumberVal(2))

	keys := obj.Keys()
	if len(keys) != 1 || keys[0] != "visible" {
		t.Errorf("symbol keys enumerated: %v", keys)
	}

	v, ok := obj.GetSymbol(sym.SymbolID())
	if !ok || v.AsNumber() != 2 {
		t.Errorf("symbol-keyed read: %v %v", v, ok)
	}
}

func TestPrivateFields(t *testing.T) {
	obj := NewObject()
	obj.SetPrivate("#x", NumberVal(5))

	if _, ok := obj.Get("#x"); ok {
		t.Error("private field visible through ordinary Get")
	}
	v, ok := obj.GetPrivate("#x")
	if !ok || v.AsNumber() != 5 {
		t.Errorf("private read: %v %v", v, ok)
	}
}

func TestShapeID(t *testing.T) {
	a := NewObject()
	a.Set("x", NumberVal(1))
	a.Set("y", NumberVal(2))

	b := NewObject()
	b.Set("x", NumberVal(9))
	b.Set("y", NumberVal(8))

	c := NewObject()
	c.Set("y", NumberVal(2))
	c.Set("x", NumberVal(1))

	if a.ShapeID() != b.ShapeID() {
		t.Error("same key insertion order must share a shape")
	}
	if a.ShapeID() == c.ShapeID() {
		t.Error("different key order must differ in shape")
	}
}

func TestPrototypeLookup(t *testing.T) {
	proto := NewObject()
	proto.Set("greet", StringVal("hi"))

	obj := NewObject()
	obj.Prototype = proto

	v, ok := obj.Get("greet")
	if !ok || v.Str != "hi" {
		t.Errorf("prototype lookup: %v %v", v, ok)
	}
}

func negZero() float64 {
	return math.Copysign(0, -1)
}

func nan() float64 {
	return math.NaN()
}
