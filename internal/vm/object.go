package vm

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// ObjectKind discriminates the heap object representations.
type ObjectKind uint8

const (
	KindPlain ObjectKind = iota
	KindArray
	KindFunction
	KindNativeFunction
	KindClass
)

// NativeFn is the signature of a Go-implemented JS function.
type NativeFn func(this Value, args []Value) (Value, error)

// NativeFunction is a named Go callable exposed to JS code.
type NativeFunction struct {
	Name string
	Fn   NativeFn
}

// ClassData holds a class's compile-time member tables. Method values are
// function objects; instance fields hold compile-time evaluated defaults.
type ClassData struct {
	Name             string
	Constructor      *Value // nil when the class has no constructor
	PrototypeMethods map[string]Value
	Getters          map[string]Value
	Setters          map[string]Value
	StaticMethods    map[string]Value
	StaticGetters    map[string]Value
	StaticSetters    map[string]Value
	InstanceFields   map[string]Value // private fields keyed with '#' prefix
	SuperClass       *Object          // installed by SET_SUPER_CLASS
}

// symbolKeyPrefix namespaces symbol-keyed properties inside the ordered
// property table. Symbol keys are never enumerated.
const symbolKeyPrefix = "@@sym:"

// Object is a shared-ownership, interior-mutable heap record. Mutation is
// not synchronized: the VM is single-threaded cooperative, and concurrent
// access from multiple goroutines is undefined behavior.
type Object struct {
	Kind ObjectKind

	// Ordered property table (insertion order preserved for iteration).
	propKeys []string
	props    map[string]Value

	// Dense elements for KindArray. Sparse and named entries live in props.
	Elements []Value

	Function *CompiledFunction
	IsAsync  bool
	IsGen    bool
	Native   *NativeFunction
	Class    *ClassData

	Prototype *Object

	// Private fields, keys carry the '#' prefix. Reachable only through the
	// GET_PRIVATE_FIELD / SET_PRIVATE_FIELD opcodes.
	private map[string]Value
}

// NewObject creates an empty plain object.
func NewObject() *Object {
	return &Object{Kind: KindPlain, props: make(map[string]Value)}
}

// NewArray creates an array object over the given dense elements.
func NewArray(elements []Value) *Object {
	return &Object{Kind: KindArray, Elements: elements, props: make(map[string]Value)}
}

// NewFunctionObject wraps a compiled function.
func NewFunctionObject(fn *CompiledFunction, isAsync, isGenerator bool) *Object {
	return &Object{
		Kind:     KindFunction,
		Function: fn,
		IsAsync:  isAsync,
		IsGen:    isGenerator,
		props:    make(map[string]Value),
	}
}

// NewNativeFunction wraps a Go callable.
func NewNativeFunction(name string, fn NativeFn) *Object {
	return &Object{
		Kind:   KindNativeFunction,
		Native: &NativeFunction{Name: name, Fn: fn},
		props:  make(map[string]Value),
	}
}

// NewClassObject wraps class data.
func NewClassObject(data *ClassData) *Object {
	return &Object{Kind: KindClass, Class: data, props: make(map[string]Value)}
}

// Get reads a property. Array length and dense indices are virtual; the
// prototype chain is consulted for misses.
func (o *Object) Get(key string) (Value, bool) {
	if o.Kind == KindArray {
		if key == "length" {
			if v, ok := o.props["length"]; ok {
				return v, true
			}
			return NumberVal(float64(len(o.Elements))), true
		}
		if idx, ok := arrayIndex(key); ok && idx < len(o.Elements) {
			return o.Elements[idx], true
		}
	}
	if v, ok := o.props[key]; ok {
		return v, true
	}
	if o.Prototype != nil {
		return o.Prototype.Get(key)
	}
	return UndefinedVal(), false
}

// Set writes a property. Setting an array's length truncates or extends the
// dense backing; numeric keys within bounds write the backing directly.
func (o *Object) Set(key string, value Value) {
	if o.Kind == KindArray {
		if key == "length" && value.IsNumber() {
			o.setLength(int(value.AsNumber()))
			return
		}
		if idx, ok := arrayIndex(key); ok {
			if idx < len(o.Elements) {
				o.Elements[idx] = value
				return
			}
			if idx == len(o.Elements) {
				o.Elements = append(o.Elements, value)
				return
			}
		}
	}
	if _, exists := o.props[key]; !exists {
		o.propKeys = append(o.propKeys, key)
	}
	o.props[key] = value
}

// Delete removes an own property. Returns whether the key existed.
func (o *Object) Delete(key string) bool {
	if o.Kind == KindArray {
		if idx, ok := arrayIndex(key); ok && idx < len(o.Elements) {
			o.Elements[idx] = UndefinedVal()
			return true
		}
	}
	if _, ok := o.props[key]; !ok {
		return false
	}
	delete(o.props, key)
	for i, k := range o.propKeys {
		if k == key {
			o.propKeys = append(o.propKeys[:i], o.propKeys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns own enumerable keys in insertion order. Symbol-keyed
// properties are skipped; array element indices come first.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.propKeys)+len(o.Elements))
	if o.Kind == KindArray {
		for i := range o.Elements {
			keys = append(keys, strconv.Itoa(i))
		}
	}
	for _, k := range o.propKeys {
		if strings.HasPrefix(k, symbolKeyPrefix) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// GetSymbol reads a symbol-keyed property.
func (o *Object) GetSymbol(id uint64) (Value, bool) {
	return o.Get(symbolKey(id))
}

// SetSymbol writes a symbol-keyed property.
func (o *Object) SetSymbol(id uint64, value Value) {
	o.Set(symbolKey(id), value)
}

func symbolKey(id uint64) string {
	return fmt.Sprintf("%s%d", symbolKeyPrefix, id)
}

// GetPrivate reads a '#'-prefixed private field.
func (o *Object) GetPrivate(name string) (Value, bool) {
	if o.private == nil {
		return UndefinedVal(), false
	}
	v, ok := o.private[name]
	return v, ok
}

// SetPrivate writes a '#'-prefixed private field.
func (o *Object) SetPrivate(name string, value Value) {
	if o.private == nil {
		o.private = make(map[string]Value)
	}
	o.private[name] = value
}

// Length reads the array length (property override first, then backing).
func (o *Object) Length() int {
	if v, ok := o.props["length"]; ok && v.IsNumber() {
		return int(v.AsNumber())
	}
	return len(o.Elements)
}

func (o *Object) setLength(n int) {
	if n < 0 {
		n = 0
	}
	for len(o.Elements) < n {
		o.Elements = append(o.Elements, UndefinedVal())
	}
	o.Elements = o.Elements[:n]
}

// ShapeID identifies this object's layout (keys and their order). Objects
// with the same property insertion history share a shape id; the JIT keys
// inline caches on it.
func (o *Object) ShapeID() uint64 {
	h := fnv.New64a()
	for _, k := range o.propKeys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// PropertyOffset returns the insertion-order slot of an own property.
func (o *Object) PropertyOffset(key string) (int, bool) {
	for i, k := range o.propKeys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

// Inspect returns a debug representation.
func (o *Object) Inspect() string {
	switch o.Kind {
	case KindArray:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range o.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.Inspect())
		}
		b.WriteByte(']')
		return b.String()
	case KindFunction:
		name := "<anonymous>"
		if o.Function != nil && o.Function.Name != "" {
			name = o.Function.Name
		}
		return fmt.Sprintf("<fn %s>", name)
	case KindNativeFunction:
		return fmt.Sprintf("<native fn %s>", o.Native.Name)
	case KindClass:
		return fmt.Sprintf("<class %s>", o.Class.Name)
	default:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range o.propKeys {
			if strings.HasPrefix(k, symbolKeyPrefix) {
				continue
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(o.props[k].Inspect())
		}
		b.WriteByte('}')
		return b.String()
	}
}

// arrayIndex parses a canonical non-negative integer key.
func arrayIndex(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 0 || strconv.Itoa(n) != key {
		return 0, false
	}
	return n, true
}
