// Package jit implements the tiered compilation framework: runtime type
// profiles, polymorphic inline caches, a lowered NativeIR with optimization
// passes, and deoptimization metadata. It produces no machine code; the IR
// is the contract an execution backend lowers further.
package jit

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/josedab/quicksilver/internal/vm"
)

// JSType is the profiled type lattice. Int32 is a profiling refinement of
// Number: the runtime has no separate integer type, but integer-valued
// observations unlock integer specialization.
type JSType int

const (
	TypeInt32 JSType = iota
	TypeFloat64
	TypeString
	TypeBoolean
	TypeObject
	TypeArray
	TypeFunction
	TypeUndefined
)

func (t JSType) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeFunction:
		return "function"
	case TypeUndefined:
		return "undefined"
	}
	return "unknown"
}

// ObserveValue classifies a runtime value for profiling.
func ObserveValue(v vm.Value) JSType {
	switch v.Type {
	case vm.ValNumber:
		n := v.AsNumber()
		if n == math.Trunc(n) && !math.IsInf(n, 0) && n >= math.MinInt32 && n <= math.MaxInt32 {
			return TypeInt32
		}
		return TypeFloat64
	case vm.ValString:
		return TypeString
	case vm.ValBoolean:
		return TypeBoolean
	case vm.ValObject:
		if v.Obj != nil {
			switch v.Obj.Kind {
			case vm.KindArray:
				return TypeArray
			case vm.KindFunction, vm.KindNativeFunction, vm.KindClass:
				return TypeFunction
			}
		}
		return TypeObject
	default:
		return TypeUndefined
	}
}

// HotLoopThreshold flips a loop profile to hot.
const HotLoopThreshold = 1000

// LoopProfile tracks one loop header.
type LoopProfile struct {
	HeaderOffset   int
	IterationCount uint64
	IsHot          bool
}

// RecordIteration bumps the counter, flipping IsHot at the threshold.
func (p *LoopProfile) RecordIteration() {
	p.IterationCount++
	if p.IterationCount >= HotLoopThreshold {
		p.IsHot = true
	}
}

// PropertyAccessProfile tracks one property-access site.
type PropertyAccessProfile struct {
	BytecodeOffset int
	PropertyName   string
	ObservedShapes mapset.Set[uint64]
	AccessCount    uint64
}

// RecordShape observes a receiver shape at the site.
func (p *PropertyAccessProfile) RecordShape(shapeID uint64) {
	p.ObservedShapes.Add(shapeID)
	p.AccessCount++
}

// IsMonomorphic reports a single observed shape.
func (p *PropertyAccessProfile) IsMonomorphic() bool {
	return p.ObservedShapes.Cardinality() == 1
}

// Profile aggregates runtime observations for one function.
type Profile struct {
	Name            string
	InvocationCount uint64
	TotalOps        uint64

	// Most recent observations drive specialization.
	ArgTypes    [][]JSType
	ReturnTypes []JSType

	Loops map[int]*LoopProfile
	Sites map[int]*PropertyAccessProfile
}

// NewProfile creates an empty profile.
func NewProfile(name string) *Profile {
	return &Profile{
		Name:  name,
		Loops: make(map[int]*LoopProfile),
		Sites: make(map[int]*PropertyAccessProfile),
	}
}

// maxObservations bounds the per-function observation history.
const maxObservations = 16

// RecordInvocation observes one call's argument and return types.
func (p *Profile) RecordInvocation(args []JSType, ret JSType) {
	p.InvocationCount++
	p.ArgTypes = append(p.ArgTypes, args)
	if len(p.ArgTypes) > maxObservations {
		p.ArgTypes = p.ArgTypes[len(p.ArgTypes)-maxObservations:]
	}
	p.ReturnTypes = append(p.ReturnTypes, ret)
	if len(p.ReturnTypes) > maxObservations {
		p.ReturnTypes = p.ReturnTypes[len(p.ReturnTypes)-maxObservations:]
	}
}

// LatestArgTypes is the most recent argument observation.
func (p *Profile) LatestArgTypes() []JSType {
	if len(p.ArgTypes) == 0 {
		return nil
	}
	return p.ArgTypes[len(p.ArgTypes)-1]
}

// RecordLoopIteration bumps the loop profile at a header offset.
func (p *Profile) RecordLoopIteration(headerOffset int) {
	loop, ok := p.Loops[headerOffset]
	if !ok {
		loop = &LoopProfile{HeaderOffset: headerOffset}
		p.Loops[headerOffset] = loop
	}
	loop.RecordIteration()
}

// RecordPropertyAccess observes a shape at a bytecode site.
func (p *Profile) RecordPropertyAccess(offset int, property string, shapeID uint64) {
	site, ok := p.Sites[offset]
	if !ok {
		site = &PropertyAccessProfile{
			BytecodeOffset: offset,
			PropertyName:   property,
			ObservedShapes: mapset.NewThreadUnsafeSet[uint64](),
		}
		p.Sites[offset] = site
	}
	site.RecordShape(shapeID)
}

// Profiler keys profiles by function name.
type Profiler struct {
	profiles map[string]*Profile
}

// NewProfiler creates an empty registry.
func NewProfiler() *Profiler {
	return &Profiler{profiles: make(map[string]*Profile)}
}

// Profile returns (creating if needed) the profile for a function.
func (p *Profiler) Profile(name string) *Profile {
	profile, ok := p.profiles[name]
	if !ok {
		profile = NewProfile(name)
		p.profiles[name] = profile
	}
	return profile
}

// Lookup returns the profile without creating one.
func (p *Profiler) Lookup(name string) (*Profile, bool) {
	profile, ok := p.profiles[name]
	return profile, ok
}
