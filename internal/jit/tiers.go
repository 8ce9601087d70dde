package jit

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Default tier thresholds (invocation counts).
const (
	DefaultHotThreshold = 100
	DefaultOptThreshold = 500

	// codeCacheSize bounds retained compiled forms; cold entries fall out.
	codeCacheSize = 256
)

// TierManager drives functions through Interpreter -> Baseline ->
// Optimized. Tiers only ever advance until an explicit invalidation.
type TierManager struct {
	profiler *Profiler
	compiled *lru.Cache[string, *CompiledFunction]

	hotThreshold uint64
	optThreshold uint64

	log *zap.Logger
}

// NewTierManager creates a manager with the default thresholds.
func NewTierManager(log *zap.Logger) *TierManager {
	return NewTierManagerWithThresholds(DefaultHotThreshold, DefaultOptThreshold, log)
}

// NewTierManagerWithThresholds overrides the tiering thresholds.
func NewTierManagerWithThresholds(hot, opt uint64, log *zap.Logger) *TierManager {
	if log == nil {
		log = zap.NewNop()
	}
	cache, _ := lru.New[string, *CompiledFunction](codeCacheSize)
	return &TierManager{
		profiler:     NewProfiler(),
		compiled:     cache,
		hotThreshold: hot,
		optThreshold: opt,
		log:          log,
	}
}

// Profiler exposes the underlying profile registry.
func (m *TierManager) Profiler() *Profiler { return m.profiler }

// TierOf reports a function's current tier.
func (m *TierManager) TierOf(name string) Tier {
	if fn, ok := m.compiled.Get(name); ok {
		return fn.Tier
	}
	return TierInterpreter
}

// Compiled returns the compiled form, if any.
func (m *TierManager) Compiled(name string) (*CompiledFunction, bool) {
	return m.compiled.Get(name)
}

// OnInvocation records one invocation and tiers the function up when its
// profile crosses a threshold. Returns the newly compiled form when a tier
// transition happened.
func (m *TierManager) OnInvocation(name string, args []JSType, ret JSType) *CompiledFunction {
	profile := m.profiler.Profile(name)
	profile.RecordInvocation(args, ret)

	current, hasCompiled := m.compiled.Get(name)

	if !hasCompiled && profile.InvocationCount >= m.hotThreshold {
		fn := m.compileBaseline(profile)
		m.compiled.Add(name, fn)
		m.log.Debug("tiered up",
			zap.String("function", name),
			zap.String("tier", fn.Tier.String()),
			zap.Uint64("invocations", profile.InvocationCount))
		return fn
	}

	if hasCompiled && current.Tier == TierBaseline && profile.InvocationCount >= m.optThreshold {
		fn := m.compileOptimized(profile)
		m.compiled.Add(name, fn)
		m.log.Debug("tiered up",
			zap.String("function", name),
			zap.String("tier", fn.Tier.String()),
			zap.Uint64("invocations", profile.InvocationCount))
		return fn
	}

	return nil
}

// compileBaseline emits type guards for the latest argument observations
// followed by a Nop body placeholder; lowering the bytecode itself is the
// execution backend's integration step.
func (m *TierManager) compileBaseline(profile *Profile) *CompiledFunction {
	start := time.Now()

	var ir []Instr
	var deopts []DeoptPoint
	args := profile.LatestArgTypes()
	for i, argType := range args {
		label := len(deopts)
		ir = append(ir, Instr{Op: IRTypeGuard, A: Reg(i), Type: argType, DeoptLabel: label})
		deopts = append(deopts, DeoptPoint{
			IROffset:       len(ir) - 1,
			BytecodeOffset: 0,
			Reason:         DeoptTypeMismatch,
			LiveValues:     map[Reg]ValueLocation{Reg(i): {Kind: LocStack, Index: i}},
		})
	}
	ir = append(ir, Instr{Op: IRNop})

	return &CompiledFunction{
		Name:             profile.Name,
		Tier:             TierBaseline,
		IR:               ir,
		RegisterCount:    len(args),
		DeoptPoints:      deopts,
		CompileTime:      time.Since(start),
		EstimatedSpeedup: 1.5,
	}
}

// compileOptimized starts from a fresh baseline skeleton, adds specialized
// property loads for monomorphic sites, and runs the optimization pipeline.
func (m *TierManager) compileOptimized(profile *Profile) *CompiledFunction {
	start := time.Now()
	fn := m.compileBaseline(profile)
	fn.Tier = TierOptimized
	fn.EstimatedSpeedup = 3.0

	for _, site := range profile.Sites {
		if !site.IsMonomorphic() {
			continue
		}
		reg := Reg(fn.RegisterCount)
		fn.RegisterCount++
		fn.IR = append(fn.IR, Instr{
			Op:     IRLoadProperty,
			Dst:    reg,
			A:      0,
			Prop:   site.PropertyName,
			Offset: site.BytecodeOffset,
		})
	}

	DefaultPipeline().Run(fn)

	fn.CompileTime = time.Since(start)
	return fn
}

// RecordDeopt appends a deopt point to a compiled form.
func (m *TierManager) RecordDeopt(name string, reason DeoptReason, bytecodeOffset int) {
	fn, ok := m.compiled.Get(name)
	if !ok {
		return
	}
	fn.DeoptPoints = append(fn.DeoptPoints, DeoptPoint{
		IROffset:       len(fn.IR),
		BytecodeOffset: bytecodeOffset,
		Reason:         reason,
		LiveValues:     map[Reg]ValueLocation{},
	})
	m.log.Debug("deopt recorded",
		zap.String("function", name),
		zap.String("reason", reason.String()),
		zap.Int("bytecode_offset", bytecodeOffset))
}

// Invalidate drops the compiled form, returning the function to the
// interpreter tier.
func (m *TierManager) Invalidate(name string) {
	if m.compiled.Remove(name) {
		m.log.Debug("compiled form invalidated", zap.String("function", name))
	}
}
