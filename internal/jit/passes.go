package jit

// PassStats reports what a pass changed.
type PassStats struct {
	InstructionsModified int
	InstructionsRemoved  int
	InstructionsAdded    int
}

// Pass is one optimization over a compiled function's IR.
type Pass interface {
	Name() string
	Run(fn *CompiledFunction) PassStats
}

// Pipeline runs passes in order.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds a pipeline from the given passes.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

// DefaultPipeline is the standard ordering: specialize types first so
// strength reduction sees integer ops, then hoist loop invariants.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		TypeSpecialization{},
		StrengthReduction{},
		LoopInvariantCodeMotion{},
	)
}

// Run applies every pass, returning per-pass stats keyed by pass name.
func (p *Pipeline) Run(fn *CompiledFunction) map[string]PassStats {
	stats := make(map[string]PassStats, len(p.passes))
	for _, pass := range p.passes {
		stats[pass.Name()] = pass.Run(fn)
	}
	return stats
}

// ---------------------------------------------------------------------------
// Type specialization
// ---------------------------------------------------------------------------

// TypeSpecialization rewrites float arithmetic over Int32-guarded registers
// into integer arithmetic.
type TypeSpecialization struct{}

func (TypeSpecialization) Name() string { return "type_specialization" }

func (TypeSpecialization) Run(fn *CompiledFunction) PassStats {
	var stats PassStats

	intRegs := make(map[Reg]bool)
	for i := range fn.IR {
		instr := &fn.IR[i]

		if instr.Op == IRTypeGuard && instr.Type == TypeInt32 {
			intRegs[instr.A] = true
			continue
		}

		var specialized IROp
		switch instr.Op {
		case IRFloatAdd:
			specialized = IRIntAdd
		case IRFloatSub:
			specialized = IRIntSub
		case IRFloatMul:
			specialized = IRIntMul
		default:
			continue
		}

		if intRegs[instr.A] || intRegs[instr.B] {
			instr.Op = specialized
			stats.InstructionsModified++
		}
	}
	return stats
}

// ---------------------------------------------------------------------------
// Strength reduction
// ---------------------------------------------------------------------------

// StrengthReduction folds arithmetic identities against known LoadImm
// constants: x+0 and 0+x become Nop, x*0 becomes LoadImm 0.
type StrengthReduction struct{}

func (StrengthReduction) Name() string { return "strength_reduction" }

func (StrengthReduction) Run(fn *CompiledFunction) PassStats {
	var stats PassStats

	constants := make(map[Reg]int64)
	for i := range fn.IR {
		instr := &fn.IR[i]

		switch instr.Op {
		case IRLoadImm:
			constants[instr.Dst] = instr.Imm

		case IRIntAdd:
			a, aOK := constants[instr.A]
			b, bOK := constants[instr.B]
			if (aOK && a == 0) || (bOK && b == 0) {
				*instr = Instr{Op: IRNop}
				stats.InstructionsRemoved++
			}

		case IRIntMul:
			a, aOK := constants[instr.A]
			b, bOK := constants[instr.B]
			if (aOK && a == 0) || (bOK && b == 0) {
				dst := instr.Dst
				*instr = Instr{Op: IRLoadImm, Dst: dst, Imm: 0}
				constants[dst] = 0
				stats.InstructionsModified++
			}
		}
	}
	return stats
}

// ---------------------------------------------------------------------------
// Loop-invariant code motion
// ---------------------------------------------------------------------------

// LoopInvariantCodeMotion finds back-edges (a Branch whose target precedes
// it) and replaces pure constant loads inside the loop region with Nop,
// denoting hoisting out of the loop.
type LoopInvariantCodeMotion struct{}

func (LoopInvariantCodeMotion) Name() string { return "loop_invariant_code_motion" }

func (LoopInvariantCodeMotion) Run(fn *CompiledFunction) PassStats {
	var stats PassStats

	for i := range fn.IR {
		if fn.IR[i].Op != IRBranch || fn.IR[i].Target >= i {
			continue
		}
		// Loop region is [target, i).
		for j := fn.IR[i].Target; j < i; j++ {
			switch fn.IR[j].Op {
			case IRLoadImm, IRLoadFloat:
				fn.IR[j] = Instr{Op: IRNop}
				stats.InstructionsRemoved++
			}
		}
	}
	return stats
}
