package hlo

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/pkg/errors"
)

// Instruction is one operation inside a Computation.
//
// Instructions are created through the Computation constructors (NewOp,
// NewCall, NewWhile, ...), which wire the operand and user edges. They are
// identified by pointer; names are for diagnostics and deterministic
// tie-breaking only, and should be unique within their computation.
type Instruction struct {
	name   string
	opcode opcodes.Opcode
	shape  Shape
	parent *Computation

	operands []*Instruction
	users    []*Instruction
	userSet  map[*Instruction]struct{}

	controlPredecessors []*Instruction
	controlSuccessors   []*Instruction

	// Computations invoked by this instruction. The meaning of each slot
	// depends on the opcode: ToApply for Call/Map/Reduce/ReduceWindow,
	// {select, scatter} for SelectAndScatter, {condition, body} for While.
	calledComputations []*Computation

	// Nested instructions, for Fusion instructions only. They are not part
	// of the parent computation's instruction list.
	fused []*Instruction

	// Element extracted by a GetTupleElement instruction.
	tupleIndex int
}

// Name of the instruction, unique within its computation.
func (i *Instruction) Name() string { return i.name }

// Opcode performed by this instruction.
func (i *Instruction) Opcode() opcodes.Opcode { return i.opcode }

// Shape of the value produced by this instruction.
func (i *Instruction) Shape() Shape { return i.shape }

// Parent returns the computation this instruction belongs to. For nested
// (fused) instructions it is the computation enclosing the Fusion
// instruction.
func (i *Instruction) Parent() *Computation { return i.parent }

// Operands of the instruction, in order.
func (i *Instruction) Operands() []*Instruction { return i.operands }

// OperandCount is a shortcut to len(Operands()).
func (i *Instruction) OperandCount() int { return len(i.operands) }

// Users returns the instructions that consume this instruction as an
// operand, deduplicated, in first-use order.
func (i *Instruction) Users() []*Instruction { return i.users }

// UserCount is a shortcut to len(Users()).
func (i *Instruction) UserCount() int { return len(i.users) }

// ControlPredecessors returns the instructions that must execute before this
// one due to control (non-data) dependencies.
func (i *Instruction) ControlPredecessors() []*Instruction { return i.controlPredecessors }

// ControlSuccessors returns the instructions that must execute after this
// one due to control (non-data) dependencies.
func (i *Instruction) ControlSuccessors() []*Instruction { return i.controlSuccessors }

// CalledComputations returns the computations this instruction invokes, if
// any. See ToApply, SelectComputation, ScatterComputation, WhileCondition
// and WhileBody for the per-opcode accessors.
func (i *Instruction) CalledComputations() []*Computation { return i.calledComputations }

// FusedInstructions returns the nested instructions of a Fusion instruction,
// nil for every other opcode.
func (i *Instruction) FusedInstructions() []*Instruction { return i.fused }

// TupleIndex returns the element index of a GetTupleElement instruction.
func (i *Instruction) TupleIndex() int { return i.tupleIndex }

// String implements fmt.Stringer, returning the instruction name.
func (i *Instruction) String() string { return i.name }

// ToApply returns the computation applied by a Call, Map, Reduce or
// ReduceWindow instruction. It panics on any other opcode.
func (i *Instruction) ToApply() *Computation {
	switch i.opcode {
	case opcodes.Call, opcodes.Map, opcodes.Reduce, opcodes.ReduceWindow:
		return i.calledComputations[0]
	}
	exceptions.Panicf("Instruction.ToApply called on %s instruction %q", i.opcode, i.name)
	return nil
}

// SelectComputation returns the select computation of a SelectAndScatter
// instruction. It panics on any other opcode.
func (i *Instruction) SelectComputation() *Computation {
	if i.opcode != opcodes.SelectAndScatter {
		exceptions.Panicf("Instruction.SelectComputation called on %s instruction %q", i.opcode, i.name)
	}
	return i.calledComputations[0]
}

// ScatterComputation returns the scatter computation of a SelectAndScatter
// instruction. It panics on any other opcode.
func (i *Instruction) ScatterComputation() *Computation {
	if i.opcode != opcodes.SelectAndScatter {
		exceptions.Panicf("Instruction.ScatterComputation called on %s instruction %q", i.opcode, i.name)
	}
	return i.calledComputations[1]
}

// WhileCondition returns the condition computation of a While instruction.
// It panics on any other opcode.
func (i *Instruction) WhileCondition() *Computation {
	if i.opcode != opcodes.While {
		exceptions.Panicf("Instruction.WhileCondition called on %s instruction %q", i.opcode, i.name)
	}
	return i.calledComputations[0]
}

// WhileBody returns the body computation of a While instruction. It panics
// on any other opcode.
func (i *Instruction) WhileBody() *Computation {
	if i.opcode != opcodes.While {
		exceptions.Panicf("Instruction.WhileBody called on %s instruction %q", i.opcode, i.name)
	}
	return i.calledComputations[1]
}

// AddControlDependencyTo marks that i must execute before successor.
// Both instructions must belong to the same computation.
func (i *Instruction) AddControlDependencyTo(successor *Instruction) error {
	if successor == nil {
		return errors.Errorf("instruction %q: control successor is nil", i.name)
	}
	if i.parent != successor.parent {
		return errors.Errorf("control dependency from %q to %q crosses computations (%q vs %q)",
			i.name, successor.name, i.parent.Name(), successor.parent.Name())
	}
	i.controlSuccessors = append(i.controlSuccessors, successor)
	successor.controlPredecessors = append(successor.controlPredecessors, i)
	return nil
}

// AddFusedInstruction adds a nested instruction to a Fusion instruction.
// Nested instructions are not part of any computation's instruction list;
// their call sites are attributed to the computation enclosing the fusion.
// The called computations must match the opcode's arity (see
// calledComputationsArity), and a nested Fusion may itself receive further
// nested instructions.
func (i *Instruction) AddFusedInstruction(name string, opcode opcodes.Opcode, shape Shape, called ...*Computation) (*Instruction, error) {
	if i.opcode != opcodes.Fusion {
		return nil, errors.Errorf("AddFusedInstruction called on %s instruction %q, only Fusion instructions have nested instructions",
			i.opcode, i.name)
	}
	if err := checkCalledComputationsArity(opcode, called); err != nil {
		return nil, errors.Wrapf(err, "fused instruction %q", name)
	}
	fused := &Instruction{
		name:               name,
		opcode:             opcode,
		shape:              shape,
		parent:             i.parent,
		calledComputations: called,
	}
	i.fused = append(i.fused, fused)
	return fused, nil
}

// addUser records user as consuming i, deduplicated.
func (i *Instruction) addUser(user *Instruction) {
	if i.userSet == nil {
		i.userSet = make(map[*Instruction]struct{})
	}
	if _, found := i.userSet[user]; found {
		return
	}
	i.userSet[user] = struct{}{}
	i.users = append(i.users, user)
}

// calledComputationsArity returns how many computations an instruction with
// the given opcode invokes: 0 for plain data-flow opcodes.
func calledComputationsArity(opcode opcodes.Opcode) int {
	switch opcode {
	case opcodes.Call, opcodes.Map, opcodes.Reduce, opcodes.ReduceWindow:
		return 1
	case opcodes.SelectAndScatter, opcodes.While:
		return 2
	}
	return 0
}

func checkCalledComputationsArity(opcode opcodes.Opcode, called []*Computation) error {
	want := calledComputationsArity(opcode)
	if len(called) != want {
		return errors.Errorf("opcode %s requires %d called computation(s), got %d", opcode, want, len(called))
	}
	for _, c := range called {
		if c == nil {
			return errors.Errorf("opcode %s: called computation is nil", opcode)
		}
	}
	return nil
}
