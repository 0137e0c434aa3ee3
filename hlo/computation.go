package hlo

import (
	"slices"

	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/pkg/errors"
)

// Computation is a named unit of instructions with one root instruction,
// analogous to a function body. Computations are created with
// Module.NewComputation and identified by pointer.
type Computation struct {
	name   string
	module *Module

	instructions []*Instruction
	root         *Instruction
}

// Name of the computation, unique within its module.
func (c *Computation) Name() string { return c.name }

// Module this computation belongs to.
func (c *Computation) Module() *Module { return c.module }

// Instructions returns the computation's instructions in creation order.
// Nested (fused) instructions are not included.
func (c *Computation) Instructions() []*Instruction { return c.instructions }

// NumInstructions is a shortcut to len(Instructions()).
func (c *Computation) NumInstructions() int { return len(c.instructions) }

// Root returns the root instruction, the computation's result. It defaults
// to the last instruction added and can be overridden with SetRoot. Nil for
// an empty computation.
func (c *Computation) Root() *Instruction { return c.root }

// SetRoot overrides the root instruction. The instruction must belong to
// this computation.
func (c *Computation) SetRoot(root *Instruction) error {
	if root == nil || root.parent != c {
		return errors.Errorf("SetRoot: instruction does not belong to computation %q", c.name)
	}
	c.root = root
	return nil
}

// String implements fmt.Stringer, returning the computation name.
func (c *Computation) String() string { return c.name }

// NewParameter adds a Parameter instruction.
func (c *Computation) NewParameter(name string, shape Shape) *Instruction {
	inst, _ := c.newInstruction(name, opcodes.Parameter, shape, nil, nil)
	return inst
}

// NewConstant adds a Constant instruction.
func (c *Computation) NewConstant(name string, shape Shape) *Instruction {
	inst, _ := c.newInstruction(name, opcodes.Constant, shape, nil, nil)
	return inst
}

// NewOp adds an instruction with a plain data-flow opcode. It returns an
// error for call-bearing opcodes, which have dedicated constructors.
func (c *Computation) NewOp(name string, opcode opcodes.Opcode, shape Shape, operands ...*Instruction) (*Instruction, error) {
	if opcode.IsCallOp() {
		return nil, errors.Errorf("NewOp(%q): opcode %s invokes computations, use its dedicated constructor", name, opcode)
	}
	return c.newInstruction(name, opcode, shape, operands, nil)
}

// NewTuple adds a Tuple instruction packing the given elements. Its shape is
// derived from the element shapes.
func (c *Computation) NewTuple(name string, elements ...*Instruction) (*Instruction, error) {
	elementShapes := make([]Shape, len(elements))
	for ii, element := range elements {
		if element == nil {
			return nil, errors.Errorf("NewTuple(%q): element #%d is nil", name, ii)
		}
		elementShapes[ii] = element.Shape()
	}
	return c.newInstruction(name, opcodes.Tuple, MakeTupleShape(elementShapes...), elements, nil)
}

// NewGetTupleElement adds a GetTupleElement instruction extracting element
// index from a tuple-shaped operand. Its shape is the element's shape.
func (c *Computation) NewGetTupleElement(name string, tuple *Instruction, index int) (*Instruction, error) {
	if tuple == nil {
		return nil, errors.Errorf("NewGetTupleElement(%q): tuple operand is nil", name)
	}
	tupleShape := tuple.Shape()
	if !tupleShape.IsTuple() || index < 0 || index >= tupleShape.TupleSize() {
		return nil, errors.Errorf("NewGetTupleElement(%q): index %d out of range for operand shape %s",
			name, index, tupleShape)
	}
	inst, err := c.newInstruction(name, opcodes.GetTupleElement, tupleShape.TupleShapes[index], []*Instruction{tuple}, nil)
	if err != nil {
		return nil, err
	}
	inst.tupleIndex = index
	return inst, nil
}

// NewCall adds a Call instruction invoking toApply sequentially.
func (c *Computation) NewCall(name string, shape Shape, toApply *Computation, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.Call, shape, operands, []*Computation{toApply})
}

// NewMap adds a Map instruction applying mapFn element-wise over the operands.
func (c *Computation) NewMap(name string, shape Shape, mapFn *Computation, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.Map, shape, operands, []*Computation{mapFn})
}

// NewReduce adds a Reduce instruction combining elements with reduceFn.
func (c *Computation) NewReduce(name string, shape Shape, reduceFn *Computation, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.Reduce, shape, operands, []*Computation{reduceFn})
}

// NewReduceWindow adds a ReduceWindow instruction combining elements within
// sliding windows with reduceFn.
func (c *Computation) NewReduceWindow(name string, shape Shape, reduceFn *Computation, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.ReduceWindow, shape, operands, []*Computation{reduceFn})
}

// NewSelectAndScatter adds a SelectAndScatter instruction with its select
// and scatter computations.
func (c *Computation) NewSelectAndScatter(name string, shape Shape, selectFn, scatterFn *Computation, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.SelectAndScatter, shape, operands, []*Computation{selectFn, scatterFn})
}

// NewWhile adds a While instruction looping body while condition holds.
func (c *Computation) NewWhile(name string, shape Shape, condition, body *Computation, init *Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.While, shape, []*Instruction{init}, []*Computation{condition, body})
}

// NewFusion adds a Fusion instruction. Nested instructions are added
// afterwards with Instruction.AddFusedInstruction.
func (c *Computation) NewFusion(name string, shape Shape, operands ...*Instruction) (*Instruction, error) {
	return c.newInstruction(name, opcodes.Fusion, shape, operands, nil)
}

// newInstruction creates the instruction, wires operand/user edges, appends
// it to the computation and makes it the current root.
func (c *Computation) newInstruction(name string, opcode opcodes.Opcode, shape Shape, operands []*Instruction, called []*Computation) (*Instruction, error) {
	if opcode != opcodes.Fusion {
		// Fusion carries its callees in nested instructions, not directly.
		if err := checkCalledComputationsArity(opcode, called); err != nil {
			return nil, errors.Wrapf(err, "instruction %q in computation %q", name, c.name)
		}
	}
	for ii, operand := range operands {
		if operand == nil {
			return nil, errors.Errorf("instruction %q in computation %q: operand #%d is nil", name, c.name, ii)
		}
		if operand.parent != c {
			return nil, errors.Errorf("instruction %q in computation %q: operand %q belongs to computation %q",
				name, c.name, operand.name, operand.parent.Name())
		}
	}
	for _, callee := range called {
		if callee.module != c.module {
			return nil, errors.Errorf("instruction %q in computation %q: called computation %q belongs to a different module",
				name, c.name, callee.name)
		}
	}
	inst := &Instruction{
		name:               name,
		opcode:             opcode,
		shape:              shape,
		parent:             c,
		operands:           operands,
		calledComputations: called,
	}
	for _, operand := range operands {
		operand.addUser(inst)
	}
	c.instructions = append(c.instructions, inst)
	c.root = inst
	return inst, nil
}

// PostOrder returns the computation's instructions in dependency postorder:
// every instruction appears after its operands and control predecessors, and
// every instruction appears exactly once, including instructions not
// reachable from the root.
func (c *Computation) PostOrder() []*Instruction {
	return c.postOrder(nil)
}

// PostOrderWithOperandOrder is like PostOrder, but at every instruction the
// unique operands are visited sorted by the compare function (standard
// cmp-style: negative means a is visited first).
func (c *Computation) PostOrderWithOperandOrder(compare func(a, b *Instruction) int) []*Instruction {
	return c.postOrder(compare)
}

func (c *Computation) postOrder(compare func(a, b *Instruction) int) []*Instruction {
	order := make([]*Instruction, 0, len(c.instructions))
	visited := make(map[*Instruction]struct{}, len(c.instructions))
	if c.root != nil {
		postOrderVisit(c.root, compare, visited, &order)
	}
	// Instructions not reachable from the root (dead code, alternative
	// outputs) still belong to the order.
	for _, inst := range c.instructions {
		postOrderVisit(inst, compare, visited, &order)
	}
	return order
}

func postOrderVisit(inst *Instruction, compare func(a, b *Instruction) int, visited map[*Instruction]struct{}, order *[]*Instruction) {
	if _, found := visited[inst]; found {
		return
	}
	visited[inst] = struct{}{}
	operands := uniqueOperands(inst)
	if compare != nil {
		slices.SortStableFunc(operands, compare)
	}
	for _, operand := range operands {
		postOrderVisit(operand, compare, visited, order)
	}
	for _, predecessor := range inst.controlPredecessors {
		postOrderVisit(predecessor, compare, visited, order)
	}
	*order = append(*order, inst)
}

// uniqueOperands returns the instruction's operands deduplicated, in first
// occurrence order.
func uniqueOperands(inst *Instruction) []*Instruction {
	operands := make([]*Instruction, 0, len(inst.operands))
	seen := make(map[*Instruction]struct{}, len(inst.operands))
	for _, operand := range inst.operands {
		if _, found := seen[operand]; found {
			continue
		}
		seen[operand] = struct{}{}
		operands = append(operands, operand)
	}
	return operands
}
