// Package buffers assigns logical buffers -- abstract units of storage -- to
// the instructions of a module, and answers which buffers an instruction
// defines and which buffers its value may point to.
//
// The aliasing model is deliberately simple: every instruction defines
// exactly one buffer, except Tuple instructions (whose value additionally
// points to the buffers of their elements) and GetTupleElement instructions
// (which define no buffer and point to the buffers of their tuple operand).
// This is the contract the scheduler (github.com/gomlx/gohlo/scheduler) and
// the heap simulator (github.com/gomlx/gohlo/heapsim) consume.
package buffers

import (
	"fmt"

	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/pkg/errors"
)

// Buffer is one abstract unit of storage, defined by exactly one
// instruction. Buffers are identified by pointer; Id is stable within one
// Analysis and used only for diagnostics and deterministic iteration.
type Buffer struct {
	instruction *hlo.Instruction
	id          int
}

// Instruction that defines this buffer.
func (b *Buffer) Instruction() *hlo.Instruction { return b.instruction }

// Id of the buffer within its Analysis.
func (b *Buffer) Id() int { return b.id }

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("%s{%d}", b.instruction.Name(), b.id)
}

// SizeFunction reports the size in bytes of a buffer. Schedulers and the
// heap simulator are parameterized by it, so backends can account for
// padding or layout without this package knowing.
type SizeFunction func(*Buffer) int64

// SizeOfShape is the default SizeFunction: the byte size of the defining
// instruction's shape.
func SizeOfShape(b *Buffer) int64 {
	return int64(b.Instruction().Shape().Memory())
}

// Analysis holds the buffer assignment for one module snapshot. Build it
// with Run; it is read-only afterwards and stale if the module's
// instruction graphs are mutated.
type Analysis struct {
	module    *hlo.Module
	buffers   []*Buffer
	definedBy map[*hlo.Instruction][]*Buffer
	pointsTo  map[*hlo.Instruction][]*Buffer
}

// Run builds the buffer analysis for every computation of the module.
func Run(module *hlo.Module) (*Analysis, error) {
	a := &Analysis{
		module:    module,
		definedBy: make(map[*hlo.Instruction][]*Buffer),
		pointsTo:  make(map[*hlo.Instruction][]*Buffer),
	}
	for _, computation := range module.Computations() {
		// Postorder so operands are analyzed before instructions whose
		// points-to set derives from theirs.
		for _, inst := range computation.PostOrder() {
			if err := a.analyze(inst); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *Analysis) analyze(inst *hlo.Instruction) error {
	switch inst.Opcode() {
	case opcodes.GetTupleElement:
		// A tuple element is a view into the operand's storage: nothing new
		// is defined.
		a.definedBy[inst] = nil
		operandPointsTo, err := a.PointsTo(inst.Operands()[0])
		if err != nil {
			return err
		}
		a.pointsTo[inst] = operandPointsTo
	case opcodes.Tuple:
		// The tuple defines its own pointer table and points to everything
		// its elements point to.
		buffer := a.newBuffer(inst)
		a.definedBy[inst] = []*Buffer{buffer}
		pointsTo := []*Buffer{buffer}
		seen := map[*Buffer]struct{}{buffer: {}}
		for _, operand := range inst.Operands() {
			operandPointsTo, err := a.PointsTo(operand)
			if err != nil {
				return err
			}
			for _, b := range operandPointsTo {
				if _, found := seen[b]; found {
					continue
				}
				seen[b] = struct{}{}
				pointsTo = append(pointsTo, b)
			}
		}
		a.pointsTo[inst] = pointsTo
	default:
		buffer := a.newBuffer(inst)
		a.definedBy[inst] = []*Buffer{buffer}
		a.pointsTo[inst] = []*Buffer{buffer}
	}
	return nil
}

func (a *Analysis) newBuffer(inst *hlo.Instruction) *Buffer {
	buffer := &Buffer{instruction: inst, id: len(a.buffers)}
	a.buffers = append(a.buffers, buffer)
	return buffer
}

// Module the analysis was built for.
func (a *Analysis) Module() *hlo.Module { return a.module }

// Buffers returns every buffer of the module, in assignment order.
func (a *Analysis) Buffers() []*Buffer { return a.buffers }

// BuffersDefinedBy returns the buffers the instruction defines (allocates),
// in a fixed order. It fails if the instruction is unknown to the analysis,
// which indicates a stale or mismatched module view.
func (a *Analysis) BuffersDefinedBy(inst *hlo.Instruction) ([]*Buffer, error) {
	defined, found := a.definedBy[inst]
	if !found {
		return nil, errors.Errorf("buffers.Analysis: instruction %q (computation %q) is not part of the analyzed module %q",
			inst.Name(), inst.Parent().Name(), a.module.Name())
	}
	return defined, nil
}

// PointsTo returns the flattened set of buffers the instruction's value may
// reference, in a fixed order. It fails if the instruction is unknown to the
// analysis.
func (a *Analysis) PointsTo(inst *hlo.Instruction) ([]*Buffer, error) {
	pointsTo, found := a.pointsTo[inst]
	if !found {
		return nil, errors.Errorf("buffers.Analysis: instruction %q (computation %q) is not part of the analyzed module %q",
			inst.Name(), inst.Parent().Name(), a.module.Name())
	}
	return pointsTo, nil
}
