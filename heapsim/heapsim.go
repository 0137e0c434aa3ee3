// Package heapsim replays an instruction sequence against a simulated heap
// to report the peak memory the sequence would need, with buffer lifetimes
// taken from a buffers.Analysis.
//
// Allocation policies are pluggable through the Algorithm interface; the
// only policy shipped here is NoFragmentationStats, which tracks live-byte
// totals and reports the maximum -- the absolute lower bound any real
// allocator could reach for the sequence.
package heapsim

import (
	"github.com/gomlx/gohlo/buffers"
	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/pkg/errors"
)

// Result of a simulation.
type Result struct {
	// HeapSize is the peak number of bytes simultaneously live.
	HeapSize int64
}

// Algorithm is an allocation policy driven by the simulator: Alloc when a
// buffer is defined, Free after its last use, Finish when the sequence ends.
type Algorithm interface {
	Alloc(buffer *buffers.Buffer, size int64)
	Free(buffer *buffers.Buffer, size int64)
	Finish() Result
}

// NoFragmentationStats is an Algorithm that only tracks the live-byte total
// and its maximum, ignoring fragmentation entirely.
type NoFragmentationStats struct {
	current, max int64
}

// NewNoFragmentationStats returns a fresh NoFragmentationStats.
func NewNoFragmentationStats() *NoFragmentationStats {
	return &NoFragmentationStats{}
}

// Alloc implements Algorithm.
func (h *NoFragmentationStats) Alloc(_ *buffers.Buffer, size int64) {
	h.current += size
	if h.current > h.max {
		h.max = h.current
	}
}

// Free implements Algorithm.
func (h *NoFragmentationStats) Free(_ *buffers.Buffer, size int64) {
	h.current -= size
}

// Finish implements Algorithm.
func (h *NoFragmentationStats) Finish() Result {
	return Result{HeapSize: h.max}
}

// Run replays sequence -- a total order over computation's instructions --
// against the given allocation policy.
//
// Per instruction it allocates the buffers the instruction defines, then
// frees every buffer whose last remaining use the instruction is. Buffers in
// the root's flattened points-to set live out of the computation and are
// freed only when the sequence ends. Buffers defined by Parameter or
// Constant instructions are excluded from the accounting, consistent with
// the scheduler's heuristic. Errors from the analysis propagate unchanged.
func Run(algorithm Algorithm, sequence []*hlo.Instruction, computation *hlo.Computation,
	analysis *buffers.Analysis, sizeFn buffers.SizeFunction) (Result, error) {
	position := make(map[*hlo.Instruction]int, len(sequence))
	for i, inst := range sequence {
		position[inst] = i
	}
	if len(position) != len(sequence) {
		return Result{}, errors.Errorf("heapsim.Run: sequence for computation %q contains duplicated instructions",
			computation.Name())
	}

	// A buffer's last use is the latest sequence position of an instruction
	// using it as an operand buffer; a buffer never used dies right after
	// its defining instruction.
	lastUse := make(map[*buffers.Buffer]int)
	uses := make(map[*hlo.Instruction][]*buffers.Buffer, len(sequence))
	for i, inst := range sequence {
		defined, err := analysis.BuffersDefinedBy(inst)
		if err != nil {
			return Result{}, err
		}
		for _, buffer := range defined {
			lastUse[buffer] = i
		}
		seen := make(map[*buffers.Buffer]struct{})
		for _, operand := range inst.Operands() {
			operandBuffers, err := analysis.BuffersDefinedBy(operand)
			if err != nil {
				return Result{}, err
			}
			for _, buffer := range operandBuffers {
				if _, found := seen[buffer]; found {
					continue
				}
				seen[buffer] = struct{}{}
				uses[inst] = append(uses[inst], buffer)
				if lastUse[buffer] < i {
					lastUse[buffer] = i
				}
			}
		}
	}

	liveOut := make(map[*buffers.Buffer]struct{})
	if root := computation.Root(); root != nil {
		rootPointsTo, err := analysis.PointsTo(root)
		if err != nil {
			return Result{}, err
		}
		for _, buffer := range rootPointsTo {
			liveOut[buffer] = struct{}{}
		}
	}

	ignore := func(buffer *buffers.Buffer) bool {
		opcode := buffer.Instruction().Opcode()
		return opcode == opcodes.Parameter || opcode == opcodes.Constant
	}

	allocated := make(map[*buffers.Buffer]struct{})
	var liveOutOrder []*buffers.Buffer
	for i, inst := range sequence {
		defined, err := analysis.BuffersDefinedBy(inst)
		if err != nil {
			return Result{}, err
		}
		for _, buffer := range defined {
			if ignore(buffer) {
				continue
			}
			allocated[buffer] = struct{}{}
			algorithm.Alloc(buffer, sizeFn(buffer))
			if _, isLiveOut := liveOut[buffer]; isLiveOut {
				liveOutOrder = append(liveOutOrder, buffer)
			}
		}
		free := func(buffer *buffers.Buffer) {
			if _, wasAllocated := allocated[buffer]; !wasAllocated {
				return
			}
			if _, isLiveOut := liveOut[buffer]; isLiveOut {
				return
			}
			if lastUse[buffer] != i {
				return
			}
			delete(allocated, buffer)
			algorithm.Free(buffer, sizeFn(buffer))
		}
		for _, buffer := range defined {
			free(buffer)
		}
		for _, buffer := range uses[inst] {
			free(buffer)
		}
	}

	// Live-out buffers survive until the caller releases them.
	for _, buffer := range liveOutOrder {
		algorithm.Free(buffer, sizeFn(buffer))
	}
	return algorithm.Finish(), nil
}
