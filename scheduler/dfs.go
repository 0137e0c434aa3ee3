package scheduler

import (
	"cmp"
	"strings"

	"github.com/gomlx/gohlo/buffers"
	"github.com/gomlx/gohlo/hlo"
	"github.com/pkg/errors"
)

// runDFSScheduler produces a total order over the computation's
// instructions by DFS postorder, choosing at every branch the operand
// subtree with more fan-out and more bytes to visit first, so its results
// can be consumed and freed sooner.
//
// The heuristic is based on "extra users": users-1 per instruction, so
// instructions with no user or a single user don't count, while high
// fan-out instructions pull their subtree earlier. Both statistics
// accumulate over unique operands.
func runDFSScheduler(computation *hlo.Computation, analysis *buffers.Analysis,
	sizeFn buffers.SizeFunction) ([]*hlo.Instruction, error) {
	extraUsers := make(map[*hlo.Instruction]int64, computation.NumInstructions())
	totalSizes := make(map[*hlo.Instruction]int64, computation.NumInstructions())
	for _, inst := range computation.PostOrder() {
		if inst.UserCount() > 0 {
			extraUsers[inst] = int64(inst.UserCount()) - 1
		}
		defined, err := analysis.BuffersDefinedBy(inst)
		if err != nil {
			return nil, err
		}
		for _, buffer := range defined {
			totalSizes[inst] += sizeFn(buffer)
		}
		seen := make(map[*hlo.Instruction]struct{}, inst.OperandCount())
		for _, operand := range inst.Operands() {
			if _, found := seen[operand]; found {
				continue
			}
			seen[operand] = struct{}{}
			extraUsers[inst] += extraUsers[operand]
			totalSizes[inst] += totalSizes[operand]
		}
	}

	// Postorder with operands visited in decreasing cumulative extra-user
	// order, next by cumulative size, with a name tiebreaker for
	// determinism.
	sequence := computation.PostOrderWithOperandOrder(func(a, b *hlo.Instruction) int {
		if c := cmp.Compare(extraUsers[b], extraUsers[a]); c != 0 {
			return c
		}
		if c := cmp.Compare(totalSizes[b], totalSizes[a]); c != 0 {
			return c
		}
		return strings.Compare(a.Name(), b.Name())
	})
	if len(sequence) != computation.NumInstructions() {
		return nil, errors.Errorf("scheduler: DFS sequence for computation %q has %d instructions, computation has %d",
			computation.Name(), len(sequence), computation.NumInstructions())
	}
	return sequence, nil
}
