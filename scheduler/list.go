package scheduler

import (
	"github.com/gomlx/gohlo/buffers"
	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/pkg/errors"
)

// priority of scheduling an instruction next: first the number of bytes the
// instruction would free, then its user count, compared lexicographically,
// larger is better.
type priority struct {
	bytesFreed int64
	users      int64
}

func (p priority) greaterThan(other priority) bool {
	if p.bytesFreed != other.bytesFreed {
		return p.bytesFreed > other.bytesFreed
	}
	return p.users > other.users
}

// listScheduler greedily emits, among the ready instructions, the one that
// frees the most bytes. See runListScheduler.
type listScheduler struct {
	computation *hlo.Computation
	analysis    *buffers.Analysis
	sizeFn      buffers.SizeFunction

	// bufferUses[inst] is the set of buffers inst uses: the buffers defined
	// by its operands.
	bufferUses map[*hlo.Instruction]map[*buffers.Buffer]struct{}

	// unscheduledUseCount[b] is the number of not-yet-scheduled instructions
	// using b, plus one for buffers that live out of the computation.
	unscheduledUseCount map[*buffers.Buffer]int

	scheduled map[*hlo.Instruction]struct{}
}

// runListScheduler produces a total order over the computation's
// instructions by greedy list scheduling with priority = (bytes freed,
// user count).
func runListScheduler(computation *hlo.Computation, analysis *buffers.Analysis,
	sizeFn buffers.SizeFunction) ([]*hlo.Instruction, error) {
	s := &listScheduler{
		computation:         computation,
		analysis:            analysis,
		sizeFn:              sizeFn,
		bufferUses:          make(map[*hlo.Instruction]map[*buffers.Buffer]struct{}),
		unscheduledUseCount: make(map[*buffers.Buffer]int),
		scheduled:           make(map[*hlo.Instruction]struct{}),
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s.createSchedule()
}

func (s *listScheduler) init() error {
	// An instruction "uses" the buffers defined by its operands.
	for _, inst := range s.computation.Instructions() {
		uses := make(map[*buffers.Buffer]struct{})
		for _, operand := range inst.Operands() {
			defined, err := s.analysis.BuffersDefinedBy(operand)
			if err != nil {
				return err
			}
			for _, buffer := range defined {
				uses[buffer] = struct{}{}
			}
		}
		s.bufferUses[inst] = uses
	}

	for _, inst := range s.computation.Instructions() {
		defined, err := s.analysis.BuffersDefinedBy(inst)
		if err != nil {
			return err
		}
		for _, buffer := range defined {
			s.unscheduledUseCount[buffer] = 0
		}
	}
	for _, inst := range s.computation.Instructions() {
		for buffer := range s.bufferUses[inst] {
			s.unscheduledUseCount[buffer]++
		}
	}

	// Buffers live out of the computation have an implicit use at the end:
	// the caller still holds them.
	if root := s.computation.Root(); root != nil {
		liveOut, err := s.analysis.PointsTo(root)
		if err != nil {
			return err
		}
		for _, buffer := range liveOut {
			s.unscheduledUseCount[buffer]++
		}
	}
	return nil
}

// ignoreBuffer reports whether the buffer is excluded from the memory
// accounting: parameters and constants are not freeable or allocatable by
// this heuristic.
func ignoreBuffer(buffer *buffers.Buffer) bool {
	opcode := buffer.Instruction().Opcode()
	return opcode == opcodes.Parameter || opcode == opcodes.Constant
}

// bytesFreedIfScheduled returns the number of bytes freed by scheduling the
// instruction now: the total size of the buffers it is the last remaining
// use of, minus the size of the buffers it defines.
func (s *listScheduler) bytesFreedIfScheduled(inst *hlo.Instruction) (int64, error) {
	var freedBytes int64
	for buffer := range s.bufferUses[inst] {
		if ignoreBuffer(buffer) {
			continue
		}
		count := s.unscheduledUseCount[buffer]
		if count < 1 {
			return 0, errors.Errorf("scheduler: buffer %s has %d unscheduled uses while still used by %q",
				buffer, count, inst.Name())
		}
		if count == 1 {
			// This is the last use of the buffer.
			freedBytes += s.sizeFn(buffer)
		}
	}
	defined, err := s.analysis.BuffersDefinedBy(inst)
	if err != nil {
		return 0, err
	}
	for _, buffer := range defined {
		if !ignoreBuffer(buffer) {
			freedBytes -= s.sizeFn(buffer)
		}
	}
	return freedBytes, nil
}

func (s *listScheduler) getPriority(inst *hlo.Instruction) (priority, error) {
	bytesFreed, err := s.bytesFreedIfScheduled(inst)
	if err != nil {
		return priority{}, err
	}
	return priority{bytesFreed: bytesFreed, users: int64(inst.UserCount())}, nil
}

func (s *listScheduler) isReady(inst *hlo.Instruction) bool {
	for _, operand := range inst.Operands() {
		if _, done := s.scheduled[operand]; !done {
			return false
		}
	}
	for _, predecessor := range inst.ControlPredecessors() {
		if _, done := s.scheduled[predecessor]; !done {
			return false
		}
	}
	return true
}

func (s *listScheduler) createSchedule() ([]*hlo.Instruction, error) {
	schedule := make([]*hlo.Instruction, 0, s.computation.NumInstructions())

	// The ready list starts with the instructions that have nothing to wait
	// for, in program order. Scans keep the first maximum and new entries
	// are appended in user/control-successor declaration order, so equal
	// priorities resolve by encounter order, deterministically.
	var readyList []*hlo.Instruction
	for _, inst := range s.computation.Instructions() {
		if inst.OperandCount() == 0 && len(inst.ControlPredecessors()) == 0 {
			readyList = append(readyList, inst)
		}
	}

	for len(readyList) > 0 {
		bestIndex := 0
		bestPriority, err := s.getPriority(readyList[0])
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(readyList); i++ {
			p, err := s.getPriority(readyList[i])
			if err != nil {
				return nil, err
			}
			if p.greaterThan(bestPriority) {
				bestIndex = i
				bestPriority = p
			}
		}

		best := readyList[bestIndex]
		readyList = append(readyList[:bestIndex], readyList[bestIndex+1:]...)
		schedule = append(schedule, best)
		s.scheduled[best] = struct{}{}

		for buffer := range s.bufferUses[best] {
			if s.unscheduledUseCount[buffer] <= 0 {
				return nil, errors.Errorf("scheduler: buffer %s over-freed while scheduling %q",
					buffer, best.Name())
			}
			s.unscheduledUseCount[buffer]--
		}

		// Admit every successor whose operands and control predecessors are
		// now all scheduled.
		admitted := make(map[*hlo.Instruction]struct{})
		admit := func(successor *hlo.Instruction) {
			if _, done := s.scheduled[successor]; done {
				return
			}
			if _, already := admitted[successor]; already {
				return
			}
			if !s.isReady(successor) {
				return
			}
			admitted[successor] = struct{}{}
			readyList = append(readyList, successor)
		}
		for _, user := range best.Users() {
			admit(user)
		}
		for _, successor := range best.ControlSuccessors() {
			admit(successor)
		}
	}

	if len(schedule) != s.computation.NumInstructions() {
		return nil, errors.Errorf("scheduler: schedule for computation %q has %d instructions, computation has %d -- dependency graph is inconsistent",
			s.computation.Name(), len(schedule), s.computation.NumInstructions())
	}
	return schedule, nil
}
