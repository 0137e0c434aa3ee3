// Package ordering answers "does instruction a execute before instruction b
// within the same computation" under three interchangeable oracles:
//
//   - PredecessorOrdering: closure over program order -- a executes before b
//     iff a appears earlier in the computation's instruction list.
//   - DependencyOrdering: closure over data and control dependencies -- a
//     executes before b iff there is a dependency path from b back to a.
//     Useful when many valid total orders exist and any dependency-respecting
//     one suffices.
//   - SequentialOrdering: position lookup in one explicitly chosen total
//     order per computation (a ModuleSequence, e.g. produced by
//     github.com/gomlx/gohlo/scheduler).
//
// Instructions in different computations are always unordered. The oracles
// are read-only snapshots of the instruction graph: rebuild them after any
// mutation.
package ordering

import (
	"fmt"
	"strings"

	"github.com/gomlx/gohlo/hlo"
)

// ModuleSequence maps every computation of a module to a total order over
// its instructions. A well-formed sequence covers each computation's
// instruction set exactly, with no duplicates.
type ModuleSequence map[*hlo.Computation][]*hlo.Instruction

// String returns a human-readable dump of the sequence, for diagnostics
// only. Computations appear in their module's order.
func (s ModuleSequence) String() string {
	var sb strings.Builder
	for _, computation := range computationsInModuleOrder(s) {
		fmt.Fprintf(&sb, "Computation %s:\n", computation.Name())
		for _, inst := range s[computation] {
			fmt.Fprintf(&sb, "  %s\n", inst.Name())
		}
	}
	return sb.String()
}

func computationsInModuleOrder(s ModuleSequence) []*hlo.Computation {
	var ordered []*hlo.Computation
	seen := make(map[*hlo.Computation]struct{}, len(s))
	for computation := range s {
		if _, found := seen[computation]; found {
			continue
		}
		for _, c := range computation.Module().Computations() {
			if _, inSequence := s[c]; !inSequence {
				continue
			}
			if _, found := seen[c]; found {
				continue
			}
			seen[c] = struct{}{}
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// Ordering is the oracle interface shared by the three implementations.
type Ordering interface {
	// ExecutesBefore reports whether a executes before b. Distinct
	// instructions may be unordered (both directions false); a never
	// executes before itself.
	ExecutesBefore(a, b *hlo.Instruction) bool
}

// PredecessorOrdering orders instructions by a per-computation strict
// predecessor closure. Construct with NewPredecessorOrdering (program-order
// flavor) or through DependencyOrdering (dependency flavor).
type PredecessorOrdering struct {
	module *hlo.Module
	// strictPredecessors[c].IsReachable(b, a) holds when a is b or must
	// execute before b.
	strictPredecessors map[*hlo.Computation]*hlo.Reachability
}

// NewPredecessorOrdering builds the program-order flavor: every instruction
// is a strict predecessor of all instructions appearing after it in its
// computation's instruction list.
func NewPredecessorOrdering(module *hlo.Module) *PredecessorOrdering {
	o := &PredecessorOrdering{
		module:             module,
		strictPredecessors: make(map[*hlo.Computation]*hlo.Reachability, len(module.Computations())),
	}
	for _, computation := range module.Computations() {
		o.strictPredecessors[computation] = computation.ProgramOrderPredecessors()
	}
	return o
}

// ExecutesBefore implements Ordering: a executes before b iff a is in b's
// strict predecessor closure.
func (o *PredecessorOrdering) ExecutesBefore(a, b *hlo.Instruction) bool {
	if a == b || a.Parent() != b.Parent() {
		return false
	}
	predecessors, found := o.strictPredecessors[a.Parent()]
	if !found {
		return false
	}
	return predecessors.IsReachable(b, a)
}

// String returns a human-readable dump, for diagnostics only.
func (o *PredecessorOrdering) String() string {
	return o.toStringHelper("PredecessorOrdering")
}

func (o *PredecessorOrdering) toStringHelper(name string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("\n")
	for _, computation := range o.module.Computations() {
		fmt.Fprintf(&sb, "computation %s:\n", computation.Name())
		for _, inst := range computation.Instructions() {
			fmt.Fprintf(&sb, "  %s strict predecessors:\n", inst.Name())
			for _, predecessor := range computation.Instructions() {
				if predecessor != inst && o.strictPredecessors[computation].IsReachable(inst, predecessor) {
					fmt.Fprintf(&sb, "    %s\n", predecessor.Name())
				}
			}
		}
	}
	return sb.String()
}

// DependencyOrdering is the dependency flavor of PredecessorOrdering: a
// executes before b iff there is a data or control dependency path from b
// back to a.
type DependencyOrdering struct {
	PredecessorOrdering
}

// NewDependencyOrdering builds the dependency closure for every computation
// of the module.
func NewDependencyOrdering(module *hlo.Module) *DependencyOrdering {
	o := &DependencyOrdering{PredecessorOrdering{
		module:             module,
		strictPredecessors: make(map[*hlo.Computation]*hlo.Reachability, len(module.Computations())),
	}}
	for _, computation := range module.Computations() {
		o.strictPredecessors[computation] = computation.TransitiveDependencies()
	}
	return o
}

// String returns a human-readable dump, for diagnostics only.
func (o *DependencyOrdering) String() string {
	return o.toStringHelper("DependencyOrdering")
}

// SequentialOrdering orders instructions by their position in an explicitly
// chosen ModuleSequence. Instructions absent from the sequence (e.g. added
// after scheduling) are unordered with everything.
type SequentialOrdering struct {
	module   *hlo.Module
	sequence ModuleSequence
	position map[*hlo.Instruction]int
}

// NewSequentialOrdering builds the position index for a module sequence.
func NewSequentialOrdering(module *hlo.Module, sequence ModuleSequence) *SequentialOrdering {
	o := &SequentialOrdering{
		module:   module,
		sequence: sequence,
		position: make(map[*hlo.Instruction]int),
	}
	for _, order := range sequence {
		for i, inst := range order {
			o.position[inst] = i
		}
	}
	return o
}

// ExecutesBefore implements Ordering: both instructions must be present in
// the sequence and a's position strictly smaller than b's.
func (o *SequentialOrdering) ExecutesBefore(a, b *hlo.Instruction) bool {
	if a.Parent() != b.Parent() {
		return false
	}
	positionA, foundA := o.position[a]
	positionB, foundB := o.position[b]
	if !foundA || !foundB {
		return false
	}
	return positionA < positionB
}

// SequentialOrder returns the chosen total order for a computation, nil if
// the sequence does not cover it.
func (o *SequentialOrdering) SequentialOrder(computation *hlo.Computation) []*hlo.Instruction {
	return o.sequence[computation]
}

// String returns a human-readable dump, for diagnostics only.
func (o *SequentialOrdering) String() string {
	var sb strings.Builder
	sb.WriteString("SequentialOrdering\n")
	for _, computation := range o.module.Computations() {
		order, found := o.sequence[computation]
		if !found {
			continue
		}
		fmt.Fprintf(&sb, "computation %s order:\n", computation.Name())
		for _, inst := range order {
			fmt.Fprintf(&sb, "  %s\n", inst.Name())
		}
	}
	return sb.String()
}
