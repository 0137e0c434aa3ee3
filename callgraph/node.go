package callgraph

import (
	"fmt"

	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/hlo/opcodes"
)

// CallContext classifies how a computation is invoked. It forms a small
// join-semilattice: None is the identity, joining Sequential with Parallel
// yields Both, and Both absorbs everything.
type CallContext int

const (
	// None means the computation is not called; only possible before
	// propagation finishes.
	None CallContext = iota

	// Sequential means every invocation is one-at-a-time: direct calls,
	// while conditions and bodies.
	Sequential

	// Parallel means the computation is applied across many elements
	// concurrently: map, reduce, reduce-window, select-and-scatter.
	Parallel

	// Both means the computation is reachable through sequential and
	// parallel call sites.
	Both
)

// String implements fmt.Stringer.
func (context CallContext) String() string {
	switch context {
	case None:
		return "None"
	case Sequential:
		return "Sequential"
	case Parallel:
		return "Parallel"
	case Both:
		return "Both"
	}
	return fmt.Sprintf("CallContext(%d)", int(context))
}

// unionContexts joins the contexts of two invocations of the same
// computation.
func unionContexts(a, b CallContext) CallContext {
	if a == None {
		return b
	}
	if b == None || a == b {
		return a
	}
	// Different and neither is None: one is Sequential and the other
	// Parallel (or one already Both).
	return Both
}

// CallSite is one occurrence of a computation invoking another: the calling
// instruction, the called computation and how the call executes.
type CallSite struct {
	// Instruction performing the call. For call sites inside fused
	// instructions this is the nested instruction, whose Parent is the
	// computation enclosing the fusion.
	Instruction *hlo.Instruction

	// Called computation.
	Called *hlo.Computation

	// Context of this particular call site: Sequential or Parallel.
	Context CallContext
}

// String implements fmt.Stringer.
func (cs CallSite) String() string {
	return fmt.Sprintf("%s calls %s, %s", cs.Instruction.Name(), cs.Called.Name(), cs.Context)
}

// Node is the call graph's view of one computation: the call sites it
// contains, the computations it calls, the computations and call sites that
// call it, and its resolved calling context.
type Node struct {
	computation *hlo.Computation

	// Outgoing call sites in discovery order; callees deduplicated in
	// first-seen order.
	callsites []CallSite
	callees   []*hlo.Computation
	calleeSet map[*hlo.Computation]struct{}

	// Call sites calling this node, populated after all nodes exist;
	// callers deduplicated in first-seen order.
	callerCallsites []CallSite
	callers         []*hlo.Computation
	callerSet       map[*hlo.Computation]struct{}

	context CallContext
}

func newNode(computation *hlo.Computation) *Node {
	return &Node{
		computation: computation,
		calleeSet:   make(map[*hlo.Computation]struct{}),
		callerSet:   make(map[*hlo.Computation]struct{}),
	}
}

// Computation this node stands for.
func (n *Node) Computation() *hlo.Computation { return n.computation }

// CallSites returns the call sites inside this node's computation, in
// discovery order. Call sites inside fused instructions are flattened into
// the enclosing computation's node.
func (n *Node) CallSites() []CallSite { return n.callsites }

// Callees returns the computations this node calls, deduplicated, in
// first-call order.
func (n *Node) Callees() []*hlo.Computation { return n.callees }

// CallerCallSites returns the call sites by which this node's computation
// is invoked.
func (n *Node) CallerCallSites() []CallSite { return n.callerCallsites }

// Callers returns the computations calling this node, deduplicated, in
// first-caller order.
func (n *Node) Callers() []*hlo.Computation { return n.callers }

// Context returns the node's calling context. After Build it is never None.
func (n *Node) Context() CallContext { return n.context }

// IsRoot reports whether no computation calls this node.
func (n *Node) IsRoot() bool { return len(n.callers) == 0 }

func (n *Node) addCallSite(cs CallSite) {
	n.callsites = append(n.callsites, cs)
	if _, found := n.calleeSet[cs.Called]; !found {
		n.calleeSet[cs.Called] = struct{}{}
		n.callees = append(n.callees, cs.Called)
	}
}

func (n *Node) addCallerCallSite(cs CallSite) {
	n.callerCallsites = append(n.callerCallsites, cs)
	caller := cs.Instruction.Parent()
	if _, found := n.callerSet[caller]; !found {
		n.callerSet[caller] = struct{}{}
		n.callers = append(n.callers, caller)
	}
}

// addCallSitesInInstruction discovers the call sites an instruction
// contributes to the node. Fusion recurses into its nested instructions,
// attributing their call sites to the enclosing node.
func (n *Node) addCallSitesInInstruction(inst *hlo.Instruction) {
	switch inst.Opcode() {
	case opcodes.Call:
		n.addCallSite(CallSite{Instruction: inst, Called: inst.ToApply(), Context: Sequential})
	case opcodes.Map, opcodes.Reduce, opcodes.ReduceWindow:
		n.addCallSite(CallSite{Instruction: inst, Called: inst.ToApply(), Context: Parallel})
	case opcodes.SelectAndScatter:
		n.addCallSite(CallSite{Instruction: inst, Called: inst.SelectComputation(), Context: Parallel})
		n.addCallSite(CallSite{Instruction: inst, Called: inst.ScatterComputation(), Context: Parallel})
	case opcodes.While:
		n.addCallSite(CallSite{Instruction: inst, Called: inst.WhileCondition(), Context: Sequential})
		n.addCallSite(CallSite{Instruction: inst, Called: inst.WhileBody(), Context: Sequential})
	case opcodes.Fusion:
		for _, fused := range inst.FusedInstructions() {
			n.addCallSitesInInstruction(fused)
		}
	}
}
