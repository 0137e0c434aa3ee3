// Package callgraph builds the graph of which computations of an hlo.Module
// invoke which others, and classifies every computation's calling context
// (sequential, parallel or both) by propagating from the call graph's roots.
//
// Later passes use the context to decide whether storage for a computation
// can be shared across its invocations: a computation only ever called
// sequentially runs one invocation at a time, a parallel-context computation
// may have many invocations in flight.
package callgraph

import (
	"fmt"
	"strings"

	"github.com/gomlx/gohlo/hlo"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CallGraph of one module snapshot. Build it with Build; it is read-only
// afterwards and stale if the module's computations or instructions change.
type CallGraph struct {
	module      *hlo.Module
	nodes       []*Node
	nodeIndices map[*hlo.Computation]int
}

// Module the graph was built for.
func (g *CallGraph) Module() *hlo.Module { return g.module }

// Nodes of the graph, in module computation order.
func (g *CallGraph) Nodes() []*Node { return g.nodes }

// GetNode returns the node of the given computation. It fails if the
// computation has no node, which indicates a mismatched or stale module
// view -- a bug in the caller, not a user error.
func (g *CallGraph) GetNode(computation *hlo.Computation) (*Node, error) {
	index, found := g.nodeIndices[computation]
	if !found {
		return nil, errors.Errorf("callgraph: no node for computation %q in call graph of module %q",
			computation.Name(), g.module.Name())
	}
	return g.nodes[index], nil
}

// Build constructs the call graph for a module and resolves every node's
// calling context. Errors indicate internal inconsistencies (a call site
// targeting a computation outside the module, or a node left without
// context) and should be treated as fatal.
func Build(module *hlo.Module) (*CallGraph, error) {
	g := &CallGraph{
		module:      module,
		nodeIndices: make(map[*hlo.Computation]int),
	}

	// One node per computation, discovering call sites as we go.
	for _, computation := range module.Computations() {
		if _, exists := g.nodeIndices[computation]; exists {
			return nil, errors.Errorf("callgraph: computation %q appears twice in module %q",
				computation.Name(), module.Name())
		}
		g.nodeIndices[computation] = len(g.nodes)
		node := newNode(computation)
		g.nodes = append(g.nodes, node)
		for _, inst := range computation.Instructions() {
			node.addCallSitesInInstruction(inst)
		}
	}

	// Second pass: record on every callee the call sites targeting it. This
	// must happen only after all nodes exist, since callees may appear
	// later than their callers in module order.
	for _, callerNode := range g.nodes {
		for _, callsite := range callerNode.CallSites() {
			calleeNode, err := g.GetNode(callsite.Called)
			if err != nil {
				return nil, errors.Wrapf(err, "callgraph: call site %q", callsite)
			}
			calleeNode.addCallerCallSite(callsite)
		}
	}

	if err := g.setCallContexts(); err != nil {
		return nil, err
	}

	if klog.V(1).Enabled() {
		klog.Infof("%s", g)
	}
	return g, nil
}

// setCallContexts resolves every node's calling context with a worklist
// fixpoint over the context lattice. Roots seed Sequential; a parallel call
// site contributes Parallel to its callee regardless of the caller's own
// context, a sequential call site passes the caller's context through.
func (g *CallGraph) setCallContexts() error {
	worklist := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		if node.IsRoot() {
			node.context = Sequential
			worklist = append(worklist, node)
		}
	}

	for len(worklist) > 0 {
		node := worklist[0]
		worklist = worklist[1:]

		for _, callsite := range node.CallSites() {
			calleeNode, err := g.GetNode(callsite.Called)
			if err != nil {
				return err
			}
			var contextToAdd CallContext
			if callsite.Context == Parallel {
				contextToAdd = Parallel
			} else {
				if callsite.Context != Sequential {
					return errors.Errorf("callgraph: call site %q has context %s, want Sequential or Parallel",
						callsite, callsite.Context)
				}
				contextToAdd = node.context
			}
			newContext := unionContexts(contextToAdd, calleeNode.context)
			if newContext != calleeNode.context {
				// Callee's context changed: it must re-propagate to its own
				// callees. Terminates because a context can only move up
				// the 4-element lattice.
				calleeNode.context = newContext
				worklist = append(worklist, calleeNode)
			}
		}
	}

	for _, node := range g.nodes {
		if node.context == None {
			return errors.Errorf("callgraph: computation %q has no calling context after propagation",
				node.computation.Name())
		}
	}
	return nil
}

// VisitorFunction is called by VisitNodes once per node.
type VisitorFunction func(node *Node) error

// VisitNodes traverses the graph callee-first (a node is visited after all
// computations it calls), visiting each node exactly once. With
// visitUnreachable it traverses from every root of the graph; otherwise only
// from the module's entry computation. The visitor's error aborts the
// traversal and is returned unchanged.
func (g *CallGraph) VisitNodes(visitor VisitorFunction, visitUnreachable bool) error {
	visited := make(map[*Node]struct{})
	if !visitUnreachable {
		entryNode, err := g.GetNode(g.module.EntryComputation())
		if err != nil {
			return err
		}
		return g.visitNodesInternal(visitor, entryNode, visited)
	}
	for _, node := range g.nodes {
		if node.IsRoot() {
			if err := g.visitNodesInternal(visitor, node, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *CallGraph) visitNodesInternal(visitor VisitorFunction, node *Node, visited map[*Node]struct{}) error {
	if _, found := visited[node]; found {
		return nil
	}
	visited[node] = struct{}{}

	for _, callee := range node.Callees() {
		calleeNode, err := g.GetNode(callee)
		if err != nil {
			return err
		}
		if err := g.visitNodesInternal(visitor, calleeNode, visited); err != nil {
			return err
		}
	}
	return visitor(node)
}

// String returns a human-readable dump of the graph, for diagnostics only.
func (g *CallGraph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Call graph for module %s:\n", g.module.Name())
	for _, node := range g.nodes {
		fmt.Fprintf(&sb, "Computation %s (context %s):\n", node.Computation().Name(), node.Context())
		sb.WriteString("  calls:\n")
		for _, callee := range node.Callees() {
			fmt.Fprintf(&sb, "    %s\n", callee.Name())
		}
		sb.WriteString("  called by:\n")
		for _, caller := range node.Callers() {
			fmt.Fprintf(&sb, "    %s\n", caller.Name())
		}
		sb.WriteString("  callsites:\n")
		for _, callsite := range node.CallSites() {
			fmt.Fprintf(&sb, "    %s\n", callsite)
		}
	}
	return sb.String()
}
