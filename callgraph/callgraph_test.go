package callgraph

import (
	"testing"

	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/hlo/opcodes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scalar = hlo.MakeShape(dtypes.F32)

// makeScalarComputation returns a computation "name(x) = -x".
func makeScalarComputation(m *hlo.Module, name string) *hlo.Computation {
	c := m.NewComputation(name)
	x := c.NewParameter(name+".x", scalar)
	must.M1(c.NewOp(name+".neg", opcodes.Negate, scalar, x))
	return c
}

// makeConditionComputation returns a computation comparing its parameter,
// usable as a while condition.
func makeConditionComputation(m *hlo.Module, name string) *hlo.Computation {
	c := m.NewComputation(name)
	x := c.NewParameter(name+".x", scalar)
	zero := c.NewConstant(name+".zero", scalar)
	must.M1(c.NewOp(name+".lt", opcodes.Compare, hlo.MakeShape(dtypes.Bool), x, zero))
	return c
}

func TestBuild_SingletonComputation(t *testing.T) {
	m := hlo.NewModule("m")
	entry := makeScalarComputation(m, "entry")

	g := must.M1(Build(m))
	require.Len(t, g.Nodes(), 1)
	node := must.M1(g.GetNode(entry))
	assert.True(t, node.IsRoot())
	assert.Empty(t, node.CallSites())
	assert.Empty(t, node.Callees())
	assert.Empty(t, node.CallerCallSites())
	assert.Empty(t, node.Callers())
	assert.Equal(t, Sequential, node.Context())
}

func TestBuild_SequentialAndParallelContexts(t *testing.T) {
	// entry calls body sequentially (Call) and mapFn in parallel (Map).
	m := hlo.NewModule("m")
	body := makeScalarComputation(m, "body")
	mapFn := makeScalarComputation(m, "mapFn")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	call := must.M1(entry.NewCall("call", scalar, body, p0))
	must.M1(entry.NewMap("map", scalar, mapFn, call))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))

	entryNode := must.M1(g.GetNode(entry))
	assert.True(t, entryNode.IsRoot())
	assert.Equal(t, Sequential, entryNode.Context())
	require.Len(t, entryNode.CallSites(), 2)
	assert.Equal(t, []*hlo.Computation{body, mapFn}, entryNode.Callees())

	bodyNode := must.M1(g.GetNode(body))
	assert.False(t, bodyNode.IsRoot())
	assert.Equal(t, []*hlo.Computation{entry}, bodyNode.Callers())
	assert.Equal(t, Sequential, bodyNode.Context())

	mapFnNode := must.M1(g.GetNode(mapFn))
	assert.Equal(t, Parallel, mapFnNode.Context())
	require.Len(t, mapFnNode.CallerCallSites(), 1)
	assert.Equal(t, Parallel, mapFnNode.CallerCallSites()[0].Context)
}

func TestBuild_BothContext(t *testing.T) {
	// subFn is applied in parallel by entry's map and also called directly:
	// its context joins to Both.
	m := hlo.NewModule("m")
	subFn := makeScalarComputation(m, "subFn")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	mapped := must.M1(entry.NewMap("map", scalar, subFn, p0))
	must.M1(entry.NewCall("call", scalar, subFn, mapped))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	subNode := must.M1(g.GetNode(subFn))
	assert.Equal(t, Both, subNode.Context())
	// Two distinct call sites, one callee/caller after deduplication.
	assert.Len(t, subNode.CallerCallSites(), 2)
	assert.Equal(t, []*hlo.Computation{entry}, subNode.Callers())
	entryNode := must.M1(g.GetNode(entry))
	assert.Equal(t, []*hlo.Computation{subFn}, entryNode.Callees())
}

func TestBuild_WhileAndSelectAndScatter(t *testing.T) {
	m := hlo.NewModule("m")
	cond := makeConditionComputation(m, "cond")
	body := makeScalarComputation(m, "body")
	selectFn := makeScalarComputation(m, "selectFn")
	scatterFn := makeScalarComputation(m, "scatterFn")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	while := must.M1(entry.NewWhile("while", scalar, cond, body, p0))
	must.M1(entry.NewSelectAndScatter("sas", scalar, selectFn, scatterFn, while))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))

	entryNode := must.M1(g.GetNode(entry))
	require.Len(t, entryNode.CallSites(), 4)
	assert.Equal(t, Sequential, entryNode.CallSites()[0].Context)
	assert.Equal(t, Sequential, entryNode.CallSites()[1].Context)
	assert.Equal(t, Parallel, entryNode.CallSites()[2].Context)
	assert.Equal(t, Parallel, entryNode.CallSites()[3].Context)

	for _, c := range []*hlo.Computation{cond, body} {
		node := must.M1(g.GetNode(c))
		assert.Equal(t, Sequential, node.Context(), c.Name())
	}
	for _, c := range []*hlo.Computation{selectFn, scatterFn} {
		node := must.M1(g.GetNode(c))
		assert.Equal(t, Parallel, node.Context(), c.Name())
	}
}

func TestBuild_ParallelCallerImposesParallelOnSequentialCallees(t *testing.T) {
	// entry -> (map) -> mapFn -> (call) -> leaf: the sequential call from a
	// parallel-context caller passes Parallel through to leaf.
	m := hlo.NewModule("m")
	leaf := makeScalarComputation(m, "leaf")
	mapFn := m.NewComputation("mapFn")
	x := mapFn.NewParameter("x", scalar)
	must.M1(mapFn.NewCall("inner", scalar, leaf, x))
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	must.M1(entry.NewMap("map", scalar, mapFn, p0))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	leafNode := must.M1(g.GetNode(leaf))
	assert.Equal(t, Parallel, leafNode.Context())
}

func TestBuild_FusionCallSitesAreFlattened(t *testing.T) {
	m := hlo.NewModule("m")
	mapFn := makeScalarComputation(m, "mapFn")
	callee := makeScalarComputation(m, "callee")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	fusion := must.M1(entry.NewFusion("fusion", scalar, p0))
	must.M1(fusion.AddFusedInstruction("fusedMap", opcodes.Map, scalar, mapFn))
	nested := must.M1(fusion.AddFusedInstruction("nestedFusion", opcodes.Fusion, scalar))
	must.M1(nested.AddFusedInstruction("deepCall", opcodes.Call, scalar, callee))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	entryNode := must.M1(g.GetNode(entry))
	require.Len(t, entryNode.CallSites(), 2, "nested call sites flatten into the enclosing node")
	assert.Equal(t, []*hlo.Computation{mapFn, callee}, entryNode.Callees())

	mapFnNode := must.M1(g.GetNode(mapFn))
	assert.Equal(t, Parallel, mapFnNode.Context())
	calleeNode := must.M1(g.GetNode(callee))
	assert.Equal(t, Sequential, calleeNode.Context())
	assert.Equal(t, []*hlo.Computation{entry}, calleeNode.Callers())
}

func TestBuild_UncalledComputationIsARoot(t *testing.T) {
	m := hlo.NewModule("m")
	entry := makeScalarComputation(m, "entry")
	orphan := makeScalarComputation(m, "orphan")
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	for _, node := range g.Nodes() {
		assert.Equal(t, node.IsRoot(), len(node.Callers()) == 0)
	}
	orphanNode := must.M1(g.GetNode(orphan))
	assert.True(t, orphanNode.IsRoot())
	assert.Equal(t, Sequential, orphanNode.Context(), "uncalled computations seed Sequential")
}

func TestBuild_ContextsAreIdempotent(t *testing.T) {
	m := hlo.NewModule("m")
	subFn := makeScalarComputation(m, "subFn")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	mapped := must.M1(entry.NewMap("map", scalar, subFn, p0))
	must.M1(entry.NewCall("call", scalar, subFn, mapped))
	require.NoError(t, m.SetEntryComputation(entry))

	first := must.M1(Build(m))
	second := must.M1(Build(m))
	for _, computation := range m.Computations() {
		firstNode := must.M1(first.GetNode(computation))
		secondNode := must.M1(second.GetNode(computation))
		assert.Equal(t, firstNode.Context(), secondNode.Context(), computation.Name())
	}
}

func TestGetNode_UnknownComputation(t *testing.T) {
	m := hlo.NewModule("m")
	makeScalarComputation(m, "entry")
	g := must.M1(Build(m))

	foreign := hlo.NewModule("other").NewComputation("foreign")
	_, err := g.GetNode(foreign)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no node for computation")
}

func TestVisitNodes_CalleesFirst(t *testing.T) {
	// entry -> a -> leaf, entry -> leaf: leaf must be visited before a and
	// entry, a before entry, each node exactly once.
	m := hlo.NewModule("m")
	leaf := makeScalarComputation(m, "leaf")
	a := m.NewComputation("a")
	ax := a.NewParameter("a.x", scalar)
	must.M1(a.NewCall("a.call", scalar, leaf, ax))
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	viaA := must.M1(entry.NewCall("callA", scalar, a, p0))
	must.M1(entry.NewCall("callLeaf", scalar, leaf, viaA))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	var visited []*hlo.Computation
	require.NoError(t, g.VisitNodes(func(node *Node) error {
		visited = append(visited, node.Computation())
		return nil
	}, false))
	require.Equal(t, []*hlo.Computation{leaf, a, entry}, visited)
}

func TestVisitNodes_UnreachableNodes(t *testing.T) {
	m := hlo.NewModule("m")
	entry := makeScalarComputation(m, "entry")
	orphan := makeScalarComputation(m, "orphan")
	require.NoError(t, m.SetEntryComputation(entry))
	g := must.M1(Build(m))

	var reachableOnly []*hlo.Computation
	require.NoError(t, g.VisitNodes(func(node *Node) error {
		reachableOnly = append(reachableOnly, node.Computation())
		return nil
	}, false))
	assert.Equal(t, []*hlo.Computation{entry}, reachableOnly)

	var all []*hlo.Computation
	require.NoError(t, g.VisitNodes(func(node *Node) error {
		all = append(all, node.Computation())
		return nil
	}, true))
	assert.ElementsMatch(t, []*hlo.Computation{entry, orphan}, all)
}

func TestVisitNodes_VisitorErrorAborts(t *testing.T) {
	m := hlo.NewModule("m")
	makeScalarComputation(m, "entry")
	g := must.M1(Build(m))

	wantErr := assert.AnError
	err := g.VisitNodes(func(node *Node) error { return wantErr }, true)
	require.ErrorIs(t, err, wantErr)
}

func TestCallContext_Strings(t *testing.T) {
	assert.Equal(t, "None", None.String())
	assert.Equal(t, "Sequential", Sequential.String())
	assert.Equal(t, "Parallel", Parallel.String())
	assert.Equal(t, "Both", Both.String())
}

func TestCallGraph_String(t *testing.T) {
	m := hlo.NewModule("m")
	body := makeScalarComputation(m, "body")
	entry := m.NewComputation("entry")
	p0 := entry.NewParameter("p0", scalar)
	must.M1(entry.NewCall("call", scalar, body, p0))
	require.NoError(t, m.SetEntryComputation(entry))

	g := must.M1(Build(m))
	dump := g.String()
	assert.Contains(t, dump, "Call graph for module m")
	assert.Contains(t, dump, "Computation entry")
	assert.Contains(t, dump, "call calls body, Sequential")
}
