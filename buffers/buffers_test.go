package buffers

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

func TestRun_OneBufferPerInstruction(t *testing.T) {
	m := hlo.NewModule("m")
	c := m.NewComputation("main")
	p0 := c.NewParameter("p0", scalar)
	neg := must.M1(c.NewOp("neg", opcodes.Negate, scalar, p0))

	a := must.M1(Run(m))
	assert.Len(t, a.Buffers(), 2)
	assert.Same(t, m, a.Module())

	defined := must.M1(a.BuffersDefinedBy(neg))
	require.Len(t, defined, 1)
	assert.Same(t, neg, defined[0].Instruction())

	pointsTo := must.M1(a.PointsTo(neg))
	assert.Equal(t, defined, pointsTo, "plain ops point to exactly what they define")
}

func TestRun_TupleAliasing(t *testing.T) {
	m := hlo.NewModule("m")
	c := m.NewComputation("main")
	p0 := c.NewParameter("p0", scalar)
	p1 := c.NewParameter("p1", scalar)
	tuple := must.M1(c.NewTuple("tuple", p0, p1))
	element := must.M1(c.NewGetTupleElement("element", tuple, 0))

	a := must.M1(Run(m))

	// The tuple defines its pointer table and points to the elements too.
	tupleDefined := must.M1(a.BuffersDefinedBy(tuple))
	require.Len(t, tupleDefined, 1)
	tuplePointsTo := must.M1(a.PointsTo(tuple))
	require.Len(t, tuplePointsTo, 3)
	assert.Same(t, tupleDefined[0], tuplePointsTo[0])

	p0Buffer := must.M1(a.BuffersDefinedBy(p0))[0]
	p1Buffer := must.M1(a.BuffersDefinedBy(p1))[0]
	assert.Contains(t, tuplePointsTo, p0Buffer)
	assert.Contains(t, tuplePointsTo, p1Buffer)

	// GetTupleElement is a view: defines nothing, points to the operand's
	// buffers.
	elementDefined := must.M1(a.BuffersDefinedBy(element))
	assert.Empty(t, elementDefined)
	assert.Equal(t, tuplePointsTo, must.M1(a.PointsTo(element)))
}

func TestRun_NestedTuples(t *testing.T) {
	m := hlo.NewModule("m")
	c := m.NewComputation("main")
	p0 := c.NewParameter("p0", scalar)
	inner := must.M1(c.NewTuple("inner", p0))
	outer := must.M1(c.NewTuple("outer", inner, p0))

	a := must.M1(Run(m))
	outerPointsTo := must.M1(a.PointsTo(outer))
	// outer table + inner table + p0, flattened and deduplicated.
	assert.Len(t, outerPointsTo, 3)
}

func TestAnalysis_UnknownInstruction(t *testing.T) {
	m := hlo.NewModule("m")
	c := m.NewComputation("main")
	c.NewParameter("p0", scalar)
	a := must.M1(Run(m))

	foreign := hlo.NewModule("other").NewComputation("foreign").NewParameter("f", scalar)
	_, err := a.BuffersDefinedBy(foreign)
	require.Error(t, err)
	_, err = a.PointsTo(foreign)
	require.Error(t, err)
}

func TestSizeOfShape(t *testing.T) {
	m := hlo.NewModule("m")
	c := m.NewComputation("main")
	vector := c.NewParameter("vector", hlo.MakeShape(dtypes.F32, 8))

	a := must.M1(Run(m))
	buffer := must.M1(a.BuffersDefinedBy(vector))[0]
	assert.Equal(t, int64(32), SizeOfShape(buffer))
	assert.Contains(t, buffer.String(), "vector")
}
