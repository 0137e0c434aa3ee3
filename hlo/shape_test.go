package hlo

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	scalar := MakeShape(dtypes.F64)
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, 0, scalar.Rank())
	assert.Equal(t, 1, scalar.Size())
	assert.Equal(t, uintptr(8), scalar.Memory())

	matrix := MakeShape(dtypes.F32, 3, 5)
	assert.Equal(t, 2, matrix.Rank())
	assert.Equal(t, 15, matrix.Size())
	assert.Equal(t, uintptr(60), matrix.Memory())
	assert.Contains(t, matrix.String(), "[3 5]")

	assert.Panics(t, func() { MakeShape(dtypes.F32, 0) })
	_, err := MakeShapeOrError(dtypes.F32, -1)
	require.Error(t, err)

	tuple := MakeTupleShape(scalar, matrix)
	assert.True(t, tuple.IsTuple())
	assert.False(t, tuple.IsScalar())
	assert.Equal(t, 2, tuple.TupleSize())
	assert.Equal(t, uintptr(16), tuple.Memory(), "tuples account for their pointer table only")

	clone := tuple.Clone()
	assert.True(t, clone.Equal(tuple))
	clone.TupleShapes[1].Dimensions[0] = 7
	assert.False(t, clone.Equal(tuple), "Clone must be a deep copy")
	assert.False(t, scalar.Equal(matrix))
	assert.False(t, scalar.Equal(tuple))
}
