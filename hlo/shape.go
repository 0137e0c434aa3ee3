package hlo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Shape is a minimalistic shape representation of a value produced by an
// instruction.
//
// It is defined as a DType (the underlying data type, e.g.: Float32, Int64,
// etc.) and the dimensions on each axis of the tensor. If len(Dimensions) is
// 0, it represents a scalar.
//
// Alternatively, a value can represent a "tuple" of sub-values. In this case
// Shape.TupleShapes is defined with the shapes of its sub-values -- it is a
// recursive structure. In this case DType is set to InvalidDType, and the
// shape doesn't have a value of itself.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int

	TupleShapes []Shape // Shapes of the tuple, if this is a tuple.
}

// MakeShape filled with the values given.
//
// The dimensions must be >= 1, and it doesn't work for tuple shapes -- see
// MakeTupleShape.
func MakeShape(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("hlo.MakeShape(%+v): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// MakeShapeOrError is the same as MakeShape, but it returns an error instead
// if the dimensions are <= 0.
func MakeShapeOrError(dtype dtypes.DType, dimensions ...int) (Shape, error) {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			return Shape{}, errors.Errorf("hlo.MakeShape(%+v): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s, nil
}

// MakeTupleShape from the shapes of its sub-values.
func MakeTupleShape(elements ...Shape) Shape {
	return Shape{TupleShapes: slices.Clone(elements)}
}

// IsScalar returns whether the Shape is a scalar, i.e. its len(Shape.Dimensions) == 0.
func (s Shape) IsScalar() bool { return !s.IsTuple() && s.Rank() == 0 }

// IsTuple returns whether the Shape represents a tuple of sub-values.
func (s Shape) IsTuple() bool { return len(s.TupleShapes) > 0 }

// Rank of a shape is the number of axes. A shortcut to len(Shape.Dimensions).
// Scalar values have rank 0.
func (s Shape) Rank() int {
	return len(s.Dimensions)
}

// Size returns the total number of elements of the shape. E.g.: a Shape of
// dimensions [3, 5] has size 15. A scalar has size 1.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		size *= dim
	}
	return size
}

// tupleElementPointerSize is the number of bytes accounted per top-level
// tuple element: tuples are stored as a table of pointers to their elements.
const tupleElementPointerSize = 8

// Memory returns the number of bytes used to store an array of the given
// shape. A tuple shape accounts only for its own pointer table, not the
// elements it points to -- those are separate values with their own shapes.
func (s Shape) Memory() uintptr {
	if s.IsTuple() {
		return tupleElementPointerSize * uintptr(s.TupleSize())
	}
	return s.DType.Memory() * uintptr(s.Size())
}

// Clone makes a deep copy (including dimensions and tuples) of the given shape.
func (s Shape) Clone() (newS Shape) {
	newS.DType = s.DType
	if len(s.Dimensions) > 0 {
		newS.Dimensions = slices.Clone(s.Dimensions)
	}
	if len(s.TupleShapes) > 0 {
		newS.TupleShapes = make([]Shape, len(s.TupleShapes))
		for ii, subS := range s.TupleShapes {
			newS.TupleShapes[ii] = subS.Clone()
		}
	}
	return newS
}

// TupleSize is an alias to len(Shape.TupleShapes).
func (s Shape) TupleSize() int {
	return len(s.TupleShapes)
}

// String implements fmt.Stringer and pretty-print the shape.
func (s Shape) String() string {
	if s.TupleSize() > 0 {
		parts := make([]string, 0, s.TupleSize())
		for _, tuple := range s.TupleShapes {
			parts = append(parts, tuple.String())
		}
		return fmt.Sprintf("Tuple<%s>", strings.Join(parts, ", "))
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)[]", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Equal compares shapes for equality of dtype, dimensions and tuple structure.
func (s Shape) Equal(other Shape) bool {
	if s.IsTuple() != other.IsTuple() {
		return false
	}
	if s.IsTuple() {
		if s.TupleSize() != other.TupleSize() {
			return false
		}
		for ii, subS := range s.TupleShapes {
			if !subS.Equal(other.TupleShapes[ii]) {
				return false
			}
		}
		return true
	}
	return s.DType == other.DType && slices.Equal(s.Dimensions, other.Dimensions)
}
