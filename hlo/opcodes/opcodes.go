// Package opcodes defines Opcode, the enum of HLO operations gohlo understands.
//
// Only the call-bearing opcodes (Call, Map, Reduce, ReduceWindow,
// SelectAndScatter, While, Fusion) have special meaning to the analyses; the
// remaining opcodes are ordinary data-flow nodes.
package opcodes

// Opcode identifies the operation performed by an instruction.
type Opcode int

//go:generate go tool enumer -type Opcode opcodes.go

const (
	Invalid Opcode = iota
	Parameter
	Constant
	Tuple
	GetTupleElement

	Add
	Subtract
	Multiply
	Divide
	Maximum
	Minimum
	Negate
	Exp
	Log
	Compare
	Select
	Broadcast

	Call
	Map
	Reduce
	ReduceWindow
	SelectAndScatter
	While
	Fusion
)

// IsCallOp returns whether instructions with this opcode invoke other
// computations, directly or through nested (fused) instructions.
func (op Opcode) IsCallOp() bool {
	switch op {
	case Call, Map, Reduce, ReduceWindow, SelectAndScatter, While, Fusion:
		return true
	}
	return false
}
