package hlo

// Reachability is a transitive-closure bitmap over a computation's
// instructions, answering IsReachable in O(1). It is a read-only snapshot:
// it must be rebuilt if instructions are added to the computation.
type Reachability struct {
	indices map[*Instruction]int
	// One bit vector per instruction, bit j set when instruction j is in the
	// closure of instruction i. Every instruction is in its own closure.
	vectors [][]uint64
	words   int
}

func newReachability(instructions []*Instruction) *Reachability {
	n := len(instructions)
	r := &Reachability{
		indices: make(map[*Instruction]int, n),
		vectors: make([][]uint64, n),
		words:   (n + 63) / 64,
	}
	for i, inst := range instructions {
		r.indices[inst] = i
		r.vectors[i] = make([]uint64, r.words)
		r.vectors[i][i/64] |= 1 << (i % 64)
	}
	return r
}

func (r *Reachability) union(into, from int) {
	dst, src := r.vectors[into], r.vectors[from]
	for w := range dst {
		dst[w] |= src[w]
	}
}

// IsReachable reports whether to is in the closure of from: for closures
// built over dependency edges this means to is from itself or one of its
// transitive dependencies. Instructions unknown to the map are unreachable.
func (r *Reachability) IsReachable(from, to *Instruction) bool {
	i, okFrom := r.indices[from]
	j, okTo := r.indices[to]
	if !okFrom || !okTo {
		return false
	}
	return r.vectors[i][j/64]&(1<<(j%64)) != 0
}

// TransitiveDependencies builds the closure over data and control
// dependency edges: instruction b is reachable from a iff b is a, one of
// a's transitive operands, or one of its transitive control predecessors.
func (c *Computation) TransitiveDependencies() *Reachability {
	order := c.PostOrder()
	r := newReachability(order)
	// Postorder guarantees dependencies are processed before their users.
	for _, inst := range order {
		i := r.indices[inst]
		for _, operand := range inst.operands {
			r.union(i, r.indices[operand])
		}
		for _, predecessor := range inst.controlPredecessors {
			r.union(i, r.indices[predecessor])
		}
	}
	return r
}

// ProgramOrderPredecessors builds the closure over program order:
// instruction b is reachable from a iff b is a or appears before a in the
// computation's instruction list.
func (c *Computation) ProgramOrderPredecessors() *Reachability {
	r := newReachability(c.instructions)
	for i := 1; i < len(c.instructions); i++ {
		r.union(r.indices[c.instructions[i]], r.indices[c.instructions[i-1]])
	}
	return r
}
