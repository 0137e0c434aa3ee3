// Package hlo models a compiler module as a graph of computations and
// instructions: the input consumed by the call-graph analysis
// (github.com/gomlx/gohlo/callgraph), the execution-order oracles
// (github.com/gomlx/gohlo/ordering) and the memory-minimizing scheduler
// (github.com/gomlx/gohlo/scheduler).
//
// A Module owns an ordered list of Computations, one of which is the entry
// point. A Computation owns an ordered list of Instructions and designates
// one of them as its root (the computation's result). Instructions reference
// their operands, and the reverse user edges are maintained automatically.
// Control dependencies add ordering constraints without data flow.
//
// The graph is built once through the constructors below and then traversed
// read-only by the analyses. Derived structures (Reachability, schedules)
// are snapshots: they must be rebuilt if instructions are added afterwards.
package hlo
