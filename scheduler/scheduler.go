// Package scheduler decides, per computation, a total order over its
// instructions that heuristically minimizes the peak memory a downstream
// buffer allocator would need.
//
// Two candidate orders are computed for every computation -- a greedy list
// schedule prioritizing bytes freed, and a DFS postorder favoring high
// fan-out subtrees -- both valid topological orders with respect to data and
// control dependencies. Each candidate is replayed through the heap
// simulator (github.com/gomlx/gohlo/heapsim) and the cheaper one wins, ties
// going to the list schedule.
package scheduler

import (
	"github.com/gomlx/gohlo/buffers"
	"github.com/gomlx/gohlo/heapsim"
	"github.com/gomlx/gohlo/hlo"
	"github.com/gomlx/gohlo/ordering"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CreateMemoryMinimizingSequence schedules every computation of the module
// and returns the assembled per-computation sequence map.
func CreateMemoryMinimizingSequence(module *hlo.Module, sizeFn buffers.SizeFunction) (ordering.ModuleSequence, error) {
	analysis, err := buffers.Run(module)
	if err != nil {
		return nil, err
	}
	sequence := make(ordering.ModuleSequence, len(module.Computations()))
	for _, computation := range module.Computations() {
		sequence[computation], err = createMemoryMinimizingSequence(computation, analysis, sizeFn)
		if err != nil {
			return nil, errors.Wrapf(err, "scheduling computation %q", computation.Name())
		}
	}
	return sequence, nil
}

// CreateMemoryMinimizingSequenceForComputation schedules a single
// computation. The buffer analysis is built for the computation's whole
// module, so buffer identities match those of module-level scheduling.
func CreateMemoryMinimizingSequenceForComputation(computation *hlo.Computation,
	sizeFn buffers.SizeFunction) ([]*hlo.Instruction, error) {
	analysis, err := buffers.Run(computation.Module())
	if err != nil {
		return nil, err
	}
	return createMemoryMinimizingSequence(computation, analysis, sizeFn)
}

// createMemoryMinimizingSequence tries both a list-scheduler based order and
// a DFS based order, and keeps whichever simulates to the lower minimum
// memory, not accounting for fragmentation.
func createMemoryMinimizingSequence(computation *hlo.Computation, analysis *buffers.Analysis,
	sizeFn buffers.SizeFunction) ([]*hlo.Instruction, error) {
	listSequence, err := runListScheduler(computation, analysis, sizeFn)
	if err != nil {
		return nil, err
	}
	listMemory, err := minimumMemoryForComputation(computation, listSequence, analysis, sizeFn)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("Min-memory list sequence: %d bytes", listMemory)

	dfsSequence, err := runDFSScheduler(computation, analysis, sizeFn)
	if err != nil {
		return nil, err
	}
	dfsMemory, err := minimumMemoryForComputation(computation, dfsSequence, analysis, sizeFn)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("Min-memory dfs sequence: %d bytes", dfsMemory)

	if listMemory <= dfsMemory {
		klog.V(2).Infof("Chose min-memory list sequence: %d bytes", listMemory)
		return listSequence, nil
	}
	klog.V(2).Infof("Chose min-memory dfs sequence: %d bytes", dfsMemory)
	return dfsSequence, nil
}

// minimumMemoryForComputation is the absolute minimum memory required for a
// given order of the computation's instructions: the peak of the simulated
// alloc/free events, ignoring fragmentation.
func minimumMemoryForComputation(computation *hlo.Computation, sequence []*hlo.Instruction,
	analysis *buffers.Analysis, sizeFn buffers.SizeFunction) (int64, error) {
	result, err := heapsim.Run(heapsim.NewNoFragmentationStats(), sequence, computation, analysis, sizeFn)
	if err != nil {
		return 0, err
	}
	return result.HeapSize, nil
}

// MinimumMemoryForSequence estimates the memory an already-chosen module
// sequence needs: the sum over computations of each one's simulated minimum.
// An empty sequence costs zero bytes.
func MinimumMemoryForSequence(sequence ordering.ModuleSequence, sizeFn buffers.SizeFunction) (int64, error) {
	if len(sequence) == 0 {
		return 0, nil
	}

	var module *hlo.Module
	for computation := range sequence {
		module = computation.Module()
		break
	}
	analysis, err := buffers.Run(module)
	if err != nil {
		return 0, err
	}

	var totalMemory int64
	for computation, order := range sequence {
		memory, err := minimumMemoryForComputation(computation, order, analysis, sizeFn)
		if err != nil {
			return 0, errors.Wrapf(err, "simulating computation %q", computation.Name())
		}
		totalMemory += memory
	}
	return totalMemory, nil
}
