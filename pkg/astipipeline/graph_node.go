package astipipeline

import (
	"sync"
	"sync/atomic"
)

type GraphNodeRole int

const (
	GraphNodeRoleSource GraphNodeRole = iota
	GraphNodeRoleFilter
	GraphNodeRoleSink
)

func (r GraphNodeRole) String() string {
	switch r {
	case GraphNodeRoleSource:
		return "source"
	case GraphNodeRoleFilter:
		return "filter"
	default:
		return "sink"
	}
}

// GraphNode is the bookkeeping shared between one stage's worker goroutine
// and the scheduler. It carries the stage's completion signal and, for filter
// stages with several inputs, per-input readiness flags and the shared
// best-input selector. The selection policy stays with the surrounding stage
// logic, the node only makes the choice visible across goroutines without a
// lock.
type GraphNode struct {
	bestInput uint64
	done      chan struct{}
	doneOnce  sync.Once
	inputs    []uint32
	role      GraphNodeRole
}

func newGraphNode(role GraphNodeRole, inputCount int) *GraphNode {
	return &GraphNode{
		done:   make(chan struct{}),
		inputs: make([]uint32, inputCount),
		role:   role,
	}
}

func (n *GraphNode) Role() GraphNodeRole {
	return n.role
}

func (n *GraphNode) markDone() {
	n.doneOnce.Do(func() { close(n.done) })
}

// Done is closed once the stage's worker has exited
func (n *GraphNode) Done() <-chan struct{} {
	return n.done
}

func (n *GraphNode) IsDone() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

// BestInput returns the input slot the stage logic elected to service next
func (n *GraphNode) BestInput() int {
	return int(atomic.LoadUint64(&n.bestInput))
}

func (n *GraphNode) SetBestInput(i int) {
	atomic.StoreUint64(&n.bestInput, uint64(i))
}

func (n *GraphNode) InputCount() int {
	return len(n.inputs)
}

func (n *GraphNode) InputReady(i int) bool {
	return atomic.LoadUint32(&n.inputs[i]) > 0
}

func (n *GraphNode) SetInputReady(i int, ready bool) {
	var v uint32
	if ready {
		v = 1
	}
	atomic.StoreUint32(&n.inputs[i], v)
}
