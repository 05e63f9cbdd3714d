// Package allocatortree implements the hierarchical native-memory
// accounting tree described by the stream producer's memory discipline:
// a root, per-producer, per-stream, and per-partition chain of capped
// children, each attributing outstanding buffers to an explicit node so
// that teardown can detect leaks and enforce budgets before any bytes
// are handed to the wire.
//
// The tree only accounts bytes; actual buffer storage is owned by the
// wrapped arrow-go memory.Allocator (see NewRoot's mem argument), mirroring
// how cockroach's BulkAdder tracks MinBufferSize/MaxBufferSize caps
// without itself being the allocator.
package allocatortree

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"

	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/flighterrors"
	"github.com/elephantbirdconsulting/neo4j-arrow/pkg/arrowflight/metrics"
)

// Unbounded marks a node as uncapped; it may still be constrained by an
// ancestor's cap.
const Unbounded int64 = -1

// Node is one level of the allocator tree. A Node is safe for concurrent
// use; allocate/free calls climb to the root taking each ancestor's mutex
// in turn.
type Node struct {
	name   string
	cap    int64
	parent *Node
	mem    memory.Allocator

	mu       sync.Mutex
	used     int64
	children map[string]*Node
	closed   bool
}

// NewRoot creates the process-wide root node. cap is the budget for the
// whole tree; pass Unbounded for no root cap. The server command fills it
// from MAX_MEM_STREAM (via producer.Config.RootMemCap); MAX_MEM_GLOBAL is
// not read anywhere. mem is the underlying arrow-go
// allocator every buffer in the tree is ultimately backed by.
func NewRoot(name string, cap int64, mem memory.Allocator) *Node {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Node{
		name:     name,
		cap:      cap,
		mem:      mem,
		children: make(map[string]*Node),
	}
}

// NewChild creates a capped child of n. Closing n's children is required
// before n itself can close.
func (n *Node) NewChild(name string, cap int64) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	child := &Node{
		name:     name,
		cap:      cap,
		parent:   n,
		mem:      n.mem,
		children: make(map[string]*Node),
	}
	n.children[name] = child
	return child
}

// Memory returns the arrow-go allocator backing this subtree, for
// building vectors that will be attributed to this node via Allocate.
func (n *Node) Memory() memory.Allocator {
	return n.mem
}

// Name returns the node's name, for logging and error messages.
func (n *Node) Name() string {
	return n.name
}

// Reserved returns the bytes currently attributed to this node's subtree.
func (n *Node) Reserved() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.used
}

// Allocate reserves nbytes against this node and every ancestor's cap. It
// fails with flighterrors.ErrOutOfMemory, leaving all counters unchanged,
// if any node from here to the root would exceed its cap.
func (n *Node) Allocate(nbytes int64) error {
	if nbytes < 0 {
		return flighterrors.InvalidArgument("allocatortree: negative allocation %d", nbytes)
	}
	chain := n.chainToRoot()

	for _, node := range chain {
		node.mu.Lock()
	}
	defer func() {
		for _, node := range chain {
			node.mu.Unlock()
		}
	}()

	for _, node := range chain {
		if node.closed {
			return errors.Errorf("allocatortree: node %q is closed", node.name)
		}
		if node.cap != Unbounded && node.used+nbytes > node.cap {
			return flighterrors.OutOfMemory("allocatortree: %q would exceed cap (%d+%d > %d)",
				node.name, node.used, nbytes, node.cap)
		}
	}
	for _, node := range chain {
		node.used += nbytes
		metrics.AllocatorBytesInUse.WithLabelValues(node.name).Set(float64(node.used))
	}
	return nil
}

// Free releases nbytes previously reserved by Allocate, from this node up
// to the root.
func (n *Node) Free(nbytes int64) {
	if nbytes == 0 {
		return
	}
	chain := n.chainToRoot()
	for _, node := range chain {
		node.mu.Lock()
		node.used -= nbytes
		used := node.used
		node.mu.Unlock()
		metrics.AllocatorBytesInUse.WithLabelValues(node.name).Set(float64(used))
	}
}

// Close releases n. It requires no outstanding reservations on n itself
// (children must be closed first) and removes n from its parent.
// Returns flighterrors.ErrLeakedBuffers if buffers are still outstanding;
// n then stays open and attached to its parent, so Close may be called
// again once those bytes are freed.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	if len(n.children) > 0 {
		n.mu.Unlock()
		return errors.Errorf("allocatortree: %q has %d open children", n.name, len(n.children))
	}
	used := n.used
	if used != 0 {
		n.mu.Unlock()
		return flighterrors.Wrap(errors.Errorf("%q has %d bytes outstanding", n.name, used),
			flighterrors.ErrLeakedBuffers, "allocatortree: close")
	}
	n.closed = true
	n.mu.Unlock()

	metrics.AllocatorBytesInUse.DeleteLabelValues(n.name)

	if n.parent != nil {
		n.parent.mu.Lock()
		delete(n.parent.children, n.name)
		n.parent.mu.Unlock()
	}
	return nil
}

func (n *Node) chainToRoot() []*Node {
	var chain []*Node
	for cur := n; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	return chain
}
