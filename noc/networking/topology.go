package networking

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/sarchlab/netsim/sim/id"
)

// HookPosMsgSent marks when a message leaves a node's outgoing buffer and
// enters a channel.
var HookPosMsgSent = &hooking.HookPos{Name: "Msg Sent"}

// HookPosMsgDelivered marks when a message leaves a channel and enters the
// received buffer of its destination.
var HookPosMsgDelivered = &hooking.HookPos{Name: "Msg Delivered"}

// A Topology holds the nodes of a network, indexed by ID, and the pairs that
// connect them.
type Topology struct {
	hooking.HookableBase

	lock      sync.RWMutex
	nodes     []*Node
	nodeIndex map[id.ID]int
	pairs     []*NodesPair
	steps     atomic.Uint64
	stepLock  sync.Mutex
}

// NewTopology creates an empty topology.
func NewTopology() *Topology {
	return &Topology{
		nodeIndex: make(map[id.ID]int),
	}
}

// AddNode registers a node.
func (t *Topology) AddNode(n *Node) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, found := t.nodeIndex[n.ID()]; found {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID())
	}

	t.nodeIndex[n.ID()] = len(t.nodes)
	t.nodes = append(t.nodes, n)

	return nil
}

// Node returns the registered node with the ID.
func (t *Topology) Node(nodeID id.ID) (*Node, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	i, found := t.nodeIndex[nodeID]
	if !found {
		return nil, false
	}

	return t.nodes[i], true
}

// Nodes returns the registered nodes in registration order.
func (t *Topology) Nodes() []*Node {
	t.lock.RLock()
	defer t.lock.RUnlock()

	nodes := make([]*Node, len(t.nodes))
	copy(nodes, t.nodes)

	return nodes
}

// Pairs returns the pairs in connection order.
func (t *Topology) Pairs() []*NodesPair {
	t.lock.RLock()
	defer t.lock.RUnlock()

	pairs := make([]*NodesPair, len(t.pairs))
	copy(pairs, t.pairs)

	return pairs
}

// Connect creates a one-way channel from one registered node to another and
// returns the pair that holds it.
func (t *Topology) Connect(from, to *Node) (*NodesPair, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, n := range []*Node{from, to} {
		if _, found := t.nodeIndex[n.ID()]; !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, n.ID())
		}
	}

	pair := NewNodesPair(from, to, NewOneWayChannel(from, to))
	t.pairs = append(t.pairs, pair)

	return pair, nil
}

// Step runs one delivery round over all pairs, in connection order. For each
// pair, the message in flight is first delivered to the receiving node, then
// the oldest message the sending node has for the receiving node is put in
// flight. A pair only moves messages while its sending node is active, so a
// message in flight stays there while either end is unactive or while the
// receiving node's received buffer is full. Concurrent calls run one after
// another. Step returns true if any message moved.
func (t *Topology) Step() bool {
	t.stepLock.Lock()
	defer t.stepLock.Unlock()

	t.steps.Add(1)

	progress := false

	for _, pair := range t.Pairs() {
		progress = t.deliver(pair) || progress
		progress = t.send(pair) || progress
	}

	return progress
}

// Now returns the number of steps started so far. Hooks invoked during a step
// see that step's number.
func (t *Topology) Now() float64 {
	return float64(t.steps.Load())
}

func (t *Topology) deliver(pair *NodesPair) bool {
	from, to := pair.First(), pair.Second()
	if from.IsUnactive() || to.IsUnactive() ||
		to.ReceivedMessages().IsFilled() {
		return false
	}

	m, err := pair.Channel().Get()
	if err != nil {
		return false
	}

	to.ReceivedMessages().Add(m)
	t.invokeMsgHook(HookPosMsgDelivered, pair, m)

	return true
}

func (t *Topology) send(pair *NodesPair) bool {
	from, to := pair.First(), pair.Second()
	if from.IsUnactive() || pair.Channel().Busy() {
		return false
	}

	for _, m := range from.Buffer().All() {
		if m.Receiver() == nil || m.Receiver().ID() != to.ID() {
			continue
		}

		if !pair.Channel().Add(m) {
			return false
		}

		from.Buffer().Remove(m)
		t.invokeMsgHook(HookPosMsgSent, pair, m)

		return true
	}

	return false
}

func (t *Topology) invokeMsgHook(pos *hooking.HookPos, pair *NodesPair, m Message) {
	if t.NumHooks() == 0 {
		return
	}

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    pos,
		Item:   m,
		Detail: pair,
	})
}
