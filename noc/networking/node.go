package networking

import (
	"sync/atomic"

	"github.com/sarchlab/netsim/sim/id"
	"github.com/sarchlab/netsim/sim/naming"
	"github.com/sarchlab/netsim/sim/queueing"
)

// A Node owns an outgoing buffer, which producers add messages to, and a
// received buffer, which delivery drains messages into.
//
// Nodes are shared by pointer. Messages, channels and pairs refer to nodes but
// never own them.
type Node struct {
	naming.NamedBase
	id.Base

	outgoing *queueing.Buffer[Message]
	received *queueing.Buffer[Message]
	unactive atomic.Bool
}

// NewNode creates an active node with two empty, unbounded buffers.
func NewNode() *Node {
	return MakeNodeBuilder().Build("Node")
}

// Buffer returns the buffer of messages waiting to be sent.
func (n *Node) Buffer() *queueing.Buffer[Message] {
	return n.outgoing
}

// ReceivedMessages returns the buffer of messages delivered to the node.
func (n *Node) ReceivedMessages() *queueing.Buffer[Message] {
	return n.received
}

// IsUnactive returns true if the node has been switched off.
func (n *Node) IsUnactive() bool {
	return n.unactive.Load()
}

// SetIsUnactive switches the node off (true) or on (false).
func (n *Node) SetIsUnactive(unactive bool) {
	n.unactive.Store(unactive)
}

// Clone returns an independent copy of the node. The copy keeps the ID, so it
// is the same node for equality purposes, but its buffers are deep copies that
// carry no hooks. Mutating one never affects the other, and after mutation two
// nodes with the same ID may hold different contents.
func (n *Node) Clone() *Node {
	clone := &Node{
		NamedBase: n.NamedBase,
		Base:      n.Base,
		outgoing:  n.outgoing.Clone(),
		received:  n.received.Clone(),
	}
	clone.unactive.Store(n.unactive.Load())

	return clone
}

// NodeBuilder can build nodes.
type NodeBuilder struct {
	outgoingCapacity int
	receivedCapacity int
}

// MakeNodeBuilder creates a NodeBuilder for nodes with unbounded buffers.
func MakeNodeBuilder() NodeBuilder {
	return NodeBuilder{
		outgoingCapacity: queueing.Unbounded,
		receivedCapacity: queueing.Unbounded,
	}
}

// WithOutgoingCapacity sets the capacity of the outgoing buffer.
func (b NodeBuilder) WithOutgoingCapacity(capacity int) NodeBuilder {
	b.outgoingCapacity = capacity
	return b
}

// WithReceivedCapacity sets the capacity of the received buffer.
func (b NodeBuilder) WithReceivedCapacity(capacity int) NodeBuilder {
	b.receivedCapacity = capacity
	return b
}

// Build creates an active node with a fresh ID. It panics if a capacity is
// not positive or the name is not valid.
func (b NodeBuilder) Build(name string) *Node {
	return &Node{
		NamedBase: naming.MakeNamedBase(name),
		Base:      id.MakeBase(),
		outgoing: queueing.MakeBufferBuilder[Message]().
			WithCapacity(b.outgoingCapacity).
			Build(naming.BuildName(name, "Outgoing")),
		received: queueing.MakeBufferBuilder[Message]().
			WithCapacity(b.receivedCapacity).
			Build(naming.BuildName(name, "Received")),
	}
}
