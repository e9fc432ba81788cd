package networking

import (
	"fmt"

	"github.com/sarchlab/netsim/sim/id"
)

// NodesPair associates two nodes with the channel from the first to the
// second.
type NodesPair struct {
	id.Base

	first, second *Node
	channel       *OneWayChannel
}

// NewNodesPair creates a pair.
func NewNodesPair(first, second *Node, channel *OneWayChannel) *NodesPair {
	return &NodesPair{
		Base:    id.MakeBase(),
		first:   first,
		second:  second,
		channel: channel,
	}
}

// First returns the sending node.
func (p *NodesPair) First() *Node {
	return p.first
}

// Second returns the receiving node.
func (p *NodesPair) Second() *Node {
	return p.second
}

// Channel returns the channel that connects the nodes.
func (p *NodesPair) Channel() *OneWayChannel {
	return p.channel
}

func (p *NodesPair) String() string {
	return fmt.Sprintf("%s->%s", nodeName(p.first), nodeName(p.second))
}
