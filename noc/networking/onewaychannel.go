package networking

import (
	"fmt"

	"github.com/sarchlab/netsim/sim/naming"
	"github.com/sarchlab/netsim/sim/queueing"
)

// A OneWayChannel carries at most one message at a time from one node to
// another. It is busy while a message is in flight.
type OneWayChannel struct {
	*Channel

	from, to *Node
	inFlight *queueing.Buffer[Message]
}

// NewOneWayChannel creates a free channel from one node to another.
func NewOneWayChannel(from, to *Node) *OneWayChannel {
	inFlight := queueing.MakeBufferBuilder[Message]().
		WithCapacity(1).
		Build(naming.BuildName("OneWayChannel", "InFlight"))

	return &OneWayChannel{
		Channel:  NewChannel(inFlight),
		from:     from,
		to:       to,
		inFlight: inFlight,
	}
}

// From returns the sending end of the channel.
func (c *OneWayChannel) From() *Node {
	return c.from
}

// To returns the receiving end of the channel.
func (c *OneWayChannel) To() *Node {
	return c.to
}

// Add puts the message in flight. If a message is already in flight, the new
// one is dropped and Add returns false.
func (c *OneWayChannel) Add(m Message) bool {
	return c.inFlight.Add(m)
}

// Current returns the message in flight, if any, without consuming it.
func (c *OneWayChannel) Current() (Message, bool) {
	return c.inFlight.Front()
}

// Get consumes and returns the message in flight, freeing the channel. Only
// the returned message leaves the channel. It returns ErrEmptyChannel if no
// message is in flight.
func (c *OneWayChannel) Get() (Message, error) {
	m, ok := c.inFlight.TakeFront()
	if !ok {
		return Message{}, fmt.Errorf("%w: nothing in flight from %s to %s",
			ErrEmptyChannel, nodeName(c.from), nodeName(c.to))
	}

	return m, nil
}
