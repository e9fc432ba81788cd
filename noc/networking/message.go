// Package networking models nodes that exchange size-tagged messages through
// bounded buffers and the channels that connect them.
package networking

import (
	"fmt"

	"github.com/sarchlab/netsim/sim/id"
)

// A Message describes the transfer of Size bytes from a sender node to a
// receiver node. Messages are immutable values. Copies keep the ID and point
// to the same sender and receiver, so a copy is equal to its original.
type Message struct {
	id.Base

	size     int
	sender   *Node
	receiver *Node
}

// NewMessage creates a message with a fresh ID. It returns ErrInvalidArgument
// if size is negative.
func NewMessage(size int, sender, receiver *Node) (Message, error) {
	if size < 0 {
		return Message{}, fmt.Errorf("%w: message size %d is negative",
			ErrInvalidArgument, size)
	}

	return Message{
		Base:     id.MakeBase(),
		size:     size,
		sender:   sender,
		receiver: receiver,
	}, nil
}

// Size returns the number of bytes the message transfers.
func (m Message) Size() int {
	return m.size
}

// Sender returns the node that sends the message.
func (m Message) Sender() *Node {
	return m.sender
}

// Receiver returns the node the message is addressed to.
func (m Message) Receiver() *Node {
	return m.receiver
}

// Equal returns true if both messages have the same ID.
func (m Message) Equal(other Message) bool {
	return m.ID() == other.ID()
}

func (m Message) String() string {
	return fmt.Sprintf("Msg[%s](%dB %s->%s)",
		m.ID(), m.size, nodeName(m.sender), nodeName(m.receiver))
}

func nodeName(n *Node) string {
	if n == nil {
		return "nil"
	}

	return n.Name()
}

// MessageBuilder can build messages.
type MessageBuilder struct {
	size             int
	sender, receiver *Node
}

// MakeMessageBuilder creates a MessageBuilder.
func MakeMessageBuilder() MessageBuilder {
	return MessageBuilder{}
}

// WithSize sets the number of bytes of the message.
func (b MessageBuilder) WithSize(size int) MessageBuilder {
	b.size = size
	return b
}

// WithSender sets the sender of the message.
func (b MessageBuilder) WithSender(sender *Node) MessageBuilder {
	b.sender = sender
	return b
}

// WithReceiver sets the receiver of the message.
func (b MessageBuilder) WithReceiver(receiver *Node) MessageBuilder {
	b.receiver = receiver
	return b
}

// Build creates the message.
func (b MessageBuilder) Build() (Message, error) {
	return NewMessage(b.size, b.sender, b.receiver)
}
