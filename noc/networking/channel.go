package networking

import (
	"sync/atomic"

	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/sarchlab/netsim/sim/id"
	"github.com/sarchlab/netsim/sim/queueing"
)

// HookPosChannelBusy marks when a channel turns busy.
var HookPosChannelBusy = &hooking.HookPos{Name: "Channel Busy"}

// HookPosChannelFree marks when a channel turns free.
var HookPosChannelFree = &hooking.HookPos{Name: "Channel Free"}

// A Channel observes a buffer and derives a busy state from it.
//
// A channel starts free. It turns busy when an add fills the observed buffer
// and turns free again on any remove or clear of the observed buffer.
// Notifications from other buffers are ignored, which matters because copying
// a buffer also copies the hooks registered on it.
type Channel struct {
	id.Base
	hooking.HookableBase

	observed *queueing.Buffer[Message]
	listener hooking.Hook
	busy     atomic.Bool
}

// NewChannel creates a free channel that observes the buffer.
func NewChannel(observed *queueing.Buffer[Message]) *Channel {
	if observed == nil {
		panic("channel must observe a buffer")
	}

	c := &Channel{
		Base:     id.MakeBase(),
		observed: observed,
	}

	c.listener = observed.AddListener(queueing.ListenerFuncs[Message]{
		Added:   c.bufferAdded,
		Removed: c.bufferRemoved,
		Cleared: c.bufferCleared,
	})

	return c
}

// Busy returns true if the observed buffer has been filled and not drained
// since.
func (c *Channel) Busy() bool {
	return c.busy.Load()
}

// Observed returns the buffer the channel observes.
func (c *Channel) Observed() *queueing.Buffer[Message] {
	return c.observed
}

// Detach stops observing the buffer. The busy state is frozen afterwards.
func (c *Channel) Detach() {
	c.observed.RemoveHook(c.listener)
}

func (c *Channel) bufferAdded(
	buf *queueing.Buffer[Message],
	_ Message,
	event queueing.BufferEvent,
) {
	if buf != c.observed || !event.Filled() {
		return
	}

	c.setBusy(true)
}

func (c *Channel) bufferRemoved(
	buf *queueing.Buffer[Message],
	_ Message,
	_ queueing.BufferEvent,
) {
	if buf != c.observed {
		return
	}

	c.setBusy(false)
}

func (c *Channel) bufferCleared(
	buf *queueing.Buffer[Message],
	_ queueing.BufferEvent,
) {
	if buf != c.observed {
		return
	}

	c.setBusy(false)
}

func (c *Channel) setBusy(busy bool) {
	if !c.busy.CompareAndSwap(!busy, busy) {
		return
	}

	if c.NumHooks() == 0 {
		return
	}

	pos := HookPosChannelFree
	if busy {
		pos = HookPosChannelBusy
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
	})
}
