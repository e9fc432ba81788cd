package hooking

import "sync"

// EventCounter counts hook invocations by position.
type EventCounter struct {
	lock   sync.Mutex
	counts map[*HookPos]uint64
}

// NewEventCounter creates an EventCounter.
func NewEventCounter() *EventCounter {
	return &EventCounter{
		counts: make(map[*HookPos]uint64),
	}
}

// Func counts the invocation.
func (c *EventCounter) Func(ctx HookCtx) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts[ctx.Pos]++
}

// Count returns how many times hooks at the position have been invoked.
func (c *EventCounter) Count(pos *HookPos) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[pos]
}

// Reset sets all counts back to zero.
func (c *EventCounter) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts = make(map[*HookPos]uint64)
}
