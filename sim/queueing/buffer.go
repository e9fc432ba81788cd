// Package queueing provides the bounded buffer that nodes and channels keep
// their messages in.
package queueing

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"

	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/sarchlab/netsim/sim/id"
	"github.com/sarchlab/netsim/sim/naming"
)

// HookPosBufAdd marks when an element is added to the buffer.
var HookPosBufAdd = &hooking.HookPos{Name: "Buffer Add"}

// HookPosBufRemove marks when an element is removed from the buffer.
var HookPosBufRemove = &hooking.HookPos{Name: "Buffer Remove"}

// HookPosBufClear marks when the buffer is cleared.
var HookPosBufClear = &hooking.HookPos{Name: "Buffer Clear"}

// Unbounded is the capacity of a buffer that never fills up in practice.
const Unbounded = math.MaxInt

var (
	// ErrInvalidCapacity is returned when a buffer is built with a capacity
	// that is not positive.
	ErrInvalidCapacity = errors.New("buffer capacity must be positive")

	// ErrCapacityViolation is returned when a buffer is copied into a buffer
	// that declares a smaller capacity.
	ErrCapacityViolation = errors.New("buffer capacity violation")
)

// BufferEvent is the snapshot of a buffer taken right after the mutation that
// triggered a notification. It is passed as the Detail of every HookCtx.
type BufferEvent struct {
	Count    int
	Capacity int
}

// Filled returns true if the buffer was full after the mutation.
func (e BufferEvent) Filled() bool {
	return e.Count >= e.Capacity
}

func (e BufferEvent) String() string {
	if e.Capacity == Unbounded {
		return fmt.Sprintf("count=%d capacity=unbounded", e.Count)
	}

	return fmt.Sprintf("count=%d capacity=%d", e.Count, e.Capacity)
}

// A Buffer is an ordered container that holds at most Capacity elements.
//
// Adding to a full buffer drops the element silently. Every successful add,
// every successful remove, and every clear notifies the hooks registered on the
// buffer, in registration order, while the buffer lock is held. Hooks must
// therefore not call back into the buffer that notifies them; the BufferEvent
// in HookCtx.Detail carries the state they need.
type Buffer[T id.Identifiable] struct {
	naming.NamedBase
	id.Base

	lock     sync.Mutex
	hooks    hooking.HookableBase
	capacity int
	elements []T
}

// NewBuffer creates an empty buffer. It panics if the name is not valid and
// returns ErrInvalidCapacity if the capacity is not positive.
func NewBuffer[T id.Identifiable](name string, capacity int) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: buffer %s, capacity %d",
			ErrInvalidCapacity, name, capacity)
	}

	return &Buffer[T]{
		NamedBase: naming.MakeNamedBase(name),
		Base:      id.MakeBase(),
		capacity:  capacity,
	}, nil
}

// Capacity returns the maximum number of elements the buffer can hold.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Add appends an element at the end of the buffer. If the buffer is full, the
// element is dropped, no hook is invoked, and Add returns false.
func (b *Buffer[T]) Add(e T) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.elements) >= b.capacity {
		return false
	}

	b.elements = append(b.elements, e)
	b.invokeHook(HookPosBufAdd, e)

	return true
}

// Remove removes the first element that has the same ID as e and passes the
// stored element to the hooks. If there is no such element, nothing happens
// and Remove returns false.
func (b *Buffer[T]) Remove(e T) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	i := b.indexOf(e)
	if i < 0 {
		return false
	}

	removed := b.elements[i]
	b.elements = slices.Delete(b.elements, i, i+1)
	b.invokeHook(HookPosBufRemove, removed)

	return true
}

// TakeFront removes the oldest element and returns it. The read and the
// removal happen under one lock, and the remove hook is invoked as for Remove.
// If the buffer is empty, nothing happens and TakeFront returns false.
func (b *Buffer[T]) TakeFront() (T, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.elements) == 0 {
		var zero T
		return zero, false
	}

	front := b.elements[0]
	b.elements = slices.Delete(b.elements, 0, 1)
	b.invokeHook(HookPosBufRemove, front)

	return front, true
}

// Clear removes all the elements. The clear hook is invoked even if the buffer
// was already empty.
func (b *Buffer[T]) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.elements = nil
	b.invokeHook(HookPosBufClear, nil)
}

func (b *Buffer[T]) invokeHook(pos *hooking.HookPos, item interface{}) {
	if b.hooks.NumHooks() == 0 {
		return
	}

	b.hooks.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   item,
		Detail: BufferEvent{Count: len(b.elements), Capacity: b.capacity},
	})
}

// Contains returns true if an element with the same ID as e is in the buffer.
func (b *Buffer[T]) Contains(e T) bool {
	return b.IndexOf(e) >= 0
}

// IndexOf returns the position of the first element with the same ID as e, or
// -1 if there is none.
func (b *Buffer[T]) IndexOf(e T) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.indexOf(e)
}

func (b *Buffer[T]) indexOf(e T) int {
	return slices.IndexFunc(b.elements, func(x T) bool {
		return x.ID() == e.ID()
	})
}

// Count returns the number of elements in the buffer.
func (b *Buffer[T]) Count() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.elements)
}

// IsFilled returns true if the buffer holds as many elements as its capacity.
func (b *Buffer[T]) IsFilled() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.elements) >= b.capacity
}

// At returns the element at position i. It panics if i is out of range.
func (b *Buffer[T]) At(i int) T {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.elements[i]
}

// Front returns the oldest element, if any.
func (b *Buffer[T]) Front() (T, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.elements) == 0 {
		var zero T
		return zero, false
	}

	return b.elements[0], true
}

// Items returns a copy of the elements, oldest first.
func (b *Buffer[T]) Items() []T {
	b.lock.Lock()
	defer b.lock.Unlock()

	return slices.Clone(b.elements)
}

// All iterates over a snapshot of the elements, oldest first.
func (b *Buffer[T]) All() iter.Seq2[int, T] {
	return slices.All(b.Items())
}

// AcceptHook registers a hook.
func (b *Buffer[T]) AcceptHook(hook hooking.Hook) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.hooks.AcceptHook(hook)
}

// RemoveHook unregisters the first registration of the hook.
func (b *Buffer[T]) RemoveHook(hook hooking.Hook) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.hooks.RemoveHook(hook)
}

// NumHooks returns the number of hooks registered.
func (b *Buffer[T]) NumHooks() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.hooks.NumHooks()
}

// Hooks returns the registered hooks in registration order.
func (b *Buffer[T]) Hooks() []hooking.Hook {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.hooks.Hooks()
}

// Clone returns a new buffer with a fresh ID, the same name and capacity, and
// the same elements. Hooks are not carried over.
func (b *Buffer[T]) Clone() *Buffer[T] {
	b.lock.Lock()
	defer b.lock.Unlock()

	return &Buffer[T]{
		NamedBase: b.NamedBase,
		Base:      id.MakeBase(),
		capacity:  b.capacity,
		elements:  slices.Clone(b.elements),
	}
}

// CopyTo replaces the elements and the hooks of dst with those of b. The copy
// is rejected with ErrCapacityViolation, leaving dst untouched, if dst
// declares a smaller capacity than b. No hook is invoked.
func (b *Buffer[T]) CopyTo(dst *Buffer[T]) error {
	if dst == b {
		return nil
	}

	if dst.capacity < b.capacity {
		return fmt.Errorf("%w: cannot copy %s (capacity %d) into %s (capacity %d)",
			ErrCapacityViolation, b.Name(), b.capacity, dst.Name(), dst.capacity)
	}

	b.lock.Lock()
	elements := slices.Clone(b.elements)
	hooks := b.hooks.Hooks()
	b.lock.Unlock()

	dst.lock.Lock()
	defer dst.lock.Unlock()

	dst.elements = elements
	dst.hooks.ReplaceHooks(hooks)

	return nil
}
