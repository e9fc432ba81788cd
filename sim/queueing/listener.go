package queueing

import (
	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/sarchlab/netsim/sim/id"
)

// Listener receives the typed notifications of a buffer.
type Listener[T id.Identifiable] interface {
	OnAdd(buf *Buffer[T], item T, event BufferEvent)
	OnRemove(buf *Buffer[T], item T, event BufferEvent)
	OnClear(buf *Buffer[T], event BufferEvent)
}

// ListenerFuncs is a Listener made of plain functions. Nil functions are
// skipped.
type ListenerFuncs[T id.Identifiable] struct {
	Added   func(buf *Buffer[T], item T, event BufferEvent)
	Removed func(buf *Buffer[T], item T, event BufferEvent)
	Cleared func(buf *Buffer[T], event BufferEvent)
}

// OnAdd calls Added.
func (l ListenerFuncs[T]) OnAdd(buf *Buffer[T], item T, event BufferEvent) {
	if l.Added != nil {
		l.Added(buf, item, event)
	}
}

// OnRemove calls Removed.
func (l ListenerFuncs[T]) OnRemove(buf *Buffer[T], item T, event BufferEvent) {
	if l.Removed != nil {
		l.Removed(buf, item, event)
	}
}

// OnClear calls Cleared.
func (l ListenerFuncs[T]) OnClear(buf *Buffer[T], event BufferEvent) {
	if l.Cleared != nil {
		l.Cleared(buf, event)
	}
}

type listenerHook[T id.Identifiable] struct {
	listener Listener[T]
}

func (h *listenerHook[T]) Func(ctx hooking.HookCtx) {
	buf, ok := ctx.Domain.(*Buffer[T])
	if !ok {
		return
	}

	event := ctx.Detail.(BufferEvent)

	switch ctx.Pos {
	case HookPosBufAdd:
		h.listener.OnAdd(buf, ctx.Item.(T), event)
	case HookPosBufRemove:
		h.listener.OnRemove(buf, ctx.Item.(T), event)
	case HookPosBufClear:
		h.listener.OnClear(buf, event)
	}
}

// AddListener registers the listener and returns the hook that carries it.
// Passing the returned hook to RemoveHook unregisters the listener.
func (b *Buffer[T]) AddListener(l Listener[T]) hooking.Hook {
	h := &listenerHook[T]{listener: l}
	b.AcceptHook(h)

	return h
}
