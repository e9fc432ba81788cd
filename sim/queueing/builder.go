package queueing

import (
	"log"

	"github.com/sarchlab/netsim/sim/id"
)

// BufferBuilder is a builder for Buffer.
type BufferBuilder[T id.Identifiable] struct {
	capacity int
}

// MakeBufferBuilder creates a BufferBuilder for unbounded buffers.
func MakeBufferBuilder[T id.Identifiable]() BufferBuilder[T] {
	return BufferBuilder[T]{capacity: Unbounded}
}

// WithCapacity defines the capacity of the buffer.
func (b BufferBuilder[T]) WithCapacity(capacity int) BufferBuilder[T] {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer. It panics if the capacity is not positive.
func (b BufferBuilder[T]) Build(name string) *Buffer[T] {
	buf, err := NewBuffer[T](name, b.capacity)
	if err != nil {
		log.Panic(err)
	}

	return buf
}
