package networking

import (
	"errors"

	"github.com/sarchlab/netsim/sim/queueing"
)

var (
	// ErrInvalidArgument is returned when a message is created with a
	// negative size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyChannel is returned by OneWayChannel.Get when no message is in
	// flight.
	ErrEmptyChannel = errors.New("channel is empty")

	// ErrCapacityViolation is returned when a buffer is copied into a buffer
	// with a smaller capacity.
	ErrCapacityViolation = queueing.ErrCapacityViolation

	// ErrUnknownNode is returned when a topology is asked to use a node that
	// was never added to it.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateNode is returned when the same node is added to a topology
	// twice.
	ErrDuplicateNode = errors.New("node already added")
)
