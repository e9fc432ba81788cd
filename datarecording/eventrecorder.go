package datarecording

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/sarchlab/netsim/sim/hooking"
	"github.com/sarchlab/netsim/sim/id"
	"github.com/sarchlab/netsim/sim/naming"
	"github.com/sarchlab/netsim/sim/queueing"
)

// EventTable is the table the EventRecorder writes to.
const EventTable = "netsim_events"

// EventEntry is one recorded hook invocation.
type EventEntry struct {
	Seq      uint64
	Pos      string
	Domain   string
	DomainID string
	Item     string
	ItemID   string
	Count    int
	Capacity int
}

// EventRecorder is a hook that records every invocation into a DataRecorder.
// It can be registered on buffers, channels, and topologies.
type EventRecorder struct {
	recorder DataRecorder
	seq      uint64
}

// NewEventRecorder creates the event table and returns a hook that fills it.
func NewEventRecorder(recorder DataRecorder) (*EventRecorder, error) {
	if err := recorder.CreateTable(EventTable, EventEntry{}); err != nil {
		return nil, err
	}

	return &EventRecorder{recorder: recorder}, nil
}

// Func records the invocation.
func (r *EventRecorder) Func(ctx hooking.HookCtx) {
	entry := EventEntry{
		Seq: atomic.AddUint64(&r.seq, 1),
		Pos: ctx.Pos.Name,
	}

	if named, ok := ctx.Domain.(naming.Named); ok {
		entry.Domain = named.Name()
	}

	if identified, ok := ctx.Domain.(id.Identifiable); ok {
		entry.DomainID = identified.ID().String()
	}

	if ctx.Item != nil {
		entry.Item = fmt.Sprint(ctx.Item)
	}

	if identified, ok := ctx.Item.(id.Identifiable); ok {
		entry.ItemID = identified.ID().String()
	}

	if event, ok := ctx.Detail.(queueing.BufferEvent); ok {
		entry.Count = event.Count
		entry.Capacity = event.Capacity
	}

	if err := r.recorder.InsertData(EventTable, entry); err != nil {
		log.Panic(err)
	}
}
