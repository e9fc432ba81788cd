package hooking

import (
	"sync"

	"github.com/sarchlab/netsim/sim/id"
)

// A TimeTeller can tell the current time.
type TimeTeller interface {
	Now() float64
}

// A KeyFunc tells which interval a hook invocation starts or ends. Keys must
// be comparable.
type KeyFunc func(ctx HookCtx) any

// KeyByDomain tracks one interval per domain.
func KeyByDomain(ctx HookCtx) any {
	return ctx.Domain
}

// KeyByItemID tracks one interval per item identity. Items that are not
// identifiable are keyed by themselves.
func KeyByItemID(ctx HookCtx) any {
	if item, ok := ctx.Item.(id.Identifiable); ok {
		return item.ID()
	}

	return ctx.Item
}

// An interval is opened by a hook invocation at the start position and closed
// by an invocation at the end position with the same key.
type interval struct {
	timeTeller TimeTeller
	start, end *HookPos
	key        KeyFunc
}

func (i interval) classify(ctx HookCtx) (key any, starting, ending bool) {
	switch ctx.Pos {
	case i.start:
		return i.key(ctx), true, false
	case i.end:
		return i.key(ctx), false, true
	default:
		return nil, false, false
	}
}

// TotalAvgTimeTracer collects the total and average length of intervals. If
// two intervals overlap, both lengths are added.
type TotalAvgTimeTracer struct {
	interval

	lock      sync.Mutex
	inflight  map[any]float64
	totalTime float64
	count     uint64
}

// NewAverageTimeTracer creates a TotalAvgTimeTracer for intervals between the
// start and end positions.
func NewAverageTimeTracer(
	timeTeller TimeTeller,
	start, end *HookPos,
	key KeyFunc,
) *TotalAvgTimeTracer {
	return &TotalAvgTimeTracer{
		interval: interval{
			timeTeller: timeTeller,
			start:      start,
			end:        end,
			key:        key,
		},
		inflight: make(map[any]float64),
	}
}

// Func opens or closes an interval.
func (t *TotalAvgTimeTracer) Func(ctx HookCtx) {
	key, starting, ending := t.classify(ctx)
	if !starting && !ending {
		return
	}

	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	if starting {
		if _, open := t.inflight[key]; !open {
			t.inflight[key] = now
		}

		return
	}

	startTime, open := t.inflight[key]
	if !open {
		return
	}

	t.totalTime += now - startTime
	t.count++

	delete(t.inflight, key)
}

// TotalTime returns the summed length of the closed intervals.
func (t *TotalAvgTimeTracer) TotalTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// AverageTime returns the average length of the closed intervals, or 0 if no
// interval has closed.
func (t *TotalAvgTimeTracer) AverageTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.count == 0 {
		return 0
	}

	return t.totalTime / float64(t.count)
}

// TotalCount returns the number of closed intervals.
func (t *TotalAvgTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// InflightCount returns the number of open intervals.
func (t *TotalAvgTimeTracer) InflightCount() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflight)
}

// BusyTimeTracer collects the time during which at least one interval is
// open. Overlapping intervals are counted once.
type BusyTimeTracer struct {
	interval

	lock      sync.Mutex
	open      map[any]bool
	busySince float64
	busyTime  float64
}

// NewBusyTimeTracer creates a BusyTimeTracer for intervals between the start
// and end positions.
func NewBusyTimeTracer(
	timeTeller TimeTeller,
	start, end *HookPos,
	key KeyFunc,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		interval: interval{
			timeTeller: timeTeller,
			start:      start,
			end:        end,
			key:        key,
		},
		open: make(map[any]bool),
	}
}

// Func opens or closes an interval.
func (t *BusyTimeTracer) Func(ctx HookCtx) {
	key, starting, ending := t.classify(ctx)
	if !starting && !ending {
		return
	}

	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	switch {
	case starting && !t.open[key]:
		if len(t.open) == 0 {
			t.busySince = now
		}

		t.open[key] = true
	case ending && t.open[key]:
		delete(t.open, key)

		if len(t.open) == 0 {
			t.busyTime += now - t.busySince
		}
	}
}

// BusyTime returns the busy time of the intervals that have closed.
func (t *BusyTimeTracer) BusyTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.busyTime
}

// TerminateAll closes all the open intervals at the current time.
func (t *BusyTimeTracer) TerminateAll() {
	now := t.timeTeller.Now()

	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.open) == 0 {
		return
	}

	t.busyTime += now - t.busySince
	t.open = make(map[any]bool)
}
