package driver

import (
	"time"

	"borrowinfer/internal/hir"
)

// Status is the state of one function in the schedule.
type Status uint8

const (
	StatusQueued Status = iota
	StatusRunning
	StatusDone
	StatusCached
	StatusFailed
	StatusExtern
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	case StatusExtern:
		return "extern"
	}
	return "unknown"
}

// Finished reports terminal states.
func (s Status) Finished() bool {
	return s >= StatusDone
}

// Event describes one function changing state.
type Event struct {
	Func    hir.FuncID
	Name    string
	Status  Status
	Batch   int
	Elapsed time.Duration
}

// Observer receives progress events from Run. It may be called from
// several goroutines at once.
type Observer func(Event)

func (o Observer) emit(ev Event) {
	if o != nil {
		o(ev)
	}
}
