package history

import (
	"context"
	"time"
)

// EventKind distinguishes what produced a history event.
type EventKind string

const (
	// EventObserved is a state change the poller saw on the hypervisor.
	EventObserved EventKind = "observed"
	// EventCommand is the resolution of a user-issued command.
	EventCommand EventKind = "command"
)

// Event is one row of the session log.
type Event struct {
	Timestamp time.Time
	VMID      string
	VMName    string
	Kind      EventKind
	FromState string
	ToState   string
	Action    string
	Outcome   string
	Detail    string
}

// Recorder defines the core domain interface
type Recorder interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}

// Repository defines the interface for history data storage
type Repository interface {
	Store(ctx context.Context, event *Event) error
	Close() error
}
