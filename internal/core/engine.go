// Package core implements the state synchronization and command dispatch
// engine behind the dashboard: an atomically swapped snapshot store, a
// background poller reconciling it against the hypervisor, and a dispatcher
// executing user commands with optimistic state.
package core

import (
	"context"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/history"
)

// Options carries the validated values the engine receives from the
// configuration layer.
type Options struct {
	PollInterval   time.Duration
	CommandTimeout time.Duration
}

// Engine wires the snapshot store, poller and dispatcher around a shared
// pending set. It is the only surface the renderer and input layer consume.
type Engine struct {
	store      *Store
	poller     *Poller
	dispatcher *Dispatcher
}

func NewEngine(gateway api.Gateway, recorder history.Recorder, opts Options) *Engine {
	store := NewStore()
	pending := newPendingSet()

	return &Engine{
		store:      store,
		poller:     newPoller(gateway, store, pending, recorder, opts.PollInterval),
		dispatcher: newDispatcher(gateway, store, pending, recorder, opts.CommandTimeout),
	}
}

// Run drives the poller until the context is cancelled, then reports any
// commands abandoned in flight.
func (e *Engine) Run(ctx context.Context) {
	e.poller.Run(ctx)
	e.dispatcher.logAbandoned()
}

// Current returns the latest snapshot.
func (e *Engine) Current() *Snapshot {
	return e.store.Current()
}

// Subscribe returns a coalesced signal channel for new snapshots.
func (e *Engine) Subscribe() <-chan struct{} {
	return e.store.Subscribe()
}

// Submit dispatches a power action. See Dispatcher.Submit.
func (e *Engine) Submit(vmID string, action api.PowerAction) (*CommandHandle, error) {
	return e.dispatcher.Submit(vmID, action)
}

// Refresh requests an immediate poll.
func (e *Engine) Refresh() {
	e.poller.Refresh()
}

// Degraded returns the poller's health for display.
func (e *Engine) Degraded() DegradedStatus {
	return e.poller.Degraded()
}

// InFlight returns the number of pending commands.
func (e *Engine) InFlight() int {
	return e.dispatcher.InFlight()
}
