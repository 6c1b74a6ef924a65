package core

import (
	"context"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/errors"
	"codeberg.org/mutker/vmctl/internal/history"
	"codeberg.org/mutker/vmctl/internal/logger"
	"github.com/google/uuid"
)

// CommandHandle identifies an accepted command to the caller.
type CommandHandle struct {
	ID     uuid.UUID
	VMID   string
	Action api.PowerAction
}

// Dispatcher validates user intents against the current snapshot, applies
// the optimistic transitioning state, and reconciles the gateway's answer
// back into the store.
type Dispatcher struct {
	gateway  api.Gateway
	store    *Store
	pending  *pendingSet
	recorder history.Recorder
	timeout  time.Duration
}

func newDispatcher(gateway api.Gateway, store *Store, pending *pendingSet, recorder history.Recorder, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		gateway:  gateway,
		store:    store,
		pending:  pending,
		recorder: recorder,
		timeout:  timeout,
	}
}

// Submit validates and dispatches a power action for a VM. Precondition
// violations are returned synchronously, before any network call, so the
// input layer can give immediate feedback. On acceptance the VM is shown as
// transitioning at once and the gateway call runs asynchronously.
func (d *Dispatcher) Submit(vmID string, action api.PowerAction) (*CommandHandle, error) {
	errFactory := errors.New()

	vm, ok := d.store.Current().Get(vmID)
	if !ok {
		return nil, errFactory.WithData(ErrUnknownVM, vmID)
	}

	if vm.State == StateTransitioning || d.pending.has(vmID) {
		return nil, errFactory.WithData(ErrAlreadyInFlight, vmID)
	}

	if !CanTransition(vm.State, action) {
		return nil, errFactory.WithMessage(ErrInvalidTransition,
			"cannot "+action.String()+" a "+vm.State.String()+" VM")
	}

	cmd := newCommand(vmID, action, vm.State)
	if !d.pending.add(cmd) {
		// Lost a race with a concurrent submission for the same VM.
		return nil, errFactory.WithData(ErrAlreadyInFlight, vmID)
	}

	// Optimistic publish: the renderer sees the transition before the
	// network call returns.
	d.store.Update(func(records map[string]VM) {
		if record, exists := records[vmID]; exists {
			record.State = StateTransitioning
			record.LastError = ""
			records[vmID] = record
		}
	})

	logger.Info().
		Str("command_id", cmd.ID.String()).
		Str("vm", vm.Name).
		Str("action", action.String()).
		Msg("Command accepted")

	go d.execute(cmd)

	return &CommandHandle{ID: cmd.ID, VMID: cmd.VMID, Action: cmd.Action}, nil
}

// InFlight returns the number of pending commands.
func (d *Dispatcher) InFlight() int {
	return d.pending.len()
}

// logAbandoned reports every command still in flight at shutdown. They are
// abandoned, not awaited; their goroutines die with the process.
func (d *Dispatcher) logAbandoned() {
	for _, cmd := range d.pending.snapshot() {
		logger.Warn().
			Str("command_id", cmd.ID.String()).
			Str("vm_id", cmd.VMID).
			Str("action", cmd.Action.String()).
			Msg("Command still in flight at shutdown, abandoned")
	}
}

// execute runs the gateway call off the caller's goroutine. The command is
// force-resolved as timed out if no response arrives in time; the idempotent
// resolve in the pending set makes the timeout/late-response race harmless.
// Commands in flight at shutdown are abandoned, not awaited.
func (d *Dispatcher) execute(cmd *Command) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	timer := time.AfterFunc(d.timeout, func() {
		d.resolveFailure(cmd, ErrCommandTimeout, "command timed out")
	})
	defer timer.Stop()

	reported, err := d.gateway.SetPowerState(ctx, cmd.VMID, cmd.Action)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			d.resolveFailure(cmd, ErrCommandTimeout, "command timed out")
		case api.IsNotFound(err):
			d.resolveFailure(cmd, ErrUnknownVM, err.Error())
		default:
			d.resolveFailure(cmd, ErrAPIFailure, err.Error())
		}
		return
	}

	d.resolveSuccess(cmd, reported)
}

func (d *Dispatcher) resolveSuccess(cmd *Command, reported string) {
	if !d.pending.resolve(cmd) {
		return
	}

	// A 204 reports no state; trust the action's target until the next
	// poll confirms.
	state := TargetState(cmd.Action)
	if reported != "" {
		state = ParsePowerState(reported)
	}

	now := time.Now()
	d.store.Update(func(records map[string]VM) {
		if record, exists := records[cmd.VMID]; exists {
			record.State = state
			record.LastSeen = now
			record.LastError = ""
			records[cmd.VMID] = record
		}
	})

	logger.Info().
		Str("command_id", cmd.ID.String()).
		Str("vm_id", cmd.VMID).
		Str("state", state.String()).
		Msg("Command succeeded")

	d.recordOutcome(cmd, state, "success", "")
}

func (d *Dispatcher) resolveFailure(cmd *Command, code errors.ErrorCode, detail string) {
	if !d.pending.resolve(cmd) {
		return
	}

	d.store.Update(func(records map[string]VM) {
		if record, exists := records[cmd.VMID]; exists {
			record.State = cmd.PrevState
			record.LastError = string(code)
			records[cmd.VMID] = record
		}
	})

	logger.Warn().
		Str("command_id", cmd.ID.String()).
		Str("vm_id", cmd.VMID).
		Str("action", cmd.Action.String()).
		Str("error_code", string(code)).
		Str("detail", detail).
		Msg("Command failed, reverting optimistic state")

	outcome := "failure"
	if code == ErrCommandTimeout {
		outcome = "timeout"
	}
	d.recordOutcome(cmd, cmd.PrevState, outcome, detail)
}

func (d *Dispatcher) recordOutcome(cmd *Command, state PowerState, outcome, detail string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := d.recorder.Record(ctx, &history.Event{
		Timestamp: time.Now(),
		VMID:      cmd.VMID,
		Kind:      history.EventCommand,
		FromState: cmd.PrevState.String(),
		ToState:   state.String(),
		Action:    cmd.Action.String(),
		Outcome:   outcome,
		Detail:    detail,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record command outcome")
	}
}
