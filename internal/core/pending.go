package core

import (
	"sync"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"github.com/google/uuid"
)

// Command is one in-flight user intent. It lives in the pending set from
// acceptance until its single resolution.
type Command struct {
	ID        uuid.UUID
	VMID      string
	Action    api.PowerAction
	PrevState PowerState
	IssuedAt  time.Time

	resolved bool // guarded by the owning set's mutex
}

func newCommand(vmID string, action api.PowerAction, prev PowerState) *Command {
	return &Command{
		ID:        uuid.New(),
		VMID:      vmID,
		Action:    action,
		PrevState: prev,
		IssuedAt:  time.Now(),
	}
}

// pendingSet enforces the one-in-flight-command-per-VM invariant and makes
// command resolution idempotent: a timeout and a late API response racing to
// resolve the same command resolve it exactly once.
type pendingSet struct {
	mu       sync.Mutex
	commands map[string]*Command
}

func newPendingSet() *pendingSet {
	return &pendingSet{commands: map[string]*Command{}}
}

// add reserves the VM's slot. Returns false when a command is already in
// flight for the VM.
func (p *pendingSet) add(cmd *Command) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.commands[cmd.VMID]; exists {
		return false
	}
	p.commands[cmd.VMID] = cmd

	return true
}

// has reports whether a command is in flight for the VM.
func (p *pendingSet) has(vmID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, exists := p.commands[vmID]

	return exists
}

// resolve marks the command resolved and frees its slot. Returns true only
// for the first resolution; later attempts are no-ops.
func (p *pendingSet) resolve(cmd *Command) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cmd.resolved {
		return false
	}
	cmd.resolved = true

	if current, exists := p.commands[cmd.VMID]; exists && current == cmd {
		delete(p.commands, cmd.VMID)
	}

	return true
}

// snapshot returns the in-flight commands, for shutdown reporting.
func (p *pendingSet) snapshot() []*Command {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Command, 0, len(p.commands))
	for _, cmd := range p.commands {
		out = append(out, cmd)
	}

	return out
}

// len returns the number of in-flight commands.
func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.commands)
}
