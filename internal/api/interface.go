package api

import "context"

// PowerAction is a power operation understood by the hypervisor.
type PowerAction string

const (
	ActionStart    PowerAction = "start"
	ActionStop     PowerAction = "stop"
	ActionShutdown PowerAction = "shutdown"
	ActionSuspend  PowerAction = "suspend"
)

// IsValid returns whether the action is one the API can perform
func (a PowerAction) IsValid() bool {
	switch a {
	case ActionStart, ActionStop, ActionShutdown, ActionSuspend:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (a PowerAction) String() string {
	return string(a)
}

// VMState is one entry of the hypervisor's VM inventory with its
// last-fetched power state.
type VMState struct {
	ID    string
	Name  string
	Path  string
	State string
}

// VMDetails carries the per-VM detail endpoint payload.
type VMDetails struct {
	ID         string
	Processors int
	MemoryMB   int
}

// Gateway is the capability the core calls through. Implementations
// perform authenticated calls against the hypervisor REST API.
type Gateway interface {
	// ListVMs returns the full inventory with power states.
	ListVMs(ctx context.Context) ([]VMState, error)

	// GetPowerState returns the power state of a single VM.
	GetPowerState(ctx context.Context, vmID string) (string, error)

	// GetVM returns detailed information about a VM.
	GetVM(ctx context.Context, vmID string) (VMDetails, error)

	// SetPowerState performs a power action and returns the state the
	// API reports afterwards.
	SetPowerState(ctx context.Context, vmID string, action PowerAction) (string, error)
}
