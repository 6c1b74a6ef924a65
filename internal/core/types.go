package core

import (
	"strings"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
)

// PowerState is the dashboard's view of a VM's power state.
type PowerState string

const (
	StateRunning       PowerState = "running"
	StateStopped       PowerState = "stopped"
	StateSuspended     PowerState = "suspended"
	StateUnknown       PowerState = "unknown"
	StateTransitioning PowerState = "transitioning"
)

// String implements the Stringer interface
func (s PowerState) String() string {
	return string(s)
}

// ParsePowerState maps the API's power state strings onto the dashboard's
// states. Anything unrecognized is reported as unknown rather than dropped.
func ParsePowerState(raw string) PowerState {
	switch strings.ToLower(raw) {
	case "poweredon", "on", "running":
		return StateRunning
	case "poweredoff", "off", "stopped":
		return StateStopped
	case "suspended":
		return StateSuspended
	default:
		return StateUnknown
	}
}

// VM is the record the snapshot store owns for a single machine.
type VM struct {
	ID        string
	Name      string
	State     PowerState
	LastSeen  time.Time
	LastError string
}

// TargetState returns the terminal state a successful action leads to.
func TargetState(action api.PowerAction) PowerState {
	switch action {
	case api.ActionStart:
		return StateRunning
	case api.ActionStop, api.ActionShutdown:
		return StateStopped
	case api.ActionSuspend:
		return StateSuspended
	default:
		return StateUnknown
	}
}

// CanTransition reports whether the action is a valid transition from the
// given state. An unknown state accepts any action; the hypervisor is the
// judge when we have nothing better.
func CanTransition(from PowerState, action api.PowerAction) bool {
	if !action.IsValid() {
		return false
	}

	switch from {
	case StateUnknown:
		return true
	case StateTransitioning:
		return false
	case StateRunning:
		return action == api.ActionStop || action == api.ActionShutdown || action == api.ActionSuspend
	case StateStopped:
		return action == api.ActionStart
	case StateSuspended:
		return action == api.ActionStart || action == api.ActionStop
	default:
		return false
	}
}
