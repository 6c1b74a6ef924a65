package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
)

func TestParsePowerState(t *testing.T) {
	assert.Equal(t, core.StateRunning, core.ParsePowerState("poweredOn"))
	assert.Equal(t, core.StateStopped, core.ParsePowerState("poweredOff"))
	assert.Equal(t, core.StateSuspended, core.ParsePowerState("suspended"))
	assert.Equal(t, core.StateRunning, core.ParsePowerState("ON"))
	assert.Equal(t, core.StateUnknown, core.ParsePowerState("weird"))
	assert.Equal(t, core.StateUnknown, core.ParsePowerState(""))
}

func TestTargetState(t *testing.T) {
	assert.Equal(t, core.StateRunning, core.TargetState(api.ActionStart))
	assert.Equal(t, core.StateStopped, core.TargetState(api.ActionStop))
	assert.Equal(t, core.StateStopped, core.TargetState(api.ActionShutdown))
	assert.Equal(t, core.StateSuspended, core.TargetState(api.ActionSuspend))
}

func TestCanTransition(t *testing.T) {
	// Running VMs accept everything except another start.
	assert.False(t, core.CanTransition(core.StateRunning, api.ActionStart))
	assert.True(t, core.CanTransition(core.StateRunning, api.ActionStop))
	assert.True(t, core.CanTransition(core.StateRunning, api.ActionShutdown))
	assert.True(t, core.CanTransition(core.StateRunning, api.ActionSuspend))

	// Stopped VMs only start.
	assert.True(t, core.CanTransition(core.StateStopped, api.ActionStart))
	assert.False(t, core.CanTransition(core.StateStopped, api.ActionStop))
	assert.False(t, core.CanTransition(core.StateStopped, api.ActionSuspend))

	// Suspended VMs resume or hard stop.
	assert.True(t, core.CanTransition(core.StateSuspended, api.ActionStart))
	assert.True(t, core.CanTransition(core.StateSuspended, api.ActionStop))
	assert.False(t, core.CanTransition(core.StateSuspended, api.ActionShutdown))

	// A VM with a command in flight accepts nothing.
	assert.False(t, core.CanTransition(core.StateTransitioning, api.ActionStart))
	assert.False(t, core.CanTransition(core.StateTransitioning, api.ActionStop))

	// Unknown defers to the hypervisor.
	assert.True(t, core.CanTransition(core.StateUnknown, api.ActionStart))
	assert.True(t, core.CanTransition(core.StateUnknown, api.ActionSuspend))

	// Invalid actions are rejected everywhere.
	assert.False(t, core.CanTransition(core.StateRunning, api.PowerAction("reboot")))
}
