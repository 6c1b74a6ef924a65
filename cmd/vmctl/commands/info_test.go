package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/mutker/vmctl/internal/api"
)

func TestFormatVMInfo(t *testing.T) {
	out := formatVMInfo(
		api.VMState{
			ID:    "abc123",
			Name:  "ubuntu",
			Path:  "/vms/Virtual Machines/ubuntu/ubuntu.vmx",
			State: "poweredOn",
		},
		api.VMDetails{ID: "abc123", Processors: 2, MemoryMB: 4096},
	)

	assert.Contains(t, out, "Name:        ubuntu")
	assert.Contains(t, out, "ID:          abc123")
	assert.Contains(t, out, "State:       running")
	assert.Contains(t, out, "Processors:  2")
	assert.Contains(t, out, "Memory:      4096 MB")
}

func TestFormatVMInfoOmitsEmptyFields(t *testing.T) {
	out := formatVMInfo(
		api.VMState{ID: "abc123", Name: "ubuntu", State: "poweredOff"},
		api.VMDetails{ID: "abc123"},
	)

	assert.Contains(t, out, "State:       stopped")
	assert.NotContains(t, out, "Path:")
	assert.NotContains(t, out, "Processors:")
	assert.NotContains(t, out, "Memory:")
}
