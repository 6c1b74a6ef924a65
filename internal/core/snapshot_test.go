package core_test

import (
	"sync"
	"testing"

	"codeberg.org/mutker/vmctl/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReplace(t *testing.T) {
	store := core.NewStore()

	initial := store.Current()
	assert.Equal(t, uint64(0), initial.Version())
	assert.Equal(t, 0, initial.Len())

	snap := store.Replace(map[string]core.VM{
		"vm1": {ID: "vm1", Name: "ubuntu", State: core.StateRunning},
	})

	assert.Equal(t, uint64(1), snap.Version())
	vm, ok := snap.Get("vm1")
	require.True(t, ok)
	assert.Equal(t, core.StateRunning, vm.State)

	// The previously held snapshot is unaffected by the publish.
	assert.Equal(t, 0, initial.Len())
}

func TestStoreVersionMonotonic(t *testing.T) {
	store := core.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Update(func(records map[string]core.VM) {
					records["vm1"] = core.VM{ID: "vm1", State: core.StateRunning}
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(500), store.Current().Version(),
		"every publish increments the version exactly once")
}

func TestStoreUpdateAppliesOnLatest(t *testing.T) {
	store := core.NewStore()
	store.Replace(map[string]core.VM{
		"vm1": {ID: "vm1", State: core.StateRunning},
		"vm2": {ID: "vm2", State: core.StateStopped},
	})

	store.Update(func(records map[string]core.VM) {
		record := records["vm1"]
		record.State = core.StateTransitioning
		records["vm1"] = record
	})

	snap := store.Current()
	vm1, _ := snap.Get("vm1")
	vm2, _ := snap.Get("vm2")
	assert.Equal(t, core.StateTransitioning, vm1.State)
	assert.Equal(t, core.StateStopped, vm2.State, "untouched records carry over")
	assert.Equal(t, uint64(2), snap.Version())
}

func TestStoreSubscribeCoalesces(t *testing.T) {
	store := core.NewStore()
	sub := store.Subscribe()

	for i := 0; i < 5; i++ {
		store.Update(func(records map[string]core.VM) {
			records["vm1"] = core.VM{ID: "vm1"}
		})
	}

	// Rapid publishes collapse into a single pending notification.
	<-sub
	select {
	case <-sub:
		t.Fatal("expected notifications to be coalesced")
	default:
	}

	// A publish after draining signals again.
	store.Replace(nil)
	select {
	case <-sub:
	default:
		t.Fatal("expected a notification after a new publish")
	}
}

func TestSnapshotVMsSorted(t *testing.T) {
	store := core.NewStore()
	snap := store.Replace(map[string]core.VM{
		"b": {ID: "b", Name: "zeta"},
		"a": {ID: "a", Name: "alpha"},
		"c": {ID: "c", Name: "alpha"},
	})

	vms := snap.VMs()
	require.Len(t, vms, 3)
	assert.Equal(t, "a", vms[0].ID)
	assert.Equal(t, "c", vms[1].ID, "equal names fall back to id order")
	assert.Equal(t, "b", vms[2].ID)
}
