package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowRecorder blocks its first Record call until released.
type slowRecorder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlowRecorder() *slowRecorder {
	return &slowRecorder{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *slowRecorder) Record(_ context.Context, _ *history.Event) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})

	return nil
}

func (r *slowRecorder) Close() error { return nil }

func runEngine(t *testing.T, gw *fakeGateway, interval time.Duration) (*core.Engine, context.CancelFunc) {
	t.Helper()

	eng := core.NewEngine(gw, noopRecorder(t), core.Options{
		PollInterval:   interval,
		CommandTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(cancel)

	return eng, cancel
}

func TestPollerInitialSnapshot(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	eng, _ := runEngine(t, gw, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return eng.Current().Version() >= 1
	}, time.Second, 5*time.Millisecond)

	vm, ok := eng.Current().Get("vm1")
	require.True(t, ok)
	assert.Equal(t, core.StateRunning, vm.State)
	assert.Equal(t, "ubuntu", vm.Name)
	assert.False(t, vm.LastSeen.IsZero())
}

func TestPollerAdoptsRemoteChanges(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	eng, _ := runEngine(t, gw, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		vm, ok := eng.Current().Get("vm1")
		return ok && vm.State == core.StateRunning
	}, time.Second, 5*time.Millisecond)

	// Someone powers the VM off outside the dashboard.
	gw.addVM("vm1", "ubuntu", "poweredOff")

	require.Eventually(t, func() bool {
		vm, _ := eng.Current().Get("vm1")
		return vm.State == core.StateStopped
	}, time.Second, 5*time.Millisecond)
}

func TestPollerDropsRemovedVMs(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")
	gw.addVM("vm2", "win10", "poweredOff")

	eng, _ := runEngine(t, gw, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return eng.Current().Len() == 2
	}, time.Second, 5*time.Millisecond)

	gw.removeVM("vm2")

	require.Eventually(t, func() bool {
		_, ok := eng.Current().Get("vm2")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestPollerDegradedEscalation(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	eng, _ := runEngine(t, gw, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return eng.Current().Version() >= 1
	}, time.Second, 5*time.Millisecond)

	gw.failList(errors.New("connection refused"))

	// One failure degrades without a banner.
	require.Eventually(t, func() bool {
		return eng.Degraded().Degraded
	}, time.Second, 5*time.Millisecond)
	versionAtDegraded := eng.Current().Version()

	// Three consecutive failures escalate to the banner.
	require.Eventually(t, func() bool {
		return eng.Degraded().Banner
	}, time.Second, 5*time.Millisecond)

	status := eng.Degraded()
	assert.Equal(t, "connection refused", status.Reason)
	assert.False(t, status.Since.IsZero())
	assert.GreaterOrEqual(t, status.Failures, 3)

	// Failed fetches never clear existing snapshot data.
	vm, ok := eng.Current().Get("vm1")
	require.True(t, ok)
	assert.Equal(t, core.StateRunning, vm.State)
	assert.Equal(t, versionAtDegraded, eng.Current().Version())

	// Recovery clears the flag on the next successful poll.
	gw.failList(nil)
	require.Eventually(t, func() bool {
		return !eng.Degraded().Degraded
	}, time.Second, 5*time.Millisecond)
}

func TestPollerRefresh(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	// A long interval: only the initial poll happens on its own.
	eng, _ := runEngine(t, gw, time.Hour)

	require.Eventually(t, func() bool {
		return gw.calls() == 1
	}, time.Second, 5*time.Millisecond)

	gw.addVM("vm1", "ubuntu", "suspended")
	eng.Refresh()

	require.Eventually(t, func() bool {
		vm, _ := eng.Current().Get("vm1")
		return vm.State == core.StateSuspended
	}, time.Second, 5*time.Millisecond)
}

func TestPollerPreservesTransitioningDuringPendingCommand(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	// Hold the command in flight while polls keep reporting the stale
	// pre-command state.
	release := make(chan struct{})
	gw.onSet(func(ctx context.Context, vmID string, action api.PowerAction) (string, error) {
		select {
		case <-release:
			gw.addVM(vmID, "ubuntu", "poweredOff")
			return "poweredOff", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	eng, _ := runEngine(t, gw, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		vm, ok := eng.Current().Get("vm1")
		return ok && vm.State == core.StateRunning
	}, time.Second, 5*time.Millisecond)

	_, err := eng.Submit("vm1", api.ActionStop)
	require.NoError(t, err)

	vm, _ := eng.Current().Get("vm1")
	assert.Equal(t, core.StateTransitioning, vm.State)

	// Several poll cycles with the stale "poweredOn" must not flicker the
	// VM back to running while the command is pending.
	calls := gw.calls()
	require.Eventually(t, func() bool {
		return gw.calls() >= calls+3
	}, time.Second, 5*time.Millisecond)

	vm, _ = eng.Current().Get("vm1")
	assert.Equal(t, core.StateTransitioning, vm.State)

	close(release)

	require.Eventually(t, func() bool {
		vm, _ := eng.Current().Get("vm1")
		return vm.State == core.StateStopped && eng.InFlight() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSubmitDuringSlowHistoryWriteKeepsTransitioning(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	// Keep the command in flight for the whole test.
	hold := make(chan struct{})
	defer close(hold)
	gw.onSet(func(ctx context.Context, vmID string, action api.PowerAction) (string, error) {
		select {
		case <-hold:
			return "poweredOff", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	rec := newSlowRecorder()
	eng := core.NewEngine(gw, rec, core.Options{
		PollInterval:   10 * time.Millisecond,
		CommandTimeout: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(cancel)

	require.Eventually(t, func() bool {
		vm, ok := eng.Current().Get("vm1")
		return ok && vm.State == core.StateRunning
	}, time.Second, 5*time.Millisecond)

	// An outside state change makes the next poll write history; the write
	// stalls with the poller mid-cycle.
	gw.addVM("vm1", "ubuntu", "suspended")
	select {
	case <-rec.entered:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the history write")
	}

	// The snapshot must already carry the observed change while the history
	// write is still in progress, so the submission below validates against
	// fresh state rather than the pre-poll view.
	vm, _ := eng.Current().Get("vm1")
	require.Equal(t, core.StateSuspended, vm.State)

	_, err := eng.Submit("vm1", api.ActionStop)
	require.NoError(t, err)
	close(rec.release)

	// Polls keep reporting the stale hypervisor state; the in-flight
	// command's transitioning record must survive every one of them.
	calls := gw.calls()
	require.Eventually(t, func() bool {
		return gw.calls() >= calls+3
	}, time.Second, 5*time.Millisecond)

	vm, _ = eng.Current().Get("vm1")
	assert.Equal(t, core.StateTransitioning, vm.State)
	assert.Equal(t, 1, eng.InFlight())
}

func TestPollerStopsWithinInterval(t *testing.T) {
	gw := newFakeGateway()
	gw.addVM("vm1", "ubuntu", "poweredOn")

	eng := core.NewEngine(gw, noopRecorder(t), core.Options{
		PollInterval:   20 * time.Millisecond,
		CommandTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return eng.Current().Version() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("poller did not stop within one interval")
	}
}
