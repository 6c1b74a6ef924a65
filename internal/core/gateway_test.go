package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/history"
	"github.com/stretchr/testify/require"
)

// fakeGateway is an in-memory hypervisor. ListVMs serves its inventory
// and SetPowerState mutates it, unless a hook overrides the behavior.
type fakeGateway struct {
	mu        sync.Mutex
	vms       map[string]string // id -> api power state
	names     map[string]string
	listErr   error
	listCalls int

	setHook func(ctx context.Context, vmID string, action api.PowerAction) (string, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		vms:   map[string]string{},
		names: map[string]string{},
	}
}

func (f *fakeGateway) addVM(id, name, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vms[id] = state
	f.names[id] = name
}

func (f *fakeGateway) removeVM(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vms, id)
	delete(f.names, id)
}

func (f *fakeGateway) failList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeGateway) onSet(hook func(ctx context.Context, vmID string, action api.PowerAction) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setHook = hook
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeGateway) ListVMs(_ context.Context) ([]api.VMState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []api.VMState
	for id, state := range f.vms {
		out = append(out, api.VMState{ID: id, Name: f.names[id], State: state})
	}
	return out, nil
}

func (f *fakeGateway) GetPowerState(_ context.Context, vmID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vms[vmID], nil
}

func (f *fakeGateway) GetVM(_ context.Context, vmID string) (api.VMDetails, error) {
	return api.VMDetails{ID: vmID}, nil
}

func (f *fakeGateway) SetPowerState(ctx context.Context, vmID string, action api.PowerAction) (string, error) {
	f.mu.Lock()
	hook := f.setHook
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, vmID, action)
	}

	state := map[api.PowerAction]string{
		api.ActionStart:    "poweredOn",
		api.ActionStop:     "poweredOff",
		api.ActionShutdown: "poweredOff",
		api.ActionSuspend:  "suspended",
	}[action]

	f.mu.Lock()
	f.vms[vmID] = state
	f.mu.Unlock()

	return state, nil
}

func noopRecorder(t *testing.T) history.Recorder {
	t.Helper()

	rec, err := history.NewService(history.Config{Enabled: false})
	require.NoError(t, err)

	return rec
}

// seededEngine runs the engine just long enough for the initial poll, then
// stops the poller so tests can assert on dispatcher behavior without a
// concurrent merge rewriting state.
func seededEngine(t *testing.T, gw *fakeGateway, timeout time.Duration) *core.Engine {
	t.Helper()

	eng := core.NewEngine(gw, noopRecorder(t), core.Options{
		PollInterval:   time.Hour, // only the initial poll runs
		CommandTimeout: timeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sub := eng.Subscribe()
	go eng.Run(ctx)

	select {
	case <-sub:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}
	cancel()

	return eng
}
