package core

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/history"
	"codeberg.org/mutker/vmctl/internal/logger"
)

// degradedThreshold is the number of consecutive poll failures after which
// the degraded flag escalates to a user-visible banner.
const degradedThreshold = 3

// DegradedStatus describes the poller's health for display. Degraded is set
// on the first failed poll; Banner after degradedThreshold consecutive
// failures. A successful poll clears both.
type DegradedStatus struct {
	Degraded bool
	Banner   bool
	Reason   string
	Since    time.Time
	Failures int
}

// Poller periodically fetches the full VM inventory and merges it into the
// snapshot store. It is the only writer of poll-derived state; command
// resolutions go through the same store's serialized publish path.
type Poller struct {
	gateway  api.Gateway
	store    *Store
	pending  *pendingSet
	recorder history.Recorder
	interval time.Duration

	refresh chan struct{}

	mu       sync.Mutex
	degraded DegradedStatus
}

func newPoller(gateway api.Gateway, store *Store, pending *pendingSet, recorder history.Recorder, interval time.Duration) *Poller {
	return &Poller{
		gateway:  gateway,
		store:    store,
		pending:  pending,
		recorder: recorder,
		interval: interval,
		refresh:  make(chan struct{}, 1),
	}
}

// Run polls until the context is cancelled. The in-flight fetch carries a
// deadline of one interval, so shutdown completes within one polling
// interval even if the gateway hangs.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial fetch so the dashboard is not empty for a full interval.
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		case <-p.refresh:
			p.poll(ctx)
		}
	}
}

// Refresh requests an immediate poll cycle. Coalesced: requests during an
// in-flight poll collapse into one.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Degraded returns the current poll health for display.
func (p *Poller) Degraded() DegradedStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.degraded
}

func (p *Poller) poll(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	fetched, err := p.gateway.ListVMs(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down, not a poll failure
		}
		p.recordFailure(err)
		return
	}

	p.recordSuccess()
	p.merge(ctx, fetched)
}

// observedTransition is a poll-detected state change, collected during the
// publish and recorded afterwards.
type observedTransition struct {
	from VM
	to   VM
}

// merge adopts the fetched inventory as the new snapshot. The decision runs
// inside the store's serialized publish, against the records at swap time:
// a VM whose command slot is occupied keeps its current record, whatever
// the fetch reported, since the fetch is stale relative to the accepted
// command. The command's resolution (or timeout) is the only writer for
// that VM until its slot frees. VMs absent from the authoritative list are
// dropped. History writes happen after the swap, off the publish path.
func (p *Poller) merge(ctx context.Context, fetched []api.VMState) {
	now := time.Now()

	var observed []observedTransition
	snap := p.store.Update(func(records map[string]VM) {
		seen := make(map[string]struct{}, len(fetched))
		for _, remote := range fetched {
			seen[remote.ID] = struct{}{}

			old, known := records[remote.ID]
			if known && p.pending.has(remote.ID) {
				continue
			}

			record := VM{
				ID:       remote.ID,
				Name:     remote.Name,
				State:    ParsePowerState(remote.State),
				LastSeen: now,
			}
			if known {
				record.LastError = old.LastError
				if old.State != record.State {
					record.LastError = ""
					observed = append(observed, observedTransition{from: old, to: record})
				}
			}

			records[remote.ID] = record
		}

		for id := range records {
			if _, ok := seen[id]; !ok {
				delete(records, id)
			}
		}
	})

	logger.Debug().
		Uint64("version", snap.Version()).
		Int("vms", snap.Len()).
		Msg("Snapshot published")

	for _, t := range observed {
		p.recordTransition(ctx, t.from, t.to)
	}
}

func (p *Poller) recordTransition(ctx context.Context, old, observed VM) {
	logger.Info().
		Str("vm", observed.Name).
		Str("from", old.State.String()).
		Str("to", observed.State.String()).
		Msg("VM power state changed")

	if err := p.recorder.Record(ctx, &history.Event{
		Timestamp: time.Now(),
		VMID:      observed.ID,
		VMName:    observed.Name,
		Kind:      history.EventObserved,
		FromState: old.State.String(),
		ToState:   observed.State.String(),
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record state transition")
	}
}

// recordFailure keeps the previous snapshot intact; a failed fetch is
// display data, never fatal.
func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.degraded.Degraded {
		p.degraded.Since = time.Now()
	}
	p.degraded.Degraded = true
	p.degraded.Failures++
	p.degraded.Reason = err.Error()
	if p.degraded.Failures >= degradedThreshold {
		p.degraded.Banner = true
	}

	logger.Warn().
		Err(err).
		Int("consecutive_failures", p.degraded.Failures).
		Msg("Poll failed, keeping previous snapshot")
}

func (p *Poller) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.degraded.Degraded {
		logger.Info().Msg("Polling recovered")
	}
	p.degraded = DegradedStatus{}
}
