// Package facade implements the Controller Façade: the single owner of the
// radio session orchestrator that adapters (MPRIS, the local control socket,
// waybar) talk to instead of reaching into the orchestrator directly. It
// runs the background poll loop that keeps the cached player state fresh and
// fans every tick out to subscribers.
package facade

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mehroj-r/ym-bridge/internal/events"
	"github.com/mehroj-r/ym-bridge/internal/models"
)

// orchestrator is the subset of orchestrator.Orchestrator the façade drives.
// Accepting an interface lets tests substitute a fake instead of wiring a
// real media subprocess and cloud transport.
type orchestrator interface {
	FetchState(ctx context.Context) (models.PlayerState, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, offsetUS int64) error
	SetPosition(ctx context.Context, trackID string, positionUS int64) error
	SetVolume(ctx context.Context, v float64) error
	LikeCurrent(ctx context.Context) error
	DislikeCurrent(ctx context.Context) error
	GetSeeds() models.SeedSet
	SetSeeds(ctx context.Context, seeds []string) error
	Close() error
}

// Facade owns one orchestrator and runs the poll loop that keeps State()
// fresh and publishes every tick on bus.
type Facade struct {
	orch         orchestrator
	bus          *events.Bus
	pollInterval time.Duration

	mu    sync.RWMutex
	state models.PlayerState

	stop chan struct{}
	done chan struct{}
}

// New builds a Facade. Start must be called to begin polling.
func New(orch orchestrator, bus *events.Bus, pollInterval time.Duration) *Facade {
	return &Facade{
		orch:         orch,
		bus:          bus,
		pollInterval: pollInterval,
	}
}

// Start launches the background poll loop. Safe to call once.
func (f *Facade) Start(ctx context.Context) {
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go f.pollLoop(ctx)
}

// Stop signals the poll loop to exit, waits for it, and releases the
// orchestrator's resources (the media subprocess and its socket).
func (f *Facade) Stop() error {
	if f.stop != nil {
		close(f.stop)
		<-f.done
	}
	return f.orch.Close()
}

// State returns the most recently polled player state snapshot.
func (f *Facade) State() models.PlayerState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Subscribe registers a listener for every poll-tick state snapshot.
func (f *Facade) Subscribe(id string) <-chan models.PlayerState {
	return f.bus.Subscribe(id)
}

// Unsubscribe removes a previously registered listener.
func (f *Facade) Unsubscribe(id string) {
	f.bus.Unsubscribe(id)
}

func (f *Facade) pollLoop(ctx context.Context) {
	defer close(f.done)

	f.tick(ctx)
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Facade) tick(ctx context.Context) {
	state, err := f.orch.FetchState(ctx)
	if err != nil {
		slog.Warn("facade: poll tick failed", "err", err)
		return
	}

	f.mu.Lock()
	f.state = state
	f.mu.Unlock()

	f.bus.Publish(state)
}

// Play forwards the play verb to the orchestrator.
func (f *Facade) Play(ctx context.Context) error { return f.orch.Play(ctx) }

// Pause forwards the pause verb to the orchestrator.
func (f *Facade) Pause(ctx context.Context) error { return f.orch.Pause(ctx) }

// PlayPause forwards the play_pause verb to the orchestrator.
func (f *Facade) PlayPause(ctx context.Context) error { return f.orch.PlayPause(ctx) }

// StopPlayback forwards the stop verb to the orchestrator. Named to avoid
// colliding with Facade.Stop, which tears the façade itself down.
func (f *Facade) StopPlayback(ctx context.Context) error { return f.orch.Stop(ctx) }

// Next forwards the next verb to the orchestrator.
func (f *Facade) Next(ctx context.Context) error { return f.orch.Next(ctx) }

// Previous forwards the previous verb to the orchestrator.
func (f *Facade) Previous(ctx context.Context) error { return f.orch.Previous(ctx) }

// Seek forwards a relative seek to the orchestrator.
func (f *Facade) Seek(ctx context.Context, offsetUS int64) error { return f.orch.Seek(ctx, offsetUS) }

// SetPosition forwards an absolute seek to the orchestrator.
func (f *Facade) SetPosition(ctx context.Context, trackID string, positionUS int64) error {
	return f.orch.SetPosition(ctx, trackID, positionUS)
}

// SetVolume forwards a normalized [0,1] volume to the orchestrator.
func (f *Facade) SetVolume(ctx context.Context, v float64) error { return f.orch.SetVolume(ctx, v) }

// LikeCurrent forwards the like verb to the orchestrator and publishes the
// resulting state immediately so subscribers see the liked flag without
// waiting for the next poll tick.
func (f *Facade) LikeCurrent(ctx context.Context) error {
	if err := f.orch.LikeCurrent(ctx); err != nil {
		return err
	}
	f.tick(ctx)
	return nil
}

// DislikeCurrent forwards the dislike verb and republishes state, mirroring
// LikeCurrent.
func (f *Facade) DislikeCurrent(ctx context.Context) error {
	if err := f.orch.DislikeCurrent(ctx); err != nil {
		return err
	}
	f.tick(ctx)
	return nil
}

// GetSeeds returns the current rotor seed set.
func (f *Facade) GetSeeds() models.SeedSet { return f.orch.GetSeeds() }

// SetSeeds replaces the rotor seed set and republishes state since the
// active session (and therefore the current track) changes immediately.
func (f *Facade) SetSeeds(ctx context.Context, seeds []string) error {
	if err := f.orch.SetSeeds(ctx, seeds); err != nil {
		return err
	}
	f.tick(ctx)
	return nil
}
