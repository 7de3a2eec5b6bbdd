// Package runner drives playing sessions at their configured tick interval.
//
// The engine has no clock of its own. Runner owns one goroutine per playing
// session that calls Tick on the game service, pushes the new state to a
// Broadcaster, and exits once the game stops playing.
package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/snakegame/game/engine"
	"github.com/wricardo/mcp-training/snakegame/game/service"
	"github.com/wricardo/mcp-training/snakegame/logging"
)

// TickService is the part of the game service the scheduler needs
type TickService interface {
	Tick(ctx context.Context, sessionID string) (*service.TickOutcome, error)
}

// Broadcaster receives state after every scheduled tick
type Broadcaster interface {
	BroadcastToSession(sessionID string, state *engine.GameState)
	BroadcastEvent(sessionID string, event string, data interface{})
}

type job struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Runner schedules ticks for playing sessions
type Runner struct {
	svc     TickService
	out     Broadcaster
	log     *zap.SugaredLogger
	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a runner. out may be nil when nobody listens.
func New(svc TickService, out Broadcaster) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		svc:     svc,
		out:     out,
		log:     logging.L(),
		metrics: &Metrics{},
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]*job),
	}
}

// SetLogger replaces the runner logger
func (r *Runner) SetLogger(logger *zap.SugaredLogger) {
	if logger != nil {
		r.log = logger
	}
}

// Start begins ticking sessionID every interval. It returns false if the
// session is already scheduled. A non-positive interval uses the default.
func (r *Runner) Start(sessionID string, interval time.Duration) bool {
	if interval <= 0 {
		interval = engine.DefaultTickInterval * time.Millisecond
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[sessionID]; exists {
		return false
	}
	if r.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithCancel(r.ctx)
	j := &job{interval: interval, cancel: cancel, done: make(chan struct{})}
	r.jobs[sessionID] = j
	r.metrics.IncStarted()

	go r.loop(ctx, sessionID, j)
	return true
}

// Stop cancels the loop for sessionID and waits for it to exit. It must not
// be called from a Broadcaster callback.
func (r *Runner) Stop(sessionID string) bool {
	r.mu.Lock()
	j, exists := r.jobs[sessionID]
	if exists {
		delete(r.jobs, sessionID)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}
	j.cancel()
	<-j.done
	return true
}

// StopAll stops every loop. The runner accepts no new work afterwards.
func (r *Runner) StopAll() {
	r.mu.Lock()
	r.cancel()
	jobs := make([]*job, 0, len(r.jobs))
	for id, j := range r.jobs {
		jobs = append(jobs, j)
		delete(r.jobs, id)
	}
	r.mu.Unlock()

	for _, j := range jobs {
		<-j.done
	}
}

// Running reports whether sessionID is scheduled
func (r *Runner) Running(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.jobs[sessionID]
	return exists
}

// Count returns the number of scheduled sessions
func (r *Runner) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Metrics returns the runner counters
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Snapshot returns metrics plus the number of running loops
func (r *Runner) Snapshot() map[string]any {
	snap := r.metrics.Snapshot()
	snap["running"] = r.Count()
	return snap
}

func (r *Runner) loop(ctx context.Context, sessionID string, j *job) {
	defer func() {
		r.mu.Lock()
		if r.jobs[sessionID] == j {
			delete(r.jobs, sessionID)
		}
		r.mu.Unlock()
		r.metrics.IncStopped()
		close(j.done)
	}()

	r.log.Debugw("tick loop started", "session", sessionID, "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Debugw("tick loop stopped", "session", sessionID)
			return
		case <-ticker.C:
			if !r.tick(ctx, sessionID) {
				return
			}
		}
	}
}

// tick runs one step and reports whether the loop should continue
func (r *Runner) tick(ctx context.Context, sessionID string) bool {
	start := time.Now()
	outcome, err := r.svc.Tick(ctx, sessionID)
	r.metrics.AddTick(time.Since(start).Nanoseconds())

	if err != nil {
		r.metrics.IncTickErrors()
		r.log.Warnw("scheduled tick failed", "session", sessionID, "error", err)
		return false
	}

	if r.out != nil {
		r.out.BroadcastToSession(sessionID, outcome.GameState)
		for _, ev := range outcome.Events {
			if ev.Type == service.EventFoodEaten || ev.Type == service.EventGameOver {
				r.out.BroadcastEvent(sessionID, ev.Type, ev)
			}
		}
	}

	if outcome.Result.GameOver {
		r.metrics.IncGameOver()
		r.log.Infow("scheduled game ended", "session", sessionID, "cause", outcome.Result.Cause, "score", outcome.Result.FinalScore)
		return false
	}

	return outcome.GameState.IsPlaying
}
