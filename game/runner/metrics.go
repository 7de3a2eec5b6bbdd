package runner

import "sync/atomic"

// Metrics records scheduler counters for monitoring
type Metrics struct {
	TickCount   int64 // ticks driven by the scheduler
	TotalTickNs int64 // time spent inside Tick calls
	GamesOver   int64 // runs ended by a collision
	TickErrors  int64 // ticks that failed, usually a deleted session
	Started     int64 // loops started
	Stopped     int64 // loops finished for any reason
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

func (m *Metrics) IncGameOver()   { atomic.AddInt64(&m.GamesOver, 1) }
func (m *Metrics) IncTickErrors() { atomic.AddInt64(&m.TickErrors, 1) }
func (m *Metrics) IncStarted()    { atomic.AddInt64(&m.Started, 1) }
func (m *Metrics) IncStopped()    { atomic.AddInt64(&m.Stopped, 1) }

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":    tick,
		"games_over":    atomic.LoadInt64(&m.GamesOver),
		"tick_errors":   atomic.LoadInt64(&m.TickErrors),
		"loops_started": atomic.LoadInt64(&m.Started),
		"loops_stopped": atomic.LoadInt64(&m.Stopped),
		"avg_tick_ms":   avgMs,
	}
}
