package realtime

import "time"

// Ticker is the minimal surface of time.Ticker the manager needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Scheduler creates tickers. Tests substitute a manual implementation to
// drive heartbeat, metrics and sweep ticks deterministically.
type Scheduler interface {
	NewTicker(d time.Duration) Ticker
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

type realScheduler struct{}

func (realScheduler) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

// NewScheduler returns the wall-clock scheduler.
func NewScheduler() Scheduler {
	return realScheduler{}
}
