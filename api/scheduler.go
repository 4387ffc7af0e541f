/*
scheduler.go - Periodic database probe

PURPOSE:
  Periodically pings the database and records the outcome. /health reports
  the last outcome and the stamp_engine_database_up gauge mirrors it, so a
  lost connection shows up before users hit it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check is bounded by Timeout
  - The first check runs immediately on Start
  - Healthy() is safe for concurrent use

CONFIGURATION:
  - CheckInterval: How often to check (default: 30 seconds)
  - Timeout:       Ping deadline (default: 5 seconds)

USAGE:
  probe := NewDatabaseProbe(store, metrics, log)
  probe.Start()
  // ... later
  probe.Stop()

SEE ALSO:
  - handlers.go: Health endpoint
  - store/sqlstore/store.go: Ping
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warp/stamp-engine/lib/sl"
)

// Pinger is the part of the store the probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeRecorder receives probe outcomes. *metrics.Metrics implements it.
type ProbeRecorder interface {
	SetDatabaseUp(up bool)
}

// DatabaseProbe checks database reachability on a ticker.
type DatabaseProbe struct {
	Store         Pinger
	Recorder      ProbeRecorder
	CheckInterval time.Duration
	Timeout       time.Duration

	log     *slog.Logger
	healthy atomic.Bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDatabaseProbe creates a probe. recorder may be nil. The probe reports
// healthy until its first check says otherwise.
func NewDatabaseProbe(store Pinger, recorder ProbeRecorder, log *slog.Logger) *DatabaseProbe {
	p := &DatabaseProbe{
		Store:         store,
		Recorder:      recorder,
		CheckInterval: 30 * time.Second,
		Timeout:       5 * time.Second,
		log:           log.With(sl.Module("api.probe")),
	}
	p.healthy.Store(true)
	return p
}

// Start begins the periodic checks. Calling Start twice is a no-op.
func (p *DatabaseProbe) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		return
	}
	p.ticker = time.NewTicker(p.CheckInterval)
	p.stop = make(chan struct{})
	p.wg.Add(1)

	go p.run(p.ticker, p.stop)

	p.log.Info("database probe started", slog.Duration("interval", p.CheckInterval))
}

// Stop ends the checks and waits for a running one to finish.
func (p *DatabaseProbe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.stop)
	p.wg.Wait()
	p.ticker = nil
	p.log.Info("database probe stopped")
}

func (p *DatabaseProbe) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer p.wg.Done()

	p.RunNow()

	for {
		select {
		case <-ticker.C:
			p.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and returns its error.
func (p *DatabaseProbe) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	err := p.Store.Ping(ctx)
	up := err == nil
	if was := p.healthy.Swap(up); was != up {
		if up {
			p.log.Info("database reachable again")
		} else {
			p.log.Error("database unreachable", sl.Err(err))
		}
	}
	if p.Recorder != nil {
		p.Recorder.SetDatabaseUp(up)
	}
	return err
}

// Healthy reports the outcome of the last check.
func (p *DatabaseProbe) Healthy() bool {
	return p.healthy.Load()
}
