package usecase

import (
	"context"
	"sync"
	"time"
)

// Periodic invokes a unit of work on a fixed interval until stopped. The
// work runs once immediately on start and then once per tick; cycles never
// overlap because the loop is sequential. Cancellation is cooperative,
// observed between cycles, so Stop may see one more completed cycle.
type Periodic struct {
	interval time.Duration
	work     func(ctx context.Context)

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPeriodic creates a periodic task runner.
func NewPeriodic(interval time.Duration, work func(ctx context.Context)) *Periodic {
	return &Periodic{
		interval: interval,
		work:     work,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the task loop.
func (p *Periodic) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
}

func (p *Periodic) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// First cycle runs immediately.
	if p.stopped(ctx) {
		return
	}
	p.work(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if p.stopped(ctx) {
				return
			}
			p.work(ctx)
		}
	}
}

func (p *Periodic) stopped(ctx context.Context) bool {
	select {
	case <-p.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Stop halts the loop and waits for any in-flight cycle. Safe to call more
// than once; the wait is bounded by ctx.
func (p *Periodic) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
