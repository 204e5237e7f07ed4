// Package poller is a cancellable repeating task used to drive periodic
// re-fetches. Each tick invokes the most recently registered action, so a
// caller may swap the action between ticks without restarting the loop.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/statusboard/internal/logger"
)

type Poller struct {
	interval time.Duration
	logger   logger.Logger

	mu     sync.Mutex
	action func(ctx context.Context)
}

func New(interval time.Duration, log logger.Logger) *Poller {
	return &Poller{
		interval: interval,
		logger:   log,
	}
}

// SetAction replaces the action invoked on the next and subsequent ticks.
// Safe to call while the poller is running.
func (p *Poller) SetAction(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.action = fn
}

// Handle stops a running poller exactly once and waits for the loop to exit.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop tears the loop down deterministically; no tick fires after it returns.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start launches the tick loop until the context is cancelled or the handle
// is stopped. Actions run sequentially on the loop goroutine: a tick fires on
// schedule regardless of whether the previous fetch produced a response yet,
// and out-of-order results resolve as last-write-wins on the caller's state.
func (p *Poller) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	p.logger.Debug("Starting poller", "interval", p.interval)

	go func() {
		defer close(h.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Poller stopped")
				return

			case <-ticker.C:
				p.mu.Lock()
				action := p.action
				p.mu.Unlock()

				if action == nil {
					continue
				}
				action(ctx)
			}
		}
	}()

	return h
}
