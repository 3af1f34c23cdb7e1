// Package dispatch runs reconciliation for inbound events in process.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// ErrClosed is returned when dispatching after Shutdown
var ErrClosed = errors.New("dispatcher is shut down")

// Handler processes a single event
type Handler interface {
	Handle(ctx context.Context, ev types.PullRequestEvent) error
}

// Inline handles each event on its own goroutine. Events for the same pull
// request are not serialized.
type Inline struct {
	ctx     context.Context
	handler Handler
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInline creates a dispatcher whose handlers run under ctx rather than the
// short-lived request context
func NewInline(ctx context.Context, handler Handler, logger *zap.Logger) *Inline {
	return &Inline{
		ctx:     ctx,
		handler: handler,
		logger:  logger,
	}
}

// Dispatch starts processing an event and returns immediately
func (d *Inline) Dispatch(_ context.Context, ev types.PullRequestEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.process(ev)
	}()
	return nil
}

// process handles a single event
func (d *Inline) process(ev types.PullRequestEvent) {
	d.logger.Info("processing event",
		zap.String("repo", ev.Repository.FullName()),
		zap.Int("pr_number", ev.PullRequest.Number),
		zap.String("action", string(ev.Action)),
		zap.String("delivery_id", ev.DeliveryID),
	)

	if err := d.handler.Handle(d.ctx, ev); err != nil {
		d.logger.Error("failed to process event",
			zap.String("repo", ev.Repository.FullName()),
			zap.Int("pr_number", ev.PullRequest.Number),
			zap.String("delivery_id", ev.DeliveryID),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting events and waits for in-flight ones until ctx is
// done
func (d *Inline) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
