package usecase

import (
	"context"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

// eventEmitter produces one query's strictly ordered event stream. After a
// terminal event, or after the consumer's context is done, every further
// emit is a no-op returning false so the producer can stop at its next
// suspension point.
type eventEmitter struct {
	ctx    context.Context
	ch     chan<- domain.QueryEvent
	closed bool
}

func newEventEmitter(ctx context.Context, ch chan<- domain.QueryEvent) *eventEmitter {
	return &eventEmitter{ctx: ctx, ch: ch}
}

func (e *eventEmitter) emit(event domain.QueryEvent) bool {
	if e.closed {
		return false
	}
	select {
	case e.ch <- event:
		if event.Terminal() {
			e.closed = true
		}
		return true
	case <-e.ctx.Done():
		e.closed = true
		return false
	}
}
