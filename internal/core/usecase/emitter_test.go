package usecase

import (
	"context"
	"testing"

	"github.com/nimbusworks/workspace-assistant/internal/core/domain"
)

func TestEmitterStopsAfterTerminalEvent(t *testing.T) {
	ch := make(chan domain.QueryEvent, 4)
	emitter := newEventEmitter(context.Background(), ch)

	if !emitter.emit(domain.TokenEvent("hello")) {
		t.Fatalf("expected token emit to succeed")
	}
	if !emitter.emit(domain.DoneEvent()) {
		t.Fatalf("expected terminal emit to succeed")
	}
	if emitter.emit(domain.TokenEvent("after the end")) {
		t.Fatalf("nothing may follow a terminal event")
	}
	if emitter.emit(domain.ErrorEvent("second terminal")) {
		t.Fatalf("a second terminal event must be dropped")
	}
	close(ch)

	events := collectEvents(ch)
	if len(events) != 2 {
		t.Fatalf("expected exactly 2 delivered events, got %d", len(events))
	}
	if events[1].Type != domain.EventDone {
		t.Fatalf("expected done last, got %s", events[1].Type)
	}
}

func TestEmitterStopsWhenConsumerContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan domain.QueryEvent) // unbuffered, no consumer
	emitter := newEventEmitter(ctx, ch)

	cancel()
	if emitter.emit(domain.TokenEvent("nobody is listening")) {
		t.Fatalf("emit must fail once the consumer context is done")
	}
	if emitter.emit(domain.DoneEvent()) {
		t.Fatalf("emitter must stay closed after a context stop")
	}
}
