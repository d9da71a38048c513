package lineflow

import (
	"testing"
	"time"
)

func TestNewCallbackSubscriber(t *testing.T) {
	var received []Event
	sub := NewCallbackSubscriber(func(ev Event) {
		received = append(received, ev)
	})

	sub.Notify(Event{Kind: EventResult, RunID: "run-1"})
	if len(received) != 1 || received[0].RunID != "run-1" {
		t.Fatalf("unexpected events %+v", received)
	}
}

func TestNewCallbackSubscriberNilHandler(t *testing.T) {
	sub := NewCallbackSubscriber(nil)
	sub.Notify(Event{Kind: EventError, Error: "boom"})
}

func TestNewChannelSubscriber(t *testing.T) {
	sub, ch, closeFn := NewChannelSubscriber(0)
	defer closeFn()

	done := make(chan struct{})
	go func() {
		sub.Notify(Event{Kind: EventResult, RunID: "run-2"})
		close(done)
	}()

	select {
	case ev := <-ch:
		if ev.RunID != "run-2" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel event")
	}
	<-done

	closeFn()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	// Notify after close returns instead of blocking or panicking.
	sub.Notify(Event{Kind: EventResult})
}

func TestChannelSubscriberCloseReleasesStalledNotify(t *testing.T) {
	sub, _, closeFn := NewChannelSubscriber(0)

	done := make(chan struct{})
	go func() {
		sub.Notify(Event{Kind: EventResult, RunID: "stalled"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("notify must block while nobody reads")
	case <-time.After(50 * time.Millisecond):
	}

	closeFn()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not release the blocked notify")
	}
}
