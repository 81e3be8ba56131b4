package events

import (
	"testing"
	"time"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventCheckpointCreated, "pre"))

	select {
	case event := <-ch:
		if event.Type != EventCheckpointCreated {
			t.Errorf("expected EventCheckpointCreated, got %s", event.Type)
		}
		if event.Data != "pre" {
			t.Errorf("expected data 'pre', got %v", event.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe(EventCatastrophicLoss)
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventVerifyResult, "should-be-filtered"))
	bus.Publish(NewEvent(EventCatastrophicLoss, "should-arrive"))

	select {
	case event := <-ch:
		if event.Data != "should-arrive" {
			t.Errorf("expected data 'should-arrive', got %v", event.Data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}

	select {
	case event := <-ch:
		t.Errorf("unexpected event: %v", event)
	default:
	}
}

func TestMemoryBusHistoryLimit(t *testing.T) {
	bus := NewMemoryBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(NewEvent(EventVerifyResult, i))
	}

	all := bus.History(time.Time{})
	if len(all) != 3 {
		t.Fatalf("history len = %d, want 3", len(all))
	}
	if all[0].Data != 2 {
		t.Errorf("oldest retained event = %v, want 2", all[0].Data)
	}
	if bus.Count(EventVerifyResult) != 3 {
		t.Errorf("Count = %d, want 3", bus.Count(EventVerifyResult))
	}
}

func TestMemoryBusHistorySince(t *testing.T) {
	bus := NewMemoryBus(0)

	t1 := time.Now()
	bus.Publish(NewEvent(EventRunSaved, "first"))
	time.Sleep(10 * time.Millisecond)
	t2 := time.Now()
	bus.Publish(NewEvent(EventRunLoaded, "second"))

	if got := len(bus.History(t1)); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
	since := bus.History(t2)
	if len(since) != 1 || since[0].Data != "second" {
		t.Fatalf("History(t2) = %v", since)
	}
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventForRun(t *testing.T) {
	e := NewEvent(EventTransitionVerified, nil).ForRun("run-1")
	if e.Run != "run-1" {
		t.Errorf("Run = %q", e.Run)
	}
	if e.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}
