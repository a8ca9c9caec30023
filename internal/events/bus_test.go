package events

import (
	"testing"

	"github.com/danmuck/meshctl/internal/testutil/testlog"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	testlog.Start(t)
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(NodeListChanged{Num: 9})
	ev := <-ch
	changed, ok := ev.(NodeListChanged)
	if !ok {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if changed.Num != 9 {
		t.Fatalf("unexpected num: %d", changed.Num)
	}
	if changed.Kind() != KindNodeListChanged {
		t.Fatalf("unexpected kind: %v", changed.Kind())
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	testlog.Start(t)
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	cancel()
	bus.Publish(Connected{})
	if _, open := <-ch; open {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	testlog.Start(t)
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(NodeListChanged{Num: 1})
	bus.Publish(NodeListChanged{Num: 2}) // dropped, buffer holds one

	first := <-ch
	if first.(NodeListChanged).Num != 1 {
		t.Fatalf("unexpected first event: %#v", first)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected drop, got %#v", ev)
	default:
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	testlog.Start(t)
	bus := NewBus(4)
	a, cancelA := bus.Subscribe()
	defer cancelA()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	bus.Publish(Diagnostic{Message: "check"})
	if (<-a).Kind() != KindDiagnostic || (<-b).Kind() != KindDiagnostic {
		t.Fatalf("both subscribers should receive the diagnostic")
	}
}
