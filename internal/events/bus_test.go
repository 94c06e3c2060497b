package events

import (
	"testing"
)

func TestPublishRingBuffer(t *testing.T) {
	b := NewBus(2)

	b.Publish(Event{Kind: KindToast})
	b.Publish(Event{Kind: KindModal})
	b.Publish(Event{Kind: KindStateChanged})

	events := b.Recent()
	if len(events) != 2 {
		t.Fatalf("events len = %d, want 2", len(events))
	}
	if events[0].ID != 2 || events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", events[0].ID, events[1].ID)
	}
	if events[1].Kind != KindStateChanged {
		t.Fatalf("last kind = %s, want %s", events[1].Kind, KindStateChanged)
	}
}

func TestSubscribeReceivesTypedToast(t *testing.T) {
	b := NewBus(10)
	ch, unsubscribe := b.Subscribe(4)

	b.Toast(LevelWarning, "action %q not recognized", "foo:bar")

	ev := <-ch
	if ev.Kind != KindToast || ev.Toast == nil {
		t.Fatalf("event = %+v, want toast", ev)
	}
	if ev.Toast.Level != LevelWarning {
		t.Fatalf("level = %s, want %s", ev.Toast.Level, LevelWarning)
	}
	if ev.Toast.Message != `action "foo:bar" not recognized` {
		t.Fatalf("message = %q", ev.Toast.Message)
	}

	unsubscribe()
	unsubscribe() // second call is a no-op
	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", n)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus(10)
	_, unsubscribe := b.Subscribe(1)
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		b.OpenModal("confirm", nil)
	}
	if got := len(b.Recent()); got != 5 {
		t.Fatalf("recent = %d, want 5", got)
	}
}
