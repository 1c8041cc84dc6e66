package events

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	bus, err := NewEmbedded("test.games")
	if err != nil {
		t.Fatalf("NewEmbedded: %v", err)
	}
	defer bus.Close()

	received := make(chan GameEvent, 1)
	sub, err := bus.SubscribeGames(func(evt GameEvent) {
		received <- evt
	})
	if err != nil {
		t.Fatalf("SubscribeGames: %v", err)
	}
	defer sub.Unsubscribe()

	bus.PublishGame(GameEvent{
		Type:   TypeGameRecorded,
		GameID: "g1",
		Users:  []string{"a", "b", "c"},
		Winner: "a",
	})

	select {
	case evt := <-received:
		if evt.Type != TypeGameRecorded || evt.GameID != "g1" || evt.Winner != "a" {
			t.Errorf("event = %+v", evt)
		}
		if evt.Time == 0 {
			t.Error("publish did not stamp the event time")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	t.Parallel()

	var bus *Bus
	bus.PublishGame(GameEvent{Type: TypeGameDeleted, GameID: "g1"})
	bus.Close()
}
