package events

import "testing"

func TestLocalBusDeliversUntilUnsubscribed(t *testing.T) {
	bus := NewLocalBus()
	var got []string
	unsub, err := bus.SubscribeTranscriptions(func(evt TranscriptionCompleted) {
		got = append(got, evt.JobID)
	})
	if err != nil {
		t.Fatal(err)
	}

	bus.PublishTranscription(TranscriptionCompleted{JobID: "a"})
	unsub()
	bus.PublishTranscription(TranscriptionCompleted{JobID: "b"})

	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected only [a], got %v", got)
	}
}

func TestNewBusWithoutURLIsLocal(t *testing.T) {
	if _, ok := NewBus("").(*LocalBus); !ok {
		t.Error("expected local bus")
	}
}

func TestLocalBusQueueGroupDeliversOnce(t *testing.T) {
	bus := NewLocalBus()
	var plain, workers int
	bus.SubscribeTranscriptions(func(TranscriptionCompleted) { plain++ })
	bus.SubscribeTranscriptions(func(TranscriptionCompleted) { plain++ })
	for i := 0; i < 3; i++ {
		if _, err := bus.QueueSubscribeTranscriptions("injector", func(TranscriptionCompleted) { workers++ }); err != nil {
			t.Fatal(err)
		}
	}

	bus.PublishTranscription(TranscriptionCompleted{JobID: "a"})

	if plain != 2 {
		t.Errorf("every plain subscriber should see the event, got %d", plain)
	}
	if workers != 1 {
		t.Errorf("one queue member should see the event, got %d", workers)
	}
	if _, err := bus.QueueSubscribeTranscriptions("", func(TranscriptionCompleted) {}); err == nil {
		t.Error("expected an error for an empty group")
	}
}
